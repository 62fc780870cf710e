package main

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
	"github.com/FACorreiaa/salary-insights/internal/domain/inflation"
	"github.com/FACorreiaa/salary-insights/internal/domain/payroll"
	"github.com/FACorreiaa/salary-insights/internal/domain/pipeline"
	"github.com/FACorreiaa/salary-insights/internal/domain/rates"
	"github.com/FACorreiaa/salary-insights/internal/domain/report"
	"github.com/FACorreiaa/salary-insights/pkg/config"
	"github.com/FACorreiaa/salary-insights/pkg/fetch"
	"github.com/FACorreiaa/salary-insights/pkg/storage"
)

// Dependencies holds the components a command needs. Each init method builds
// only its own part so that the read-only commands do not need a template or
// a report directory.
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Fetcher   *fetch.Client
	Rates     *rates.Loader
	Inflation *inflation.Loader
	Payslips  *payroll.Extractor
	Storage   storage.Storage
	Reporter  *report.Reporter
}

// NewDependencies creates the shared HTTP client.
func NewDependencies(cfg *config.Config, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		Config: cfg,
		Logger: logger,
		Fetcher: fetch.NewClient(fetch.Config{
			Timeout:   cfg.HTTP.Timeout,
			UserAgent: cfg.HTTP.UserAgent,
		}, logger),
	}
}

func (d *Dependencies) initRates() {
	d.Rates = rates.NewLoader(d.Fetcher, rates.Config{
		URL:        d.Config.Sources.RatesURL,
		TableIndex: d.Config.Sources.RatesTable,
	}, d.Logger)
}

func (d *Dependencies) initInflation() {
	d.Inflation = inflation.NewLoader(d.Fetcher, inflation.Config{
		URL: d.Config.Sources.InflationURL,
		Options: inflation.Options{
			HeaderRow:   d.Config.Inflation.HeaderRow,
			Rows:        d.Config.Inflation.Rows,
			IndexLabel:  d.Config.Inflation.IndexLabel,
			SeriesLabel: d.Config.Inflation.SeriesLabel,
		},
	}, d.Logger)
}

func (d *Dependencies) initPayroll() error {
	tpl, err := payroll.LoadTemplate(d.Config.Payroll.TemplatePath)
	if err != nil {
		return err
	}

	d.Payslips = payroll.NewExtractor(tpl, payroll.Config{
		Dir:      d.Config.Payroll.Dir,
		Glob:     d.Config.Payroll.Glob,
		Currency: d.Config.Payroll.Currency,
	}, d.Logger)
	return nil
}

func (d *Dependencies) initReport() error {
	store, err := storage.New(&storage.Config{Dir: d.Config.Report.Dir})
	if err != nil {
		return err
	}
	d.Storage = store

	cfg := report.DefaultConfig()
	cfg.Delimiter = d.Config.Report.DelimiterRune()
	cfg.SummaryPDF = d.Config.Report.SummaryPDF
	d.Reporter = report.NewReporter(store, cfg, d.Logger)
	return nil
}

// Pipeline wires every stage of a full run.
func (d *Dependencies) Pipeline() (*pipeline.Pipeline, error) {
	policy, err := analysis.ParsePolicy(d.Config.Analysis.JoinPolicy)
	if err != nil {
		return nil, err
	}

	d.initRates()
	d.initInflation()
	if err := d.initPayroll(); err != nil {
		return nil, fmt.Errorf("failed to init payroll: %w", err)
	}
	if err := d.initReport(); err != nil {
		return nil, fmt.Errorf("failed to init report: %w", err)
	}

	d.Logger.Info("all dependencies initialized successfully")

	return pipeline.New(d.Rates, d.Payslips, d.Inflation, d.Reporter, pipeline.Config{
		Analysis: analysis.Options{
			MonthlyHours: decimal.NewFromInt(int64(d.Config.Analysis.MonthlyHours)),
			Policy:       policy,
		},
		MetricsTextfile: d.Config.Metrics.Textfile,
	}, d.Logger), nil
}
