// Package pipeline runs the salary analysis end to end: load exchange rates,
// extract payslips, load inflation, join and derive, then write the report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
	"github.com/FACorreiaa/salary-insights/internal/domain/inflation"
	"github.com/FACorreiaa/salary-insights/internal/domain/payroll"
	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/internal/domain/rates"
	"github.com/FACorreiaa/salary-insights/pkg/storage"
)

var tracer = otel.Tracer("salary-insights/pipeline")

// Stage names, in execution order.
const (
	StageRates     = "rates"
	StagePayslips  = "payslips"
	StageInflation = "inflation"
	StageAnalysis  = "analysis"
	StageReport    = "report"
)

// RateSource loads the monthly exchange-rate history.
type RateSource interface {
	Load(ctx context.Context) ([]rates.MonthlyRate, error)
}

// PayslipSource extracts the monthly salaries.
type PayslipSource interface {
	Extract(ctx context.Context) ([]payroll.Payslip, error)
}

// InflationSource loads the monthly inflation series.
type InflationSource interface {
	Load(ctx context.Context) ([]inflation.MonthlyInflation, error)
}

// ReportWriter persists the joined table.
type ReportWriter interface {
	Write(ctx context.Context, runID uuid.UUID, table *analysis.Table) ([]*storage.FileInfo, error)
}

// StageError reports which stage aborted the run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageTiming is the wall time of one completed stage.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result summarizes a successful run.
type Result struct {
	RunID      uuid.UUID
	Payslips   int
	Rates      int
	Inflation  int
	Table      *analysis.Table
	Files      []*storage.FileInfo
	Stages     []StageTiming
	RatesStale bool
}

// Config tunes a run.
type Config struct {
	Analysis        analysis.Options
	MetricsTextfile string
}

// Pipeline wires the sources, the joiner and the reporter.
type Pipeline struct {
	rates     RateSource
	payslips  PayslipSource
	inflation InflationSource
	report    ReportWriter
	cfg       Config
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new pipeline
func New(rateSrc RateSource, payslipSrc PayslipSource, inflationSrc InflationSource, report ReportWriter, cfg Config, logger *slog.Logger) *Pipeline {
	if !cfg.Analysis.MonthlyHours.IsPositive() {
		cfg.Analysis.MonthlyHours = analysis.DefaultMonthlyHours
	}
	if cfg.Analysis.Policy == "" {
		cfg.Analysis.Policy = analysis.PolicyDrop
	}
	return &Pipeline{
		rates:     rateSrc,
		payslips:  payslipSrc,
		inflation: inflationSrc,
		report:    report,
		cfg:       cfg,
		metrics:   NewMetrics(),
		logger:    logger,
		now:       time.Now,
	}
}

// Metrics returns the run metrics.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Run executes every stage in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.New()}
	logger := p.logger.With(slog.String("run_id", res.RunID.String()))

	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.String("run.id", res.RunID.String())),
	)
	defer span.End()

	logger.Info("salary pipeline started",
		slog.String("policy", string(p.cfg.Analysis.Policy)),
		slog.String("monthly_hours", p.cfg.Analysis.MonthlyHours.String()),
	)

	var (
		monthlyRates []rates.MonthlyRate
		payslips     []payroll.Payslip
		monthly      []inflation.MonthlyInflation
	)

	err := p.stage(ctx, res, StageRates, func(ctx context.Context) error {
		var err error
		monthlyRates, err = p.rates.Load(ctx)
		res.Rates = len(monthlyRates)
		p.metrics.rates.Set(float64(res.Rates))
		return err
	})
	if err != nil {
		return p.fail(span, logger, err)
	}

	err = p.stage(ctx, res, StagePayslips, func(ctx context.Context) error {
		var err error
		payslips, err = p.payslips.Extract(ctx)
		res.Payslips = len(payslips)
		p.metrics.payslips.Set(float64(res.Payslips))
		return err
	})
	if err != nil {
		return p.fail(span, logger, err)
	}
	res.RatesStale = p.checkLatestRate(logger, monthlyRates, payslips)

	err = p.stage(ctx, res, StageInflation, func(ctx context.Context) error {
		var err error
		monthly, err = p.inflation.Load(ctx)
		res.Inflation = len(monthly)
		p.metrics.inflationMonths.Set(float64(res.Inflation))
		return err
	})
	if err != nil {
		return p.fail(span, logger, err)
	}

	err = p.stage(ctx, res, StageAnalysis, func(context.Context) error {
		table, err := analysis.Build(payslips, monthlyRates, monthly, p.cfg.Analysis)
		if err != nil {
			return err
		}
		res.Table = table
		p.metrics.rows.Set(float64(table.Len()))
		p.metrics.missingRates.Set(float64(len(table.MissingRates)))
		p.metrics.missingInflation.Set(float64(len(table.MissingInflation)))
		return nil
	})
	if err != nil {
		return p.fail(span, logger, err)
	}
	p.warnMissing(logger, res.Table)

	err = p.stage(ctx, res, StageReport, func(ctx context.Context) error {
		files, err := p.report.Write(ctx, res.RunID, res.Table)
		res.Files = files
		p.metrics.artifacts.Set(float64(len(files)))
		return err
	})
	if err != nil {
		return p.fail(span, logger, err)
	}

	p.metrics.lastSuccess.Set(float64(p.now().Unix()))
	p.writeMetrics(logger)

	span.SetAttributes(attribute.Int("report.rows", res.Table.Len()))
	logger.Info("salary pipeline finished",
		slog.Int("payslips", res.Payslips),
		slog.Int("rates", res.Rates),
		slog.Int("inflation_months", res.Inflation),
		slog.Int("rows", res.Table.Len()),
		slog.Int("artifacts", len(res.Files)),
	)

	return res, nil
}

// stage runs fn inside its own span and records its duration.
func (p *Pipeline) stage(ctx context.Context, res *Result, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: name, Err: err}
	}

	ctx, span := tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(attribute.String("stage.name", name)),
	)
	defer span.End()

	start := p.now()
	err := fn(ctx)
	elapsed := p.now().Sub(start)

	p.metrics.stageDuration.WithLabelValues(name).Set(elapsed.Seconds())
	if err != nil {
		p.metrics.stageFailures.WithLabelValues(name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: name, Err: err}
	}

	res.Stages = append(res.Stages, StageTiming{Stage: name, Duration: elapsed})
	p.logger.Debug("stage completed",
		slog.String("stage", name),
		slog.Duration("duration", elapsed),
	)
	return nil
}

func (p *Pipeline) fail(span trace.Span, logger *slog.Logger, err error) (*Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("salary pipeline failed", slog.Any("error", err))
	p.writeMetrics(logger)
	return nil, err
}

// checkLatestRate warns when payslips are newer than the rate history.
func (p *Pipeline) checkLatestRate(logger *slog.Logger, monthlyRates []rates.MonthlyRate, payslips []payroll.Payslip) bool {
	latest, ok := rates.Latest(monthlyRates)
	if !ok {
		return len(payslips) > 0
	}
	latestRate, err := latest.Period()
	if err != nil {
		return false
	}

	var newest period.YearMonth
	for _, ps := range payslips {
		ym, err := ps.Period()
		if err != nil {
			continue
		}
		if newest.IsZero() || newest.Before(ym) {
			newest = ym
		}
	}

	if newest.IsZero() || !latestRate.Before(newest) {
		return false
	}
	logger.Warn("exchange rates end before the latest payslip",
		slog.String("latest_rate", latestRate.String()),
		slog.String("latest_payslip", newest.String()),
	)
	return true
}

func (p *Pipeline) warnMissing(logger *slog.Logger, table *analysis.Table) {
	if n := len(table.MissingRates); n > 0 {
		logger.Warn("payslip months without exchange rate",
			slog.Int("count", n),
			slog.Any("months", periodStrings(table.MissingRates)),
		)
	}
	if n := len(table.MissingInflation); n > 0 {
		msg := "payslip months dropped for missing inflation"
		if table.Policy == analysis.PolicyKeep {
			msg = "payslip months kept without inflation"
		}
		logger.Warn(msg,
			slog.Int("count", n),
			slog.Any("months", periodStrings(table.MissingInflation)),
		)
	}
}

func (p *Pipeline) writeMetrics(logger *slog.Logger) {
	if p.cfg.MetricsTextfile == "" {
		return
	}
	if err := p.metrics.WriteTextfile(p.cfg.MetricsTextfile); err != nil {
		logger.Warn("run metrics not written", slog.Any("error", err))
	}
}

func periodStrings(ps []period.YearMonth) []string {
	out := make([]string, len(ps))
	for i, ym := range ps {
		out[i] = ym.String()
	}
	return out
}
