// Package report renders the salary charts and exports the joined table.
package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gonum.org/v1/plot/vg"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
	"github.com/FACorreiaa/salary-insights/pkg/storage"
)

// Artifact names.
const (
	FileUSDChart  = "salary_usd.jpeg"
	FileRealChart = "salary_ars_adjusted_for_inflation.jpeg"
	FileTable     = "salary_analysis.csv"
	FileSummary   = "salary_report.pdf"
)

// Config controls the rendered artifacts.
type Config struct {
	Delimiter  rune
	Width      vg.Length
	Height     vg.Length
	SummaryPDF bool
}

// DefaultConfig renders 12x5 inch charts and a comma separated table.
func DefaultConfig() Config {
	return Config{
		Delimiter: ',',
		Width:     12 * vg.Inch,
		Height:    5 * vg.Inch,
	}
}

type artifact struct {
	name        string
	contentType string
	data        []byte
}

// Reporter writes the report artifacts through a storage backend.
type Reporter struct {
	store  storage.Storage
	cfg    Config
	logger *slog.Logger
}

// NewReporter creates a new reporter
func NewReporter(store storage.Storage, cfg Config, logger *slog.Logger) *Reporter {
	def := DefaultConfig()
	if cfg.Delimiter == 0 {
		cfg.Delimiter = def.Delimiter
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	return &Reporter{store: store, cfg: cfg, logger: logger}
}

// render produces every artifact in memory. Nothing is written when any of
// them fails.
func (r *Reporter) render(table *analysis.Table) ([]artifact, error) {
	usdPlot, err := USDChart(table)
	if err != nil {
		return nil, err
	}
	usd, err := RenderJPEG(usdPlot, r.cfg.Width, r.cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FileUSDChart, err)
	}

	realPlot, err := RealSalaryChart(table)
	if err != nil {
		return nil, err
	}
	realJPEG, err := RenderJPEG(realPlot, r.cfg.Width, r.cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FileRealChart, err)
	}

	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, table, r.cfg.Delimiter); err != nil {
		return nil, err
	}

	out := []artifact{
		{FileUSDChart, "image/jpeg", usd},
		{FileRealChart, "image/jpeg", realJPEG},
		{FileTable, "text/csv", csvBuf.Bytes()},
	}

	if r.cfg.SummaryPDF {
		summary, err := SummaryPDF(table, usd, realJPEG)
		if err != nil {
			return nil, err
		}
		out = append(out, artifact{FileSummary, "application/pdf", summary})
	}

	return out, nil
}

// Write renders the report and stores it under runID.
func (r *Reporter) Write(ctx context.Context, runID uuid.UUID, table *analysis.Table) ([]*storage.FileInfo, error) {
	artifacts, err := r.render(table)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	files := make([]*storage.FileInfo, 0, len(artifacts))
	for _, a := range artifacts {
		info, err := r.store.Put(ctx, runID, a.name, a.contentType, bytes.NewReader(a.data))
		if err != nil {
			return files, fmt.Errorf("failed to store %s: %w", a.name, err)
		}
		r.logger.Debug("report artifact written",
			slog.String("name", info.Name),
			slog.Int64("size", info.Size),
		)
		files = append(files, info)
	}

	r.logger.Info("report written",
		slog.Int("artifacts", len(files)),
		slog.Int("months", table.Len()),
	)

	return files, nil
}
