package inflation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/salary-insights/pkg/fetch"
)

// Fetcher downloads a remote document.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Document, error)
}

// Config locates the workbook and the series inside it.
type Config struct {
	URL     string
	Options Options
}

// Loader fetches and parses the inflation workbook.
type Loader struct {
	fetcher Fetcher
	cfg     Config
	logger  *slog.Logger
}

// NewLoader creates a new inflation loader
func NewLoader(fetcher Fetcher, cfg Config, logger *slog.Logger) *Loader {
	return &Loader{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Load fetches the workbook and returns the monthly series, ascending.
func (l *Loader) Load(ctx context.Context) ([]MonthlyInflation, error) {
	doc, err := l.fetcher.Get(ctx, l.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inflation workbook: %w", err)
	}

	rows, err := ReadRows(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inflation workbook %s: %w", l.cfg.URL, err)
	}

	series, err := ParseSheet(rows, l.cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inflation workbook %s: %w", l.cfg.URL, err)
	}

	attrs := []any{slog.Int("months", len(series))}
	if n := len(series); n > 0 {
		attrs = append(attrs,
			slog.String("first", series[0].Period.String()),
			slog.String("last", series[n-1].Period.String()),
		)
	}
	l.logger.Info("inflation series loaded", attrs...)

	return series, nil
}
