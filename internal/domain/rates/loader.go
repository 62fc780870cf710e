package rates

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/net/html/charset"

	"github.com/FACorreiaa/salary-insights/pkg/fetch"
)

// Fetcher downloads a remote document.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Document, error)
}

// Config locates the rate table.
type Config struct {
	URL        string
	TableIndex int
}

// Loader fetches and parses the exchange-rate history page.
type Loader struct {
	fetcher Fetcher
	cfg     Config
	logger  *slog.Logger
}

// NewLoader creates a new exchange-rate loader
func NewLoader(fetcher Fetcher, cfg Config, logger *slog.Logger) *Loader {
	return &Loader{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Load fetches the page and returns one record per observed month.
func (l *Loader) Load(ctx context.Context) ([]MonthlyRate, error) {
	doc, err := l.fetcher.Get(ctx, l.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}

	body, err := charset.NewReader(bytes.NewReader(doc.Body), doc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exchange rate page: %w", err)
	}

	out, err := ParseTables(body, l.cfg.TableIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange rates from %s: %w", l.cfg.URL, err)
	}

	attrs := []any{slog.Int("months", len(out))}
	if latest, ok := Latest(out); ok {
		attrs = append(attrs, slog.String("latest", latest.Year+latest.Month))
	}
	l.logger.Info("exchange rates loaded", attrs...)

	return out, nil
}
