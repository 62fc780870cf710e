package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/FACorreiaa/salary-insights/pkg/money"
)

// ErrNoDocuments is returned when the payslip directory matches nothing.
var ErrNoDocuments = errors.New("no payslip documents found")

// Config locates payslip documents.
type Config struct {
	Dir      string
	Glob     string
	Currency string
}

// Extractor reads every payslip in a directory with one template.
type Extractor struct {
	tpl    *Template
	cfg    Config
	open   Opener
	logger *slog.Logger
}

// NewExtractor creates a new payslip extractor backed by the PDF reader.
func NewExtractor(tpl *Template, cfg Config, logger *slog.Logger) *Extractor {
	if cfg.Glob == "" {
		cfg.Glob = "*.pdf"
	}
	if cfg.Currency == "" {
		cfg.Currency = money.ARS
	}
	return &Extractor{
		tpl:    tpl,
		cfg:    cfg,
		open:   OpenPDF,
		logger: logger,
	}
}

// WithOpener replaces the document opener.
func (e *Extractor) WithOpener(open Opener) *Extractor {
	e.open = open
	return e
}

// Documents lists payslip files in deterministic order.
func (e *Extractor) Documents() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(e.cfg.Dir, e.cfg.Glob))
	if err != nil {
		return nil, fmt.Errorf("invalid payslip glob %q: %w", e.cfg.Glob, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Extract returns one payslip per document, in input order. Any document that
// does not satisfy the template aborts the extraction.
func (e *Extractor) Extract(ctx context.Context) ([]Payslip, error) {
	paths, err := e.Documents()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s (%s)", ErrNoDocuments, e.cfg.Dir, e.cfg.Glob)
	}

	payslips := make([]Payslip, 0, len(paths))
	byPeriod := make(map[string]string, len(paths))

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := e.extractOne(i, path)
		if err != nil {
			return nil, err
		}

		key := p.Year + p.Month
		if other, dup := byPeriod[key]; dup {
			return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicatePeriod, key, other, path)
		}
		byPeriod[key] = path

		e.logger.Debug("payslip extracted",
			slog.String("document", filepath.Base(path)),
			slog.String("period", key),
			slog.String("salary", p.Salary.String()),
		)
		payslips = append(payslips, p)
	}

	e.logger.Info("payslips extracted",
		slog.Int("documents", len(payslips)),
		slog.String("dir", e.cfg.Dir),
	)

	return payslips, nil
}

func (e *Extractor) extractOne(index int, path string) (Payslip, error) {
	doc, err := e.open(path)
	if err != nil {
		return Payslip{}, fmt.Errorf("%s: %w", path, err)
	}
	defer doc.Close()

	values, err := ExtractFields(filepath.Base(path), doc, e.tpl)
	if err != nil {
		return Payslip{}, err
	}

	return NewPayslip(filepath.Base(path), index, values, e.tpl, e.cfg.Currency)
}
