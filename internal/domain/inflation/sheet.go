// Package inflation reads the monthly consumer price index variation from the
// statistics office workbook.
package inflation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/pkg/money"
)

var (
	ErrShortSheet      = errors.New("sheet has fewer rows than expected")
	ErrIndexNotFound   = errors.New("index column not found")
	ErrSeriesNotFound  = errors.New("no complete inflation series")
	ErrAmbiguousSeries = errors.New("more than one inflation series")
	ErrInvalidDate     = errors.New("invalid period header")
	ErrInvalidPercent  = errors.New("invalid inflation percentage")
	ErrDuplicateMonth  = errors.New("duplicate inflation month")
)

// MonthlyInflation is the price variation of one month, in percent.
type MonthlyInflation struct {
	Period  period.YearMonth
	Percent decimal.Decimal
}

// Options locate the series inside the sheet.
type Options struct {
	// HeaderRow is the 0-based row holding the index label and the period headers.
	HeaderRow int
	// Rows is the number of rows read after the header.
	Rows int
	// IndexLabel names the column that labels each row.
	IndexLabel string
	// SeriesLabel picks one row by its label when several are complete.
	SeriesLabel string
}

// DefaultOptions matches the layout of the published workbook.
func DefaultOptions() Options {
	return Options{
		HeaderRow:  5,
		Rows:       3,
		IndexLabel: "Región GBA",
	}
}

// dateLayouts are tried in order for textual period headers.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01-02-06",
	"2006-01",
	"01/2006",
}

// ParseSheet reads the block below the header row, keeps the one row with a
// value in every period column and returns it as one record per month,
// ascending.
func ParseSheet(rows [][]string, opts Options) ([]MonthlyInflation, error) {
	if opts.Rows <= 0 {
		opts.Rows = 1
	}
	if opts.HeaderRow < 0 || opts.HeaderRow >= len(rows) {
		return nil, fmt.Errorf("%w: header row %d, sheet has %d", ErrShortSheet, opts.HeaderRow, len(rows))
	}

	header := rows[opts.HeaderRow]
	indexCol := findColumn(header, opts.IndexLabel)
	if indexCol < 0 {
		return nil, fmt.Errorf("%w: %q in row %d", ErrIndexNotFound, opts.IndexLabel, opts.HeaderRow)
	}

	// Period columns are every labelled column but the index.
	var cols []int
	for i, h := range header {
		if i != indexCol && strings.TrimSpace(h) != "" {
			cols = append(cols, i)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: header row %d has no period columns", ErrShortSheet, opts.HeaderRow)
	}

	end := min(opts.HeaderRow+1+opts.Rows, len(rows))
	var complete [][]string
	for _, row := range rows[opts.HeaderRow+1 : end] {
		if isComplete(row, indexCol, cols) {
			complete = append(complete, row)
		}
	}

	if opts.SeriesLabel != "" {
		complete = selectSeries(complete, indexCol, opts.SeriesLabel)
	}

	switch len(complete) {
	case 0:
		return nil, ErrSeriesNotFound
	case 1:
	default:
		labels := make([]string, 0, len(complete))
		for _, row := range complete {
			labels = append(labels, cell(row, indexCol))
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousSeries, strings.Join(labels, ", "))
	}
	series := complete[0]

	out := make([]MonthlyInflation, 0, len(cols))
	seen := make(map[period.YearMonth]bool, len(cols))
	for _, c := range cols {
		ym, err := ParseDate(header[c])
		if err != nil {
			return nil, err
		}
		if seen[ym] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMonth, ym)
		}
		seen[ym] = true

		pct, err := parsePercent(cell(series, c))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ym, err)
		}
		out = append(out, MonthlyInflation{Period: ym, Percent: pct})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

// ParseDate reads a period header. Spreadsheet serial dates and the common
// textual layouts are accepted.
func ParseDate(s string) (period.YearMonth, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return period.YearMonth{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return period.YearMonth{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
		}
		return period.FromTime(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return period.FromTime(t), nil
		}
	}

	return period.YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Accumulate returns the running sum of percents as a factor, rounded to
// three decimals.
func Accumulate(percents []decimal.Decimal) []decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	out := make([]decimal.Decimal, len(percents))
	sum := decimal.Zero
	for i, p := range percents {
		sum = sum.Add(p)
		out[i] = sum.Div(hundred).RoundBank(3)
	}
	return out
}

// Index returns the series keyed by month.
func Index(series []MonthlyInflation) map[period.YearMonth]decimal.Decimal {
	idx := make(map[period.YearMonth]decimal.Decimal, len(series))
	for _, m := range series {
		idx[m.Period] = m.Percent
	}
	return idx
}

// findColumn prefers an exact, accent-insensitive match and falls back to the
// closest fuzzy one.
func findColumn(header []string, label string) int {
	best, bestRank := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		rank := fuzzy.RankMatchNormalizedFold(label, h)
		if rank < 0 {
			continue
		}
		if best < 0 || rank < bestRank {
			best, bestRank = i, rank
		}
	}
	return best
}

func selectSeries(rows [][]string, indexCol int, label string) [][]string {
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = cell(row, indexCol)
	}
	idx := findColumn(labels, label)
	if idx < 0 {
		return nil
	}
	return rows[idx : idx+1]
}

func isComplete(row []string, indexCol int, cols []int) bool {
	if cell(row, indexCol) == "" {
		return false
	}
	for _, c := range cols {
		if cell(row, c) == "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}
	d, err := money.ParseAmount(s, true)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q", ErrInvalidPercent, s)
	}
	return d, nil
}
