// Package rates loads the historical peso/dollar quote table and reshapes it
// from one row per year into one record per month.
package rates

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/pkg/money"
)

// dataColumns is Year, an unused column and the twelve months.
const dataColumns = 14

var (
	// ErrTableNotFound means the page no longer has a table at the configured index.
	ErrTableNotFound = errors.New("exchange rate table not found")
	// ErrUnexpectedShape means the table is there but its layout changed.
	ErrUnexpectedShape = errors.New("exchange rate table has unexpected shape")
	// ErrDuplicateRate means the same month appears twice.
	ErrDuplicateRate = errors.New("duplicate exchange rate month")
	// ErrNonPositiveRate rejects zero or negative quotes.
	ErrNonPositiveRate = errors.New("exchange rate must be positive")
)

// monthColumns are the names assigned to the month cells, in table order.
var monthColumns = []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}

// MonthlyRate is one observation: local currency units per US dollar.
type MonthlyRate struct {
	Year  string
	Month string
	Rate  decimal.Decimal
}

// Period returns the normalized month key of the observation.
func (r MonthlyRate) Period() (period.YearMonth, error) {
	return period.FromParts(r.Year, r.Month)
}

// CellError reports a cell whose value could not be turned into a rate.
type CellError struct {
	Year  string
	Month string
	Value string
	Err   error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("rate %s-%s %q: %v", e.Year, e.Month, e.Value, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// ParseRate converts a currency-formatted quote such as "$98,50" or
// "$1.234,56" into a decimal.
func ParseRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := money.ParseAmount(s, true)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNonPositiveRate
	}
	return d, nil
}

// ParseTables reads an HTML document, selects the table at tableIndex and
// returns one record per observed month, ordered by period.
func ParseTables(r io.Reader, tableIndex int) ([]MonthlyRate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rates page: %w", err)
	}

	tables := doc.Find("table")
	if tableIndex < 0 || tableIndex >= tables.Length() {
		return nil, fmt.Errorf("%w: index %d, page has %d tables", ErrTableNotFound, tableIndex, tables.Length())
	}

	var rows [][]string
	tables.Eq(tableIndex).Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := make([]string, 0, dataColumns)
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		rows = append(rows, cells)
	})

	return Melt(rows)
}

// Melt turns wide rows (Year, unused, 01..12) into long records. Rows whose
// first cell is not a year are treated as headers and skipped. Empty cells and
// missing trailing cells are dropped.
func Melt(rows [][]string) ([]MonthlyRate, error) {
	var (
		out      []MonthlyRate
		dataRows int
		seen     = make(map[string]struct{})
	)

	for i, row := range rows {
		if len(row) == 0 || !isYear(row[0]) {
			continue
		}
		// The current year may be published without its trailing months.
		if len(row) < 2 || len(row) > dataColumns {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrUnexpectedShape, i, len(row), dataColumns)
		}
		dataRows++

		year := row[0]
		for m, month := range monthColumns {
			if m+2 >= len(row) {
				break
			}
			value := row[m+2]
			if isMissing(value) {
				continue
			}

			rate, err := ParseRate(value)
			if err != nil {
				return nil, &CellError{Year: year, Month: month, Value: value, Err: err}
			}

			key := year + month
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("%w: %s-%s", ErrDuplicateRate, year, month)
			}
			seen[key] = struct{}{}

			out = append(out, MonthlyRate{Year: year, Month: month, Rate: rate})
		}
	}

	if dataRows == 0 {
		return nil, fmt.Errorf("%w: no year rows", ErrUnexpectedShape)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})

	return out, nil
}

// Latest returns the most recent observation.
func Latest(rates []MonthlyRate) (MonthlyRate, bool) {
	if len(rates) == 0 {
		return MonthlyRate{}, false
	}
	latest := rates[0]
	for _, r := range rates[1:] {
		if r.Year > latest.Year || (r.Year == latest.Year && r.Month > latest.Month) {
			latest = r
		}
	}
	return latest, true
}

// ForYear returns the observations of a single year.
func ForYear(rates []MonthlyRate, year string) []MonthlyRate {
	var out []MonthlyRate
	for _, r := range rates {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1900
}

func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "-", "—", "s/d", "nan", "NaN":
		return true
	}
	return false
}
