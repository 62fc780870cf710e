package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
	"github.com/FACorreiaa/salary-insights/pkg/money"
)

// CSVRow is one line of the exported table. Absent values are empty cells.
type CSVRow struct {
	Year           string `csv:"Year"`
	Month          string `csv:"Month"`
	SalaryARS      string `csv:"Salary_ARS"`
	ExchangeRate   string `csv:"exchange_rate"`
	YearMonth      string `csv:"YearMonth"`
	SalaryUSD      string `csv:"Salary_USD"`
	HourlyRate     string `csv:"Hourly_rate"`
	InflationPct   string `csv:"Inflation_pct"`
	InflationAccum string `csv:"Inflation_accum"`
	SalaryARSReal  string `csv:"Salary_ARS_Real"`
}

// CSVRows flattens the table in its order.
func CSVRows(table *analysis.Table) []CSVRow {
	out := make([]CSVRow, 0, table.Len())
	for _, r := range table.Rows {
		out = append(out, CSVRow{
			Year:           r.Year,
			Month:          r.Month,
			SalaryARS:      formatMoney(r.SalaryLocal),
			ExchangeRate:   formatDecimal(r.ExchangeRate),
			YearMonth:      r.YearMonth.String(),
			SalaryUSD:      formatMoney(r.SalaryUSD),
			HourlyRate:     formatMoney(r.HourlyRate),
			InflationPct:   formatDecimal(r.InflationPct),
			InflationAccum: formatDecimal(r.InflationAccum),
			SalaryARSReal:  formatMoney(r.SalaryLocalReal),
		})
	}
	return out
}

// WriteCSV exports the table with the given field delimiter.
func WriteCSV(w io.Writer, table *analysis.Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}

	rows := CSVRows(table)
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func formatMoney(m *money.Money) string {
	if m == nil {
		return ""
	}
	return m.String()
}

func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
