package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
)

// summaryColumns are the table columns printed in the summary document.
var summaryColumns = []string{
	"YearMonth", "Salary_ARS", "exchange_rate", "Salary_USD",
	"Hourly_rate", "Inflation_pct", "Inflation_accum", "Salary_ARS_Real",
}

// SummaryPDF bundles both charts and the joined table into one landscape
// document.
func SummaryPDF(table *analysis.Table, usdChart, realChart []byte) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Salary analysis", false)
	pdf.SetAutoPageBreak(true, 15)

	imageOpts := gofpdf.ImageOptions{ImageType: "JPG"}
	for _, chart := range []struct {
		name  string
		title string
		data  []byte
	}{
		{"usd", TitleUSD, usdChart},
		{"real", TitleReal, realChart},
	} {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.Cell(0, 10, chart.title)
		pdf.Ln(14)

		pdf.RegisterImageOptionsReader(chart.name, imageOpts, bytes.NewReader(chart.data))
		pdf.ImageOptions(chart.name, 10, pdf.GetY(), 277, 0, false, imageOpts, 0, "")
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 9)
	width := 277.0 / float64(len(summaryColumns))
	for _, col := range summaryColumns {
		pdf.CellFormat(width, 7, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range CSVRows(table) {
		for _, v := range []string{
			row.YearMonth, row.SalaryARS, row.ExchangeRate, row.SalaryUSD,
			row.HourlyRate, row.InflationPct, row.InflationAccum, row.SalaryARSReal,
		} {
			pdf.CellFormat(width, 6, v, "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render summary pdf: %w", err)
	}
	return buf.Bytes(), nil
}
