package report

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
)

// Marker classifies a point against the mean of its series.
type Marker int

const (
	// AtOrBelowMean is drawn as a red cross.
	AtOrBelowMean Marker = iota
	// AboveMean is drawn as a green circle.
	AboveMean
)

// Stats summarises the dollar salary series.
type Stats struct {
	Min   decimal.Decimal
	Max   decimal.Decimal
	Mean  decimal.Decimal
	Count int
}

// SummarizeUSD returns min, max and mean over the months that have a dollar
// salary. ok is false when none has.
func SummarizeUSD(table *analysis.Table) (stats Stats, ok bool) {
	sum := decimal.Zero
	for _, r := range table.Rows {
		if r.SalaryUSD == nil {
			continue
		}
		v := r.SalaryUSD.ToDecimal()
		if stats.Count == 0 || v.LessThan(stats.Min) {
			stats.Min = v
		}
		if stats.Count == 0 || v.GreaterThan(stats.Max) {
			stats.Max = v
		}
		sum = sum.Add(v)
		stats.Count++
	}
	if stats.Count == 0 {
		return Stats{}, false
	}

	stats.Mean = sum.Div(decimal.NewFromInt(int64(stats.Count)))
	return stats, true
}

// Classify reports whether value sits strictly above the mean.
func Classify(value, mean decimal.Decimal) Marker {
	if value.GreaterThan(mean) {
		return AboveMean
	}
	return AtOrBelowMean
}
