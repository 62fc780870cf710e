package analysis

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/salary-insights/pkg/money"
)

// DefaultMonthlyHours is the full-time workload used for the hourly rate.
var DefaultMonthlyHours = decimal.NewFromInt(160)

// DeriveUSD converts a local salary with a quote of local units per dollar and
// spreads it over the monthly hours. Both results are nil for a non-positive
// quote or non-positive hours.
func DeriveUSD(salary *money.Money, quote, hours decimal.Decimal) (usd, hourly *money.Money) {
	if salary == nil || !quote.IsPositive() {
		return nil, nil
	}

	usd = salary.ConvertQuoted(money.USD, quote)
	if !hours.IsPositive() {
		return usd, nil
	}

	// Hourly is derived from the unrounded conversion.
	perHour := salary.ToDecimal().Div(quote).Div(hours)
	return usd, money.NewFromDecimal(perHour, money.USD)
}

// RealSalary discounts salary by a cumulative inflation factor and rounds it
// to whole units, ties to even.
func RealSalary(salary *money.Money, factor decimal.Decimal) *money.Money {
	if salary == nil {
		return nil
	}
	adjusted := salary.ToDecimal().Mul(decimal.NewFromInt(1).Sub(factor)).RoundBank(0)
	return money.NewFromDecimal(adjusted, salary.Currency())
}
