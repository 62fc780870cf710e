package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/salary-insights/internal/domain/inflation"
	"github.com/FACorreiaa/salary-insights/internal/domain/payroll"
	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/internal/domain/rates"
	"github.com/FACorreiaa/salary-insights/pkg/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func payslip(key string, units int64) payroll.Payslip {
	return payroll.Payslip{
		Source: key + ".pdf",
		Year:   key[:4],
		Month:  key[4:],
		Salary: money.New(units*100, money.ARS),
	}
}

func rate(key, quote string) rates.MonthlyRate {
	return rates.MonthlyRate{Year: key[:4], Month: key[4:], Rate: dec(quote)}
}

func monthly(t *testing.T, key, pct string) inflation.MonthlyInflation {
	t.Helper()
	ym, err := period.Parse(key)
	require.NoError(t, err)
	return inflation.MonthlyInflation{Period: ym, Percent: dec(pct)}
}

func keys(table *Table) []string {
	out := make([]string, 0, table.Len())
	for _, p := range table.Periods() {
		out = append(out, p.String())
	}
	return out
}

func TestDeriveUSD(t *testing.T) {
	usd, hourly := DeriveUSD(money.New(16000000, money.ARS), dec("200"), DefaultMonthlyHours)
	require.NotNil(t, usd)
	require.NotNil(t, hourly)
	assert.Equal(t, int64(80000), usd.Amount())
	assert.Equal(t, money.USD, usd.Currency())
	assert.Equal(t, int64(500), hourly.Amount())

	usd, hourly = DeriveUSD(money.New(10000000, money.ARS), dec("300"), dec("160"))
	assert.Equal(t, "333.33", usd.String())
	assert.Equal(t, "2.08", hourly.String())

	usd, hourly = DeriveUSD(money.New(100, money.ARS), decimal.Zero, DefaultMonthlyHours)
	assert.Nil(t, usd)
	assert.Nil(t, hourly)

	usd, hourly = DeriveUSD(money.New(100, money.ARS), dec("2"), decimal.Zero)
	assert.NotNil(t, usd)
	assert.Nil(t, hourly)
}

func TestRealSalary(t *testing.T) {
	tests := []struct {
		salary int64
		factor string
		want   int64
	}{
		{100000, "0.10", 90000},
		{100000, "0", 100000},
		{150500, "0.153", 127474},
		{5, "0.5", 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d x %s", tt.salary, tt.factor), func(t *testing.T) {
			got := RealSalary(money.New(tt.salary*100, money.ARS), dec(tt.factor))
			assert.Equal(t, tt.want*100, got.Amount())
			assert.Equal(t, money.ARS, got.Currency())
		})
	}

	assert.Nil(t, RealSalary(nil, dec("0.1")))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("KEEP")
	require.NoError(t, err)
	assert.Equal(t, PolicyKeep, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyDrop, p)

	_, err = ParsePolicy("interpolate")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestBuild_ThreeMonths(t *testing.T) {
	payslips := []payroll.Payslip{
		payslip("202203", 100000),
		payslip("202201", 100000),
		payslip("202202", 100000),
	}
	quotes := []rates.MonthlyRate{
		rate("202112", "190"),
		rate("202201", "200"),
		rate("202202", "250"),
		rate("202203", "200"),
	}
	series := []inflation.MonthlyInflation{
		monthly(t, "202201", "3.9"),
		monthly(t, "202202", "4.7"),
		monthly(t, "202203", "6.7"),
		monthly(t, "202204", "6.0"),
	}

	table, err := Build(payslips, quotes, series, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"202201", "202202", "202203"}, keys(table))
	assert.Empty(t, table.MissingRates)
	assert.Empty(t, table.MissingInflation)
	assert.Equal(t, money.ARS, table.Currency)

	first := table.Rows[0]
	assert.Equal(t, "2022", first.Year)
	assert.Equal(t, "01", first.Month)
	assert.Equal(t, "202201.pdf", first.Source)
	assert.True(t, first.ExchangeRate.Equal(dec("200")))
	assert.Equal(t, "500.00", first.SalaryUSD.String())
	assert.Equal(t, "3.13", first.HourlyRate.String())

	wantFactors := []string{"0.039", "0.086", "0.153"}
	wantReal := []int64{96100, 91400, 84700}
	for i, r := range table.Rows {
		require.NotNil(t, r.InflationAccum)
		assert.True(t, r.InflationAccum.Equal(dec(wantFactors[i])), "factor %s", r.InflationAccum)
		assert.Equal(t, wantReal[i]*100, r.SalaryLocalReal.Amount())
	}
}

func TestBuild_MissingRatesAreKept(t *testing.T) {
	payslips := []payroll.Payslip{payslip("202201", 160000), payslip("202202", 160000)}
	series := []inflation.MonthlyInflation{monthly(t, "202201", "1"), monthly(t, "202202", "1")}

	table, err := Build(payslips, []rates.MonthlyRate{rate("202201", "200")}, series, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, "800.00", table.Rows[0].SalaryUSD.String())
	assert.Equal(t, "5.00", table.Rows[0].HourlyRate.String())

	missing := table.Rows[1]
	assert.Nil(t, missing.ExchangeRate)
	assert.Nil(t, missing.SalaryUSD)
	assert.Nil(t, missing.HourlyRate)
	assert.NotNil(t, missing.SalaryLocalReal)
	require.Len(t, table.MissingRates, 1)
	assert.Equal(t, "202202", table.MissingRates[0].String())

	table, err = Build(payslips, nil, series, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, table.MissingRates, 2)
}

func TestBuild_RateGapSurvivesInflationJoin(t *testing.T) {
	payslips := []payroll.Payslip{payslip("202201", 100000), payslip("202202", 100000), payslip("202203", 100000)}
	series := []inflation.MonthlyInflation{monthly(t, "202201", "2"), monthly(t, "202202", "2")}

	for _, policy := range []Policy{PolicyDrop, PolicyKeep} {
		t.Run(string(policy), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Policy = policy

			table, err := Build(payslips, []rates.MonthlyRate{rate("202201", "200")}, series, opts)
			require.NoError(t, err)
			require.GreaterOrEqual(t, table.Len(), 2)

			assert.NotNil(t, table.Rows[0].ExchangeRate)
			assert.Nil(t, table.Rows[1].ExchangeRate)
			assert.Nil(t, table.Rows[1].SalaryUSD)
			assert.Equal(t, "0.040", table.Rows[1].InflationAccum.StringFixed(3))

			table, err = Build(payslips, nil, series, opts)
			require.NoError(t, err)
			for _, r := range table.Rows {
				assert.Nil(t, r.ExchangeRate, r.YearMonth.String())
			}
		})
	}
}

func TestBuild_InflationPolicy(t *testing.T) {
	payslips := []payroll.Payslip{
		payslip("202201", 100000),
		payslip("202202", 100000),
		payslip("202203", 100000),
	}
	quotes := []rates.MonthlyRate{rate("202201", "200"), rate("202202", "200"), rate("202203", "200")}
	series := []inflation.MonthlyInflation{monthly(t, "202201", "3.9"), monthly(t, "202203", "6.7")}

	t.Run("drop removes the month", func(t *testing.T) {
		table, err := Build(payslips, quotes, series, Options{Policy: PolicyDrop})
		require.NoError(t, err)

		assert.Equal(t, []string{"202201", "202203"}, keys(table))
		require.Len(t, table.MissingInflation, 1)
		assert.Equal(t, "202202", table.MissingInflation[0].String())
		assert.True(t, table.Rows[1].InflationAccum.Equal(dec("0.106")))
		assert.Equal(t, int64(8940000), table.Rows[1].SalaryLocalReal.Amount())
	})

	t.Run("keep leaves the month without a factor", func(t *testing.T) {
		table, err := Build(payslips, quotes, series, Options{Policy: PolicyKeep})
		require.NoError(t, err)

		assert.Equal(t, []string{"202201", "202202", "202203"}, keys(table))
		assert.Len(t, table.MissingInflation, 1)

		gap := table.Rows[1]
		assert.Nil(t, gap.InflationPct)
		assert.Nil(t, gap.InflationAccum)
		assert.Nil(t, gap.SalaryLocalReal)
		assert.NotNil(t, gap.SalaryUSD)

		assert.True(t, table.Rows[2].InflationAccum.Equal(dec("0.106")))
	})

	t.Run("keep without any inflation", func(t *testing.T) {
		table, err := Build(payslips, quotes, nil, Options{Policy: PolicyKeep})
		require.NoError(t, err)
		assert.Equal(t, 3, table.Len())
		assert.Len(t, table.MissingInflation, 3)
		for _, r := range table.Rows {
			assert.Nil(t, r.InflationAccum)
		}
	})

	t.Run("drop without any inflation", func(t *testing.T) {
		_, err := Build(payslips, quotes, nil, DefaultOptions())
		assert.ErrorIs(t, err, ErrEmptyTable)

		_, err = Build(payslips, quotes, []inflation.MonthlyInflation{monthly(t, "201901", "2")}, DefaultOptions())
		assert.ErrorIs(t, err, ErrEmptyTable)
	})
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, nil, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoPayslips)

	_, err = Build([]payroll.Payslip{payslip("202201", 1), payslip("202201", 2)}, nil, nil, DefaultOptions())
	assert.ErrorIs(t, err, payroll.ErrDuplicatePeriod)

	_, err = Build([]payroll.Payslip{payslip("202201", 1)},
		[]rates.MonthlyRate{rate("202201", "1"), rate("202201", "2")}, nil, DefaultOptions())
	assert.ErrorIs(t, err, rates.ErrDuplicateRate)

	_, err = Build([]payroll.Payslip{payslip("202201", 1)}, nil, nil, Options{Policy: "average"})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

// syntheticMonths returns n consecutive month keys starting at January 2019.
func syntheticMonths(n int) []string {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]string, n)
	for i := range out {
		out[i] = period.FromTime(start.AddDate(0, i, 0)).String()
	}
	return out
}

func TestBuild_LeftJoinNeverAddsRows(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(42)

	for round := 0; round < 20; round++ {
		months := syntheticMonths(24)

		var (
			payslips []payroll.Payslip
			quotes   []rates.MonthlyRate
			series   []inflation.MonthlyInflation
			matched  int
		)
		for _, key := range months {
			payslips = append(payslips, payslip(key, gen.Salary(money.ARS).Amount()/100))
			series = append(series, monthly(t, key, gen.InflationPercent().String()))
			if gen.Bool() {
				quotes = append(quotes, rate(key, gen.Quote(50, 1000).String()))
				matched++
			}
		}
		// Rates outside the payroll timeline must not create rows.
		quotes = append(quotes, rate("201812", "40"), rate("203001", "9000"))

		table, err := Build(payslips, quotes, series, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, len(payslips), table.Len())
		assert.Len(t, table.MissingRates, len(payslips)-matched)

		seen := make(map[string]bool)
		for i, r := range table.Rows {
			assert.False(t, seen[r.YearMonth.String()], "duplicate %s", r.YearMonth)
			seen[r.YearMonth.String()] = true

			if i > 0 {
				prev := table.Rows[i-1]
				assert.True(t, prev.YearMonth.Before(r.YearMonth))
				assert.True(t, r.InflationAccum.GreaterThanOrEqual(*prev.InflationAccum))
			}
		}
	}
}

func TestBuild_AllRatesMatch(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(3)
	months := syntheticMonths(36)

	var (
		payslips []payroll.Payslip
		quotes   []rates.MonthlyRate
		series   []inflation.MonthlyInflation
	)
	for _, key := range months {
		payslips = append(payslips, payslip(key, gen.Salary(money.ARS).Amount()/100))
		quotes = append(quotes, rate(key, gen.Quote(50, 1000).String()))
		series = append(series, monthly(t, key, gen.InflationPercent().String()))
	}

	table, err := Build(payslips, quotes, series, Options{Policy: PolicyKeep})
	require.NoError(t, err)
	assert.Equal(t, len(months), table.Len())
	assert.Empty(t, table.MissingRates)
	for _, r := range table.Rows {
		assert.NotNil(t, r.SalaryUSD)
		assert.NotNil(t, r.HourlyRate)
	}
}
