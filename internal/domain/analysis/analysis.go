// Package analysis joins payslips with exchange rates and inflation by month
// and derives the dollar and inflation-adjusted figures.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/salary-insights/internal/domain/inflation"
	"github.com/FACorreiaa/salary-insights/internal/domain/payroll"
	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/internal/domain/rates"
	"github.com/FACorreiaa/salary-insights/pkg/money"
)

// Policy decides what happens to months without inflation data.
type Policy string

const (
	// PolicyDrop removes those months from the table.
	PolicyDrop Policy = "drop"
	// PolicyKeep keeps them with no inflation, factor or real salary.
	PolicyKeep Policy = "keep"
)

var (
	ErrNoPayslips    = errors.New("no payslips to analyse")
	ErrInvalidPolicy = errors.New("invalid inflation policy")
	ErrEmptyTable    = errors.New("no month left after joining")
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyDrop, PolicyKeep:
		return p, nil
	case "":
		return PolicyDrop, nil
	default:
		return "", fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidPolicy, s, PolicyDrop, PolicyKeep)
	}
}

// Options tune the derivations.
type Options struct {
	MonthlyHours decimal.Decimal
	Policy       Policy
}

// DefaultOptions returns 160 monthly hours and the drop policy.
func DefaultOptions() Options {
	return Options{MonthlyHours: DefaultMonthlyHours, Policy: PolicyDrop}
}

// Row is one month of the final table. Nil fields are absent values.
type Row struct {
	Year            string
	Month           string
	YearMonth       period.YearMonth
	Source          string
	SalaryLocal     *money.Money
	ExchangeRate    *decimal.Decimal
	SalaryUSD       *money.Money
	HourlyRate      *money.Money
	InflationPct    *decimal.Decimal
	InflationAccum  *decimal.Decimal
	SalaryLocalReal *money.Money
}

// Table is the joined result, ascending by month.
type Table struct {
	Rows             []Row
	Currency         string
	Policy           Policy
	MissingRates     []period.YearMonth
	MissingInflation []period.YearMonth
}

// Len returns the number of months in the table.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Periods returns the month keys in table order.
func (t *Table) Periods() []period.YearMonth {
	out := make([]period.YearMonth, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.YearMonth
	}
	return out
}

// Column names of the working frames.
const (
	colYear      = "Year"
	colMonth     = "Month"
	colYearMonth = "YearMonth"
	colSource    = "Source"
	colSalary    = "Salary"
	colRate      = "Rate"
	colInflation = "Inflation"
)

// Build joins payslips with rates on (year, month), then with inflation on the
// month key according to the policy, sorts ascending and derives every metric.
func Build(payslips []payroll.Payslip, monthlyRates []rates.MonthlyRate, monthly []inflation.MonthlyInflation, opts Options) (*Table, error) {
	if len(payslips) == 0 {
		return nil, ErrNoPayslips
	}
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	if opts.MonthlyHours.IsZero() {
		opts.MonthlyHours = DefaultMonthlyHours
	}

	currency := payslips[0].Salary.Currency()

	salaries, err := salaryFrame(payslips)
	if err != nil {
		return nil, err
	}

	withRates, err := joinRates(salaries, monthlyRates)
	if err != nil {
		return nil, err
	}

	joined, missingInflation, err := joinInflation(withRates, monthly, policy)
	if err != nil {
		return nil, err
	}

	if joined.Nrow() == 0 {
		return nil, fmt.Errorf("%w: %d months lack inflation data", ErrEmptyTable, len(missingInflation))
	}

	joined = joined.Arrange(dataframe.Sort(colYearMonth))
	if joined.Err != nil {
		return nil, fmt.Errorf("failed to sort table: %w", joined.Err)
	}

	rows, err := readRows(joined, currency)
	if err != nil {
		return nil, err
	}

	derive(rows, opts.MonthlyHours)
	table := &Table{
		Rows:             rows,
		Currency:         currency,
		Policy:           policy,
		MissingInflation: missingInflation,
	}
	for _, r := range rows {
		if r.ExchangeRate == nil {
			table.MissingRates = append(table.MissingRates, r.YearMonth)
		}
	}

	return table, nil
}

// derive fills the dollar figures and the running inflation factor. The
// factor only advances on months that carry inflation.
func derive(rows []Row, hours decimal.Decimal) {
	var (
		withInflation []int
		percents      []decimal.Decimal
	)
	for i := range rows {
		r := &rows[i]
		if r.ExchangeRate != nil {
			r.SalaryUSD, r.HourlyRate = DeriveUSD(r.SalaryLocal, *r.ExchangeRate, hours)
		}
		if r.InflationPct != nil {
			withInflation = append(withInflation, i)
			percents = append(percents, *r.InflationPct)
		}
	}

	for k, factor := range inflation.Accumulate(percents) {
		r := &rows[withInflation[k]]
		r.InflationAccum = &factor
		r.SalaryLocalReal = RealSalary(r.SalaryLocal, factor)
	}
}

func salaryFrame(payslips []payroll.Payslip) (dataframe.DataFrame, error) {
	records := [][]string{{colYear, colMonth, colYearMonth, colSource, colSalary}}
	seen := make(map[period.YearMonth]string, len(payslips))
	for _, p := range payslips {
		ym, err := p.Period()
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("payslip %s: %w", p.Source, err)
		}
		if other, dup := seen[ym]; dup {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s in %s and %s", payroll.ErrDuplicatePeriod, ym, other, p.Source)
		}
		seen[ym] = p.Source
		records = append(records, []string{p.Year, p.Month, ym.String(), p.Source, p.Salary.ToDecimal().String()})
	}
	return load(records)
}

func joinRates(salaries dataframe.DataFrame, monthlyRates []rates.MonthlyRate) (dataframe.DataFrame, error) {
	if len(monthlyRates) == 0 {
		return salaries.Mutate(absent(colRate, salaries.Nrow())), nil
	}

	records := [][]string{{colYear, colMonth, colRate}}
	seen := make(map[string]bool, len(monthlyRates))
	for _, r := range monthlyRates {
		key := r.Year + r.Month
		if seen[key] {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s", rates.ErrDuplicateRate, key)
		}
		seen[key] = true
		records = append(records, []string{r.Year, r.Month, r.Rate.String()})
	}

	right, err := load(records)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	joined := salaries.LeftJoin(right, colYear, colMonth)
	if joined.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to join exchange rates: %w", joined.Err)
	}
	return joined, nil
}

func joinInflation(left dataframe.DataFrame, monthly []inflation.MonthlyInflation, policy Policy) (dataframe.DataFrame, []period.YearMonth, error) {
	idx := inflation.Index(monthly)

	var missing []period.YearMonth
	for _, key := range left.Col(colYearMonth).Records() {
		ym, err := period.Parse(key)
		if err != nil {
			return dataframe.DataFrame{}, nil, err
		}
		if _, ok := idx[ym]; !ok {
			missing = append(missing, ym)
		}
	}
	period.Sort(missing)

	if len(monthly) == 0 {
		if policy == PolicyDrop {
			return dataframe.DataFrame{}, missing, nil
		}
		return left.Mutate(absent(colInflation, left.Nrow())), missing, nil
	}

	records := [][]string{{colYearMonth, colInflation}}
	for _, m := range monthly {
		records = append(records, []string{m.Period.String(), m.Percent.String()})
	}
	right, err := load(records)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}

	var joined dataframe.DataFrame
	if policy == PolicyKeep {
		joined = left.LeftJoin(right, colYearMonth)
	} else {
		joined = left.InnerJoin(right, colYearMonth)
	}
	if joined.Err != nil {
		return dataframe.DataFrame{}, nil, fmt.Errorf("failed to join inflation: %w", joined.Err)
	}
	return joined, missing, nil
}

func readRows(df dataframe.DataFrame, currency string) ([]Row, error) {
	years := df.Col(colYear).Records()
	months := df.Col(colMonth).Records()
	keys := df.Col(colYearMonth).Records()
	sources := df.Col(colSource).Records()
	salaries := df.Col(colSalary).Records()
	rateCol, inflationCol := df.Col(colRate), df.Col(colInflation)
	rateVals, rateNaN := rateCol.Records(), rateCol.IsNaN()
	inflVals, inflNaN := inflationCol.Records(), inflationCol.IsNaN()

	rows := make([]Row, df.Nrow())
	for i := range rows {
		ym, err := period.Parse(keys[i])
		if err != nil {
			return nil, err
		}
		salary, err := decimal.NewFromString(salaries[i])
		if err != nil {
			return nil, fmt.Errorf("%s: salary %q: %w", keys[i], salaries[i], err)
		}

		rows[i] = Row{
			Year:        years[i],
			Month:       months[i],
			YearMonth:   ym,
			Source:      sources[i],
			SalaryLocal: money.NewFromDecimal(salary, currency),
		}
		if rows[i].ExchangeRate, err = optionalDecimal(rateVals[i], rateNaN[i]); err != nil {
			return nil, fmt.Errorf("%s: rate: %w", keys[i], err)
		}
		if rows[i].InflationPct, err = optionalDecimal(inflVals[i], inflNaN[i]); err != nil {
			return nil, fmt.Errorf("%s: inflation: %w", keys[i], err)
		}
	}
	return rows, nil
}

// optionalDecimal maps gota's missing markers to nil. A NaN cell copied by a
// later join arrives as the text "NaN" with its NaN flag cleared.
func optionalDecimal(s string, nan bool) (*decimal.Decimal, error) {
	if nan || s == "" || s == "NaN" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// load builds an all-string frame so that keys such as "01" keep their padding.
func load(records [][]string) (dataframe.DataFrame, error) {
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to load frame: %w", df.Err)
	}
	return df, nil
}

func absent(name string, n int) series.Series {
	values := make([]interface{}, n)
	return series.New(values, series.String, name)
}
