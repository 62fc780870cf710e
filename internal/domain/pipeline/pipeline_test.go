package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
	"github.com/FACorreiaa/salary-insights/internal/domain/inflation"
	"github.com/FACorreiaa/salary-insights/internal/domain/payroll"
	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/internal/domain/rates"
	"github.com/FACorreiaa/salary-insights/internal/domain/report"
	"github.com/FACorreiaa/salary-insights/pkg/money"
	"github.com/FACorreiaa/salary-insights/pkg/storage"
)

type fakeRates struct {
	out []rates.MonthlyRate
	err error
}

func (f *fakeRates) Load(context.Context) ([]rates.MonthlyRate, error) { return f.out, f.err }

type fakePayslips struct {
	out []payroll.Payslip
	err error
}

func (f *fakePayslips) Extract(context.Context) ([]payroll.Payslip, error) { return f.out, f.err }

type fakeInflation struct {
	out []inflation.MonthlyInflation
	err error
}

func (f *fakeInflation) Load(context.Context) ([]inflation.MonthlyInflation, error) {
	return f.out, f.err
}

type fakeReport struct {
	calls int
	runID uuid.UUID
	table *analysis.Table
}

func (f *fakeReport) Write(_ context.Context, runID uuid.UUID, table *analysis.Table) ([]*storage.FileInfo, error) {
	f.calls++
	f.runID = runID
	f.table = table
	return []*storage.FileInfo{{Name: report.FileTable, RunID: runID}}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func payslip(year, month string, ars int64) payroll.Payslip {
	return payroll.Payslip{
		Source: year + "-" + month + ".pdf",
		Year:   year,
		Month:  month,
		Salary: money.New(ars*100, money.ARS),
	}
}

func monthlyInflation(t *testing.T, key, pct string) inflation.MonthlyInflation {
	t.Helper()
	ym, err := period.Parse(key)
	require.NoError(t, err)
	return inflation.MonthlyInflation{Period: ym, Percent: decimal.RequireFromString(pct)}
}

func sources(t *testing.T) (*fakeRates, *fakePayslips, *fakeInflation) {
	return &fakeRates{out: []rates.MonthlyRate{
			{Year: "2022", Month: "01", Rate: decimal.NewFromInt(200)},
			{Year: "2022", Month: "02", Rate: decimal.NewFromInt(200)},
		}},
		&fakePayslips{out: []payroll.Payslip{
			payslip("2022", "01", 100000),
			payslip("2022", "02", 100000),
			payslip("2022", "03", 100000),
		}},
		&fakeInflation{out: []inflation.MonthlyInflation{
			monthlyInflation(t, "202201", "3.9"),
			monthlyInflation(t, "202202", "4.7"),
			monthlyInflation(t, "202203", "6.7"),
		}}
}

func TestPipeline_Run(t *testing.T) {
	rateSrc, payslipSrc, inflationSrc := sources(t)
	writer := &fakeReport{}
	textfile := filepath.Join(t.TempDir(), "salary.prom")

	p := New(rateSrc, payslipSrc, inflationSrc, writer, Config{MetricsTextfile: textfile}, discardLogger())
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Payslips)
	assert.Equal(t, 2, res.Rates)
	assert.Equal(t, 3, res.Inflation)
	assert.True(t, res.RatesStale)
	require.Len(t, res.Files, 1)

	require.Len(t, res.Stages, 5)
	for i, name := range []string{StageRates, StagePayslips, StageInflation, StageAnalysis, StageReport} {
		assert.Equal(t, name, res.Stages[i].Stage)
	}

	assert.Equal(t, 1, writer.calls)
	assert.Equal(t, res.RunID, writer.runID)
	require.Equal(t, 3, writer.table.Len())
	assert.Equal(t, []string{"202203"}, periodStrings(writer.table.MissingRates))
	assert.Nil(t, writer.table.Rows[2].SalaryUSD)
	assert.Equal(t, "0.153", writer.table.Rows[2].InflationAccum.String())

	m := p.Metrics()
	assert.Equal(t, 3.0, testutil.ToFloat64(m.payslips))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.missingRates))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.missingInflation))

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "salary_insights_payslips_extracted 3")
	assert.Contains(t, string(data), `salary_insights_stage_duration_seconds{stage="report"}`)
}

func TestPipeline_DropsMonthsWithoutInflation(t *testing.T) {
	rateSrc, payslipSrc, inflationSrc := sources(t)
	inflationSrc.out = inflationSrc.out[:2]
	writer := &fakeReport{}

	p := New(rateSrc, payslipSrc, inflationSrc, writer, Config{}, discardLogger())
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Table.Len())
	assert.Equal(t, []string{"202203"}, periodStrings(res.Table.MissingInflation))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().missingInflation))
}

func TestPipeline_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(*fakeRates, *fakePayslips, *fakeInflation)
		stage string
		want  error
	}{
		{
			name:  "rates",
			setup: func(r *fakeRates, _ *fakePayslips, _ *fakeInflation) { r.err = boom },
			stage: StageRates,
			want:  boom,
		},
		{
			name:  "payslips",
			setup: func(_ *fakeRates, p *fakePayslips, _ *fakeInflation) { p.err = payroll.ErrNoDocuments },
			stage: StagePayslips,
			want:  payroll.ErrNoDocuments,
		},
		{
			name:  "inflation",
			setup: func(_ *fakeRates, _ *fakePayslips, i *fakeInflation) { i.err = boom },
			stage: StageInflation,
			want:  boom,
		},
		{
			name:  "nothing left after drop",
			setup: func(_ *fakeRates, _ *fakePayslips, i *fakeInflation) { i.out = nil },
			stage: StageAnalysis,
			want:  analysis.ErrEmptyTable,
		},
		{
			name: "duplicate payslip month",
			setup: func(_ *fakeRates, p *fakePayslips, _ *fakeInflation) {
				p.out = append(p.out, payslip("2022", "01", 1))
			},
			stage: StageAnalysis,
			want:  payroll.ErrDuplicatePeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rateSrc, payslipSrc, inflationSrc := sources(t)
			tt.setup(rateSrc, payslipSrc, inflationSrc)
			writer := &fakeReport{}

			p := New(rateSrc, payslipSrc, inflationSrc, writer, Config{}, discardLogger())
			res, err := p.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.Zero(t, writer.calls)
			assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().stageFailures.WithLabelValues(tt.stage)))
		})
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	rateSrc, payslipSrc, inflationSrc := sources(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(rateSrc, payslipSrc, inflationSrc, &fakeReport{}, Config{}, discardLogger()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_WritesReport(t *testing.T) {
	rateSrc, payslipSrc, inflationSrc := sources(t)
	rateSrc.out = append(rateSrc.out, rates.MonthlyRate{Year: "2022", Month: "03", Rate: decimal.NewFromInt(250)})

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	writer := report.NewReporter(store, report.DefaultConfig(), discardLogger())

	opts := analysis.DefaultOptions()
	opts.Policy = analysis.PolicyKeep
	res, err := New(rateSrc, payslipSrc, inflationSrc, writer, Config{Analysis: opts}, discardLogger()).
		Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.RatesStale)
	require.Len(t, res.Files, 3)

	for _, name := range []string{report.FileUSDChart, report.FileRealChart, report.FileTable} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	listed, err := store.List(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}
