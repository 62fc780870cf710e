package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/salary-insights/internal/domain/inflation"
	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/internal/domain/rates"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		payslipDir string
		template   string
		reportDir  string
		policy     string
		summaryPDF bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline and write the charts and the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.deps.Config
			flags := cmd.Flags()
			if flags.Changed("payslips") {
				cfg.Payroll.Dir = payslipDir
			}
			if flags.Changed("template") {
				cfg.Payroll.TemplatePath = template
			}
			if flags.Changed("out") {
				cfg.Report.Dir = reportDir
			}
			if flags.Changed("policy") {
				cfg.Analysis.JoinPolicy = policy
			}
			if flags.Changed("pdf") {
				cfg.Report.SummaryPDF = summaryPDF
			}

			p, err := a.deps.Pipeline()
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}

			// List what the store recorded for this run.
			manifest, err := a.deps.Storage.List(cmd.Context(), res.RunID)
			if err != nil {
				return fmt.Errorf("failed to read run manifest: %w", err)
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"run_id":            res.RunID,
					"months":            res.Table.Len(),
					"missing_rates":     periodKeys(res.Table.MissingRates),
					"missing_inflation": periodKeys(res.Table.MissingInflation),
					"files":             manifest,
				})
			}
			for _, f := range manifest {
				fmt.Fprintln(cmd.OutOrStdout(), f.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payslipDir, "payslips", "", "payslip directory (overrides PAYSLIP_DIR)")
	cmd.Flags().StringVar(&template, "template", "", "payslip template JSON (overrides PAYSLIP_TEMPLATE)")
	cmd.Flags().StringVar(&reportDir, "out", "", "report directory (overrides REPORT_DIR)")
	cmd.Flags().StringVar(&policy, "policy", "", "inflation join policy: drop or keep (overrides INFLATION_JOIN_POLICY)")
	cmd.Flags().BoolVar(&summaryPDF, "pdf", false, "also write a PDF summary (overrides REPORT_PDF)")
	return cmd
}

func newPayslipsCmd(a *app) *cobra.Command {
	var (
		payslipDir string
		template   string
		glob       string
	)

	cmd := &cobra.Command{
		Use:   "payslips",
		Short: "Print the salaries extracted from the payslip documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.deps.Config
			flags := cmd.Flags()
			if flags.Changed("dir") {
				cfg.Payroll.Dir = payslipDir
			}
			if flags.Changed("template") {
				cfg.Payroll.TemplatePath = template
			}
			if flags.Changed("glob") {
				cfg.Payroll.Glob = glob
			}

			if err := a.deps.initPayroll(); err != nil {
				return err
			}
			payslips, err := a.deps.Payslips.Extract(cmd.Context())
			if err != nil {
				return err
			}

			type view struct {
				Source string `json:"source"`
				Year   string `json:"year"`
				Month  string `json:"month"`
				Salary string `json:"salary"`
			}
			out := make([]view, len(payslips))
			for i, p := range payslips {
				out[i] = view{p.Source, p.Year, p.Month, p.Salary.String()}
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			return printTable(cmd.OutOrStdout(), []string{"SOURCE", "YEAR", "MONTH", "SALARY"}, len(out), func(i int) []string {
				return []string{out[i].Source, out[i].Year, out[i].Month, out[i].Salary}
			})
		},
	}

	cmd.Flags().StringVar(&payslipDir, "dir", "", "payslip directory (overrides PAYSLIP_DIR)")
	cmd.Flags().StringVar(&template, "template", "", "payslip template JSON (overrides PAYSLIP_TEMPLATE)")
	cmd.Flags().StringVar(&glob, "glob", "", "payslip file pattern (overrides PAYSLIP_GLOB)")
	return cmd
}

func newRatesCmd(a *app) *cobra.Command {
	var (
		year string
		url  string
	)

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Print the monthly exchange-rate history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("url") {
				a.deps.Config.Sources.RatesURL = url
			}

			a.deps.initRates()
			monthly, err := a.deps.Rates.Load(cmd.Context())
			if err != nil {
				return err
			}
			if year != "" {
				monthly = rates.ForYear(monthly, year)
			}

			type view struct {
				Year  string `json:"year"`
				Month string `json:"month"`
				Rate  string `json:"rate"`
			}
			out := make([]view, len(monthly))
			for i, r := range monthly {
				out[i] = view{r.Year, r.Month, r.Rate.String()}
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			return printTable(cmd.OutOrStdout(), []string{"YEAR", "MONTH", "RATE"}, len(out), func(i int) []string {
				return []string{out[i].Year, out[i].Month, out[i].Rate}
			})
		},
	}

	cmd.Flags().StringVar(&year, "year", "", "only print this year (YYYY)")
	cmd.Flags().StringVar(&url, "url", "", "rate page URL (overrides RATES_URL)")
	return cmd
}

func newInflationCmd(a *app) *cobra.Command {
	var (
		url    string
		series string
	)

	cmd := &cobra.Command{
		Use:   "inflation",
		Short: "Print the monthly inflation series and its cumulative factor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.deps.Config
			if cmd.Flags().Changed("url") {
				cfg.Sources.InflationURL = url
			}
			if cmd.Flags().Changed("series") {
				cfg.Inflation.SeriesLabel = series
			}

			a.deps.initInflation()
			monthly, err := a.deps.Inflation.Load(cmd.Context())
			if err != nil {
				return err
			}

			type view struct {
				Period     string `json:"period"`
				Percent    string `json:"percent"`
				Cumulative string `json:"cumulative"`
			}
			out := make([]view, len(monthly))
			for i, m := range monthly {
				out[i] = view{Period: m.Period.String(), Percent: m.Percent.String()}
			}
			for i, factor := range inflationFactors(monthly) {
				out[i].Cumulative = factor
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			return printTable(cmd.OutOrStdout(), []string{"PERIOD", "PERCENT", "CUMULATIVE"}, len(out), func(i int) []string {
				return []string{out[i].Period, out[i].Percent, out[i].Cumulative}
			})
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "workbook URL (overrides INFLATION_URL)")
	cmd.Flags().StringVar(&series, "series", "", "row label to use when several are complete (overrides INFLATION_SERIES_LABEL)")
	return cmd
}

func printTable(w io.Writer, header []string, n int, row func(int) []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i := 0; i < n; i++ {
		fmt.Fprintln(tw, strings.Join(row(i), "\t"))
	}
	return tw.Flush()
}

func inflationFactors(monthly []inflation.MonthlyInflation) []string {
	percents := make([]decimal.Decimal, len(monthly))
	for i, m := range monthly {
		percents[i] = m.Percent
	}

	factors := inflation.Accumulate(percents)
	out := make([]string, len(factors))
	for i, f := range factors {
		out[i] = f.StringFixed(3)
	}
	return out
}

func periodKeys(ps []period.YearMonth) []string {
	out := make([]string, len(ps))
	for i, ym := range ps {
		out[i] = ym.String()
	}
	return out
}
