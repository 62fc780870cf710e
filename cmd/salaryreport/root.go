package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/salary-insights/pkg/config"
)

// app is shared by every subcommand once the root pre-run has loaded the
// configuration.
type app struct {
	envFiles []string
	logLevel string
	asJSON   bool

	deps *Dependencies
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "salaryreport",
		Short:         "Salary analysis in US dollars and inflation-adjusted pesos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFiles...)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				if err := cfg.Log.SetLevel(a.logLevel); err != nil {
					return fmt.Errorf("invalid --log-level: %w", err)
				}
			}
			logger := cfg.Log.Logger(cmd.ErrOrStderr())
			a.deps = NewDependencies(cfg, logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "env files to load (default .env, .env.local)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL")
	cmd.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	cmd.AddCommand(
		newRunCmd(a),
		newPayslipsCmd(a),
		newRatesCmd(a),
		newInflationCmd(a),
	)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
