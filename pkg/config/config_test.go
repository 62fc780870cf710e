package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Sources.RatesTable)
	assert.Equal(t, "*.pdf", cfg.Payroll.Glob)
	assert.Equal(t, "ARS", cfg.Payroll.Currency)
	assert.Equal(t, 5, cfg.Inflation.HeaderRow)
	assert.Equal(t, 3, cfg.Inflation.Rows)
	assert.Equal(t, "Región GBA", cfg.Inflation.IndexLabel)
	assert.Equal(t, 160, cfg.Analysis.MonthlyHours)
	assert.Equal(t, "drop", cfg.Analysis.JoinPolicy)
	assert.Equal(t, ',', cfg.Report.DelimiterRune())
	assert.False(t, cfg.Report.SummaryPDF)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PAYSLIP_DIR", "/data/recibos")
	t.Setenv("MONTHLY_WORKING_HOURS", "176")
	t.Setenv("INFLATION_JOIN_POLICY", "keep")
	t.Setenv("CSV_DELIMITER", ";")
	t.Setenv("REPORT_PDF", "true")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "/data/recibos", cfg.Payroll.Dir)
	assert.Equal(t, 176, cfg.Analysis.MonthlyHours)
	assert.Equal(t, "keep", cfg.Analysis.JoinPolicy)
	assert.Equal(t, ';', cfg.Report.DelimiterRune())
	assert.True(t, cfg.Report.SummaryPDF)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REPORT_DIR=/tmp/out\nINFLATION_SERIES_LABEL=Nivel general\n"), 0o600))

	// godotenv.Load does not override variables that are already set.
	t.Setenv("REPORT_DIR", "")
	os.Unsetenv("REPORT_DIR")
	t.Setenv("INFLATION_SERIES_LABEL", "")
	os.Unsetenv("INFLATION_SERIES_LABEL")

	n, err := LoadEnv([]string{path, noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.Report.Dir)
	assert.Equal(t, "Nivel general", cfg.Inflation.SeriesLabel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"hours", "MONTHLY_WORKING_HOURS", "0", "MONTHLY_WORKING_HOURS"},
		{"policy", "INFLATION_JOIN_POLICY", "interpolate", "INFLATION_JOIN_POLICY"},
		{"delimiter", "CSV_DELIMITER", ";;", "CSV_DELIMITER"},
		{"rows", "INFLATION_ROWS", "0", "INFLATION_ROWS"},
		{"log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"log format", "LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"not a number", "RATES_TABLE_INDEX", "first", "RATES_TABLE_INDEX"},
		{"timeout", "HTTP_TIMEOUT", "0s", "HTTP_TIMEOUT"},
		{"not a duration", "HTTP_TIMEOUT", "soon", "HTTP_TIMEOUT"},
		{"not a bool", "REPORT_PDF", "maybe", "REPORT_PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load(noEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvKeys(t *testing.T) {
	keys := envKeys(reflect.TypeOf(Config{}), map[string][]string{})

	assert.Equal(t, []string{"RATES_TABLE_INDEX"}, keys["RatesTable"])
	assert.Equal(t, []string{"HTTP_TIMEOUT"}, keys["Timeout"])
	assert.ElementsMatch(t, []string{"PAYSLIP_DIR", "REPORT_DIR"}, keys["Dir"])
}

func TestLogConfig_SetLevel(t *testing.T) {
	c := LogConfig{Level: "info"}

	require.NoError(t, c.SetLevel("debug"))
	assert.Equal(t, "debug", c.Level)

	err := c.SetLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
	assert.Equal(t, "debug", c.Level)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := (&LogConfig{Level: "warn", Format: "json"}).Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = (&LogConfig{Level: "debug", Format: "text"}).Logger(&buf)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}
