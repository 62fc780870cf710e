// Package config loads the pipeline configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config holds all application configuration
type Config struct {
	Sources   SourcesConfig
	Payroll   PayrollConfig
	Inflation InflationConfig
	Analysis  AnalysisConfig
	Report    ReportConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type SourcesConfig struct {
	RatesURL     string `env:"RATES_URL" envDefault:"http://estudiodelamo.com/cotizacion-historica-dolar-peso-argentina/"`
	RatesTable   int    `env:"RATES_TABLE_INDEX" envDefault:"1"`
	InflationURL string `env:"INFLATION_URL" envDefault:"https://www.indec.gob.ar/ftp/cuadros/economia/sh_ipc_aperturas.xls"`
}

type PayrollConfig struct {
	Dir          string `env:"PAYSLIP_DIR" envDefault:"./payslips"`
	Glob         string `env:"PAYSLIP_GLOB" envDefault:"*.pdf"`
	TemplatePath string `env:"PAYSLIP_TEMPLATE" envDefault:"./configs/payslip-template.json"`
	Currency     string `env:"LOCAL_CURRENCY" envDefault:"ARS"`
}

type InflationConfig struct {
	HeaderRow   int    `env:"INFLATION_HEADER_ROW" envDefault:"5"`
	Rows        int    `env:"INFLATION_ROWS" envDefault:"3"`
	IndexLabel  string `env:"INFLATION_INDEX_LABEL" envDefault:"Región GBA"`
	SeriesLabel string `env:"INFLATION_SERIES_LABEL"`
}

type AnalysisConfig struct {
	MonthlyHours int    `env:"MONTHLY_WORKING_HOURS" envDefault:"160"`
	JoinPolicy   string `env:"INFLATION_JOIN_POLICY" envDefault:"drop"`
}

type ReportConfig struct {
	Dir        string `env:"REPORT_DIR" envDefault:"./report"`
	Delimiter  string `env:"CSV_DELIMITER" envDefault:","`
	SummaryPDF bool   `env:"REPORT_PDF" envDefault:"false"`
}

type HTTPConfig struct {
	Timeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	UserAgent string        `env:"HTTP_USER_AGENT" envDefault:"salary-insights/1.0"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type MetricsConfig struct {
	Textfile string `env:"METRICS_TEXTFILE"`
}

// LoadEnv loads the env files that exist and reports how many were found.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	return len(existing), godotenv.Load(existing...)
}

// Load reads configuration from env files and environment variables
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", describeParseError(err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// describeParseError names the environment variable behind each field that
// env could not parse.
func describeParseError(err error) error {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return err
	}

	keys := envKeys(reflect.TypeOf(Config{}), map[string][]string{})
	errs := make([]error, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		var perr env.ParseError
		if errors.As(e, &perr) {
			if names, ok := keys[perr.Name]; ok {
				errs = append(errs, fmt.Errorf("%s: %w", strings.Join(names, " or "), perr.Err))
				continue
			}
		}
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

func envKeys(t reflect.Type, keys map[string][]string) map[string][]string {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Struct && f.Tag.Get("env") == "" {
			envKeys(f.Type, keys)
			continue
		}
		if key, _, _ := strings.Cut(f.Tag.Get("env"), ","); key != "" {
			keys[f.Name] = append(keys[f.Name], key)
		}
	}
	return keys
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Sources.RatesURL) == "" {
		errs = append(errs, errors.New("RATES_URL is required"))
	}
	if strings.TrimSpace(c.Sources.InflationURL) == "" {
		errs = append(errs, errors.New("INFLATION_URL is required"))
	}
	if c.Sources.RatesTable < 0 {
		errs = append(errs, errors.New("RATES_TABLE_INDEX must not be negative"))
	}
	if c.Inflation.HeaderRow < 0 {
		errs = append(errs, errors.New("INFLATION_HEADER_ROW must not be negative"))
	}
	if c.Inflation.Rows < 1 {
		errs = append(errs, errors.New("INFLATION_ROWS must be at least 1"))
	}
	if c.Analysis.MonthlyHours <= 0 {
		errs = append(errs, errors.New("MONTHLY_WORKING_HOURS must be positive"))
	}
	switch strings.ToLower(c.Analysis.JoinPolicy) {
	case "drop", "keep":
	default:
		errs = append(errs, fmt.Errorf("INFLATION_JOIN_POLICY must be drop or keep, got %q", c.Analysis.JoinPolicy))
	}
	if utf8.RuneCountInString(c.Report.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("CSV_DELIMITER must be a single character, got %q", c.Report.Delimiter))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DelimiterRune returns the CSV field separator.
func (c *ReportConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// SetLevel overrides the configured level after checking it.
func (c *LogConfig) SetLevel(s string) error {
	if _, err := parseLevel(s); err != nil {
		return err
	}
	c.Level = s
	return nil
}

// Logger builds the process logger writing to w.
func (c *LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
