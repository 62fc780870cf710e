package pipeline

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "salary_insights"

// Metrics records the outcome of one run in a private registry.
type Metrics struct {
	registry *prometheus.Registry

	payslips         prometheus.Gauge
	rates            prometheus.Gauge
	inflationMonths  prometheus.Gauge
	rows             prometheus.Gauge
	missingRates     prometheus.Gauge
	missingInflation prometheus.Gauge
	artifacts        prometheus.Gauge
	lastSuccess      prometheus.Gauge
	stageDuration    *prometheus.GaugeVec
	stageFailures    *prometheus.CounterVec
}

// NewMetrics creates the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		payslips: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "payslips_extracted",
			Help:      "Number of payslips extracted in the last run.",
		}),
		rates: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exchange_rates_loaded",
			Help:      "Number of monthly exchange rates loaded in the last run.",
		}),
		inflationMonths: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflation_months_loaded",
			Help:      "Number of monthly inflation values loaded in the last run.",
		}),
		rows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_rows",
			Help:      "Number of months in the written report.",
		}),
		missingRates: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_rate_months",
			Help:      "Payslip months without an exchange rate.",
		}),
		missingInflation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_inflation_months",
			Help:      "Payslip months without inflation data (dropped or kept per policy).",
		}),
		artifacts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_artifacts",
			Help:      "Number of files written by the last run.",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		stageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
		}, []string{"stage"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Number of failed pipeline stages.",
		}, []string{"stage"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
