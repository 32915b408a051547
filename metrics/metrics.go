// Package metrics exposes backtest counters through a Prometheus registry.
// Batch runs export it as a node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

const namespace = "optsim"

// Registry holds all optsim metrics. A nil *Registry is valid and records
// nothing, so library code never has to check.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	RegimeSwitches *prometheus.CounterVec
	ActiveRegime   prometheus.Gauge
	PricingQuotes  *prometheus.CounterVec
	Settlements    *prometheus.CounterVec
}

// New creates a registry with its own prometheus.Registry, so parallel
// runs and tests never collide on the global one.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Backtest runs by strategy and outcome",
			},
			[]string{"strategy", "status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of one backtest run",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"strategy"},
		),

		RegimeSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "regime_switches_total",
				Help:      "Regime switches by from/to regime",
			},
			[]string{"from_regime", "to_regime"},
		),

		ActiveRegime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_regime",
				Help:      "Regime of the last simulated day (0=low, 1=mid, 2=high, 3=extreme)",
			},
		),

		PricingQuotes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pricing_quotes_total",
				Help:      "Pricing kernel quotes by source (lookup, fallback, expired)",
			},
			[]string{"source"},
		),

		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlements_total",
				Help:      "Settled positions by option kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}

	r.reg.MustRegister(
		r.RunsTotal,
		r.RunDuration,
		r.RegimeSwitches,
		r.ActiveRegime,
		r.PricingQuotes,
		r.Settlements,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// RecordRun counts a finished run.
func (r *Registry) RecordRun(strategy, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(strategy, status).Inc()
	r.RunDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (r *Registry) RecordRegimeSwitch(from, to string) {
	if r == nil {
		return
	}
	r.RegimeSwitches.WithLabelValues(from, to).Inc()
}

func (r *Registry) SetActiveRegime(ordinal int) {
	if r == nil {
		return
	}
	r.ActiveRegime.Set(float64(ordinal))
}

func (r *Registry) RecordQuote(source string) {
	if r == nil {
		return
	}
	r.PricingQuotes.WithLabelValues(source).Inc()
}

// RecordSettlement counts one settled position. Outcome is one of
// "worthless", "cash" or "physical".
func (r *Registry) RecordSettlement(kind, outcome string) {
	if r == nil {
		return
	}
	r.Settlements.WithLabelValues(kind, outcome).Inc()
}

// Runs returns the current value of the runs counter for the labels.
func (r *Registry) Runs(strategy, status string) float64 {
	if r == nil {
		return 0
	}
	c, err := r.RunsTotal.GetMetricWithLabelValues(strategy, status)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return err
	}
	log.Debug().Str("path", path).Msg("metrics written")
	return nil
}
