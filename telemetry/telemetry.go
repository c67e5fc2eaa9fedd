// Package telemetry records document save and load outcomes as Prometheus
// metrics. *Metrics implements document.Telemetry.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iw2rmb/quire/document"
	"github.com/iw2rmb/quire/store"
)

type Config struct {
	Namespace string
	Subsystem string

	LatencyBuckets []float64
}

func DefaultConfig() Config {
	return Config{
		Namespace:      "quire",
		Subsystem:      "document",
		LatencyBuckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}
}

type Metrics struct {
	saves        *prometheus.CounterVec
	saveLatency  *prometheus.HistogramVec
	savesRunning prometheus.Gauge
	loads        *prometheus.CounterVec
	loadLatency  prometheus.Histogram
	transitions  *prometheus.CounterVec
}

var _ document.Telemetry = (*Metrics)(nil)

// New registers the metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer, cfg Config) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	f := promauto.With(reg)

	return &Metrics{
		// Labels: auto (true, false), status (ok, conflict, readonly, error)
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "saves_total",
			Help:      "Document saves by trigger and outcome",
		}, []string{"auto", "status"}),
		saveLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "save_duration_seconds",
			Help:      "Time from store write start to completion",
			Buckets:   cfg.LatencyBuckets,
		}, []string{"auto"}),
		savesRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "saves_in_flight",
			Help:      "Store writes currently in flight",
		}),
		// Labels: status (ok, not_modified, not_found, error)
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "loads_total",
			Help:      "Document loads by outcome",
		}, []string{"status"}),
		loadLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "load_duration_seconds",
			Help:      "Time to read a document from the store",
			Buckets:   cfg.LatencyBuckets,
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "state_transitions_total",
			Help:      "Lifecycle state transitions by target state",
		}, []string{"state"}),
	}
}

func (m *Metrics) SaveStarted(bool) {
	m.savesRunning.Inc()
}

func (m *Metrics) SaveFinished(auto bool, d time.Duration, err error) {
	m.savesRunning.Dec()
	a := strconv.FormatBool(auto)
	m.saves.WithLabelValues(a, status(err)).Inc()
	m.saveLatency.WithLabelValues(a).Observe(d.Seconds())
}

func (m *Metrics) LoadFinished(d time.Duration, err error) {
	m.loads.WithLabelValues(status(err)).Inc()
	m.loadLatency.Observe(d.Seconds())
}

func (m *Metrics) StateChanged(_, to document.State) {
	m.transitions.WithLabelValues(to.String()).Inc()
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case store.IsNotModified(err):
		return "not_modified"
	case store.IsNotFound(err):
		return "not_found"
	case store.IsConflict(err):
		return "conflict"
	case errors.Is(err, store.ErrReadonly):
		return "readonly"
	default:
		return "error"
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
