package autosave

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkpoint outcomes recorded in the result label.
const (
	ResultSaved     = "saved"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
)

// Metrics holds the autosave instruments.
type Metrics struct {
	checkpoints *prometheus.CounterVec
	coalesced   prometheus.Counter
	snapshots   prometheus.Gauge
	duration    prometheus.Histogram
}

// NewMetrics registers the autosave instruments with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checkpoints: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "napkin_autosave_checkpoints_total",
			Help: "Autosave checkpoints by result (saved, unchanged, error).",
		}, []string{"result"}),
		coalesced: factory.NewCounter(prometheus.CounterOpts{
			Name: "napkin_autosave_coalesced_total",
			Help: "Triggers folded into an already pending checkpoint.",
		}),
		snapshots: factory.NewGauge(prometheus.GaugeOpts{
			Name: "napkin_history_snapshots",
			Help: "Snapshots currently retained by the watched session.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "napkin_autosave_checkpoint_duration_seconds",
			Help:    "Time to read, snapshot and persist one checkpoint.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
