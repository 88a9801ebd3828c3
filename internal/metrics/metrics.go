// Package metrics defines the Prometheus metrics of the sync engine.
//
// All methods are safe on a nil *Metrics, so components can run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tablero"

// Remote change outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeDiscarded = "discarded"
)

// Push results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds the collectors of one engine.
type Metrics struct {
	LocalMutations    *prometheus.CounterVec
	RemotePushes      *prometheus.CounterVec
	PushDuration      *prometheus.HistogramVec
	RemoteChanges     *prometheus.CounterVec
	DebounceCoalesced prometheus.Counter
	CacheSaveErrors   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LocalMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "local_mutations_total",
				Help:      "Local edits applied to the board by kind (status, comment, meta)",
			},
			[]string{"kind"},
		),
		RemotePushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_pushes_total",
				Help:      "Pushes to the shared store by document kind and result",
			},
			[]string{"kind", "result"},
		),
		PushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_push_duration_seconds",
				Help:      "Duration of pushes to the shared store",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),
		RemoteChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_changes_total",
				Help:      "Change events received from the shared store by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		DebounceCoalesced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "debounce_coalesced_total",
				Help:      "Debounced pushes replaced by a newer edit before being sent",
			},
		),
		CacheSaveErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_save_errors_total",
				Help:      "Failed writes of a local cache record",
			},
			[]string{"record"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.LocalMutations,
			m.RemotePushes,
			m.PushDuration,
			m.RemoteChanges,
			m.DebounceCoalesced,
			m.CacheSaveErrors,
		)
	}

	return m
}

func (m *Metrics) LocalMutation(kind string) {
	if m == nil {
		return
	}
	m.LocalMutations.WithLabelValues(kind).Inc()
}

// RemotePush records a finished push.
func (m *Metrics) RemotePush(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	m.RemotePushes.WithLabelValues(kind, result).Inc()
	m.PushDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) RemoteChange(kind, outcome string) {
	if m == nil {
		return
	}
	m.RemoteChanges.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Coalesced() {
	if m == nil {
		return
	}
	m.DebounceCoalesced.Inc()
}

func (m *Metrics) CacheSaveError(record string) {
	if m == nil {
		return
	}
	m.CacheSaveErrors.WithLabelValues(record).Inc()
}
