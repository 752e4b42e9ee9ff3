package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initSignalMetrics(cfg Config) {
	m.signalSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_sent_total",
			Help: "Total number of signal values published",
		},
		[]string{"signal"},
	)

	m.signalResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_resolved_total",
			Help: "Total number of signal values written to the resolved store",
		},
		[]string{"signal"},
	)

	m.signalWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_wait_total",
			Help: "Total number of completed waits by outcome",
		},
		[]string{"signal", "outcome"},
	)

	m.signalWaitDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_wait_duration_seconds",
			Help:    "Time spent waiting for a signal value",
			Buckets: cfg.WaitDurationBuckets,
		},
		[]string{"signal", "outcome"},
	)

	m.dispatchDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_dispatch_dropped_total",
			Help: "Total number of inbound events the dispatcher could not resolve",
		},
		[]string{"reason"},
	)

	m.registry.MustRegister(m.signalSent)
	m.registry.MustRegister(m.signalResolved)
	m.registry.MustRegister(m.signalWaits)
	m.registry.MustRegister(m.signalWaitDur)
	m.registry.MustRegister(m.dispatchDrops)
}

// RecordSignalSent records a published signal value.
func (m *Manager) RecordSignalSent(signal string) {
	if !m.enabled {
		return
	}
	m.signalSent.WithLabelValues(signal).Inc()
}

// RecordSignalResolved records a value written to the resolved store.
func (m *Manager) RecordSignalResolved(signal string) {
	if !m.enabled {
		return
	}
	m.signalResolved.WithLabelValues(signal).Inc()
}

// RecordSignalWait records the outcome and duration of a wait.
func (m *Manager) RecordSignalWait(signal string, outcome string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.signalWaits.WithLabelValues(signal, outcome).Inc()
	m.signalWaitDur.WithLabelValues(signal, outcome).Observe(duration.Seconds())
}

// RecordDispatchDropped records an inbound event that was not resolved.
func (m *Manager) RecordDispatchDropped(reason string) {
	if !m.enabled {
		return
	}
	m.dispatchDrops.WithLabelValues(reason).Inc()
}
