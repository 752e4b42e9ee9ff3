package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initBusMetrics() {
	m.busPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_published_total",
			Help: "Total number of events published on the bus",
		},
		[]string{"mode"},
	)

	m.busDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_delivered_total",
			Help: "Total number of events delivered to a partition consumer",
		},
		[]string{"mode"},
	)

	m.busFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_failures_total",
			Help: "Total number of bus publish or delivery failures",
		},
		[]string{"mode", "reason"},
	)

	m.registry.MustRegister(m.busPublished)
	m.registry.MustRegister(m.busDelivered)
	m.registry.MustRegister(m.busFailures)
}

// RecordBusPublished records a published event.
func (m *Manager) RecordBusPublished(mode string) {
	if !m.enabled {
		return
	}
	m.busPublished.WithLabelValues(mode).Inc()
}

// RecordBusDelivered records an event handed to a consumer.
func (m *Manager) RecordBusDelivered(mode string) {
	if !m.enabled {
		return
	}
	m.busDelivered.WithLabelValues(mode).Inc()
}

// RecordBusFailed records a failed bus operation.
func (m *Manager) RecordBusFailed(mode string, reason string) {
	if !m.enabled {
		return
	}
	m.busFailures.WithLabelValues(mode, reason).Inc()
}
