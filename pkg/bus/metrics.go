package bus

import "sync"

// MetricsRecorder defines metrics hooks for bus operations.
type MetricsRecorder interface {
	RecordBusPublished(mode string)
	RecordBusDelivered(mode string)
	RecordBusFailed(mode string, reason string)
}

type nopMetrics struct{}

func (nopMetrics) RecordBusPublished(mode string)             {}
func (nopMetrics) RecordBusDelivered(mode string)             {}
func (nopMetrics) RecordBusFailed(mode string, reason string) {}

var (
	metricsMu sync.RWMutex
	metrics   MetricsRecorder = nopMetrics{}
)

// SetMetricsRecorder sets the package-level bus metrics recorder.
func SetMetricsRecorder(recorder MetricsRecorder) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if recorder == nil {
		metrics = nopMetrics{}
		return
	}
	metrics = recorder
}

func metricsRecorder() MetricsRecorder {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}
