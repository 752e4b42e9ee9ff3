package livecheck

import "time"

// Wait outcomes reported to MetricsRecorder.
const (
	OutcomeResolved  = "resolved"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// MetricsRecorder defines metrics hooks for signal operations.
type MetricsRecorder interface {
	RecordSignalSent(signal string)
	RecordSignalResolved(signal string)
	RecordSignalWait(signal string, outcome string, duration time.Duration)
	RecordDispatchDropped(reason string)
}

type nopMetrics struct{}

func (nopMetrics) RecordSignalSent(string)                        {}
func (nopMetrics) RecordSignalResolved(string)                    {}
func (nopMetrics) RecordSignalWait(string, string, time.Duration) {}
func (nopMetrics) RecordDispatchDropped(string)                   {}
