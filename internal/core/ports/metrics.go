package ports

import "time"

// Metrics receives engine observations. The prometheus recorder in
// internal/api/metrics implements it.
type Metrics interface {
	OperationObserved(op, outcome string, d time.Duration)
	RentalCreated(byAdmin bool)
	RentRejected(reason string)
	ReturnRequested()
	ReturnApproved()
	RetryAttempted(op string)
	InvariantViolated(kind string)
	AuditQueueDepth(worker, depth int)
	AuditEventDropped()
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) OperationObserved(string, string, time.Duration) {}
func (NopMetrics) RentalCreated(bool)                              {}
func (NopMetrics) RentRejected(string)                             {}
func (NopMetrics) ReturnRequested()                                {}
func (NopMetrics) ReturnApproved()                                 {}
func (NopMetrics) RetryAttempted(string)                           {}
func (NopMetrics) InvariantViolated(string)                        {}
func (NopMetrics) AuditQueueDepth(int, int)                        {}
func (NopMetrics) AuditEventDropped()                              {}
