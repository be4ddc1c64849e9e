// Package metrics defines and registers the custom Prometheus metrics of the
// rental lifecycle service. It is the single source of truth for metric names,
// labels, and help strings.
//
// The collectors register with the default registry on package init; Recorder
// exposes them to the core through ports.Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

const namespace = "rental"

// ── Engine metrics ────────────────────────────────────────────────────────────

// OperationDuration measures each engine operation including lock wait and retry.
// Labels:
//   - operation: engine operation (e.g. "rent", "approve_return")
//   - outcome: "ok" or a short error class (e.g. "quota_exceeded", "unavailable")
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of rental engine operations, by outcome.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation", "outcome"},
)

// RentalsCreatedTotal counts committed rentals.
// Label:
//   - channel: "self" or "admin"
var RentalsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rentals_created_total",
		Help:      "Total number of rentals created.",
	},
	[]string{"channel"},
)

// RentRejectedTotal counts refused rent attempts.
// Label:
//   - reason: e.g. "quota_exceeded", "already_lent", "movie_not_found"
var RentRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rent_rejected_total",
		Help:      "Total number of rent attempts refused, by reason.",
	},
	[]string{"reason"},
)

var ReturnsRequestedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "returns_requested_total",
		Help:      "Total number of return requests accepted.",
	},
)

var ReturnsApprovedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "returns_approved_total",
		Help:      "Total number of returns approved.",
	},
)

// RetriesTotal counts operations retried after a transient storage failure.
var RetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Total number of engine operation retries.",
	},
	[]string{"operation"},
)

// InvariantViolationsTotal counts broken invariants detected at runtime or by
// an integrity scan.
// Label:
//   - kind: violation kind (e.g. "ledger_available_with_open_rental")
var InvariantViolationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invariant_violations_total",
		Help:      "Total number of invariant violations detected.",
	},
	[]string{"kind"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped because a queue was full or closed.",
	},
)

// Recorder implements ports.Metrics on the collectors above.
type Recorder struct{}

var _ ports.Metrics = Recorder{}

func NewRecorder() Recorder { return Recorder{} }

func (Recorder) OperationObserved(op, outcome string, d time.Duration) {
	OperationDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
}

func (Recorder) RentalCreated(byAdmin bool) {
	channel := "self"
	if byAdmin {
		channel = "admin"
	}
	RentalsCreatedTotal.WithLabelValues(channel).Inc()
}

func (Recorder) RentRejected(reason string) { RentRejectedTotal.WithLabelValues(reason).Inc() }

func (Recorder) ReturnRequested() { ReturnsRequestedTotal.Inc() }

func (Recorder) ReturnApproved() { ReturnsApprovedTotal.Inc() }

func (Recorder) RetryAttempted(op string) { RetriesTotal.WithLabelValues(op).Inc() }

func (Recorder) InvariantViolated(kind string) { InvariantViolationsTotal.WithLabelValues(kind).Inc() }

func (Recorder) AuditQueueDepth(worker, depth int) {
	AuditQueueDepth.WithLabelValues(strconv.Itoa(worker)).Set(float64(depth))
}

func (Recorder) AuditEventDropped() { AuditEventsDroppedTotal.Inc() }
