// Package observability defines the Prometheus metrics of the node service.
//
// Metrics are registered on an explicit registry so tests and multiple
// servers in one process do not collide on the global default registry.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/nodetree/internal/tree"
)

const (
	metricsNamespace = "nodetree"
	serviceSubsystem = "service"
	httpSubsystem    = "http"
)

// Operation label values.
const (
	OpCreateNode  = "create_node"
	OpAddProperty = "add_property"
	OpGetSubtree  = "get_subtree"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics holds the service and HTTP metrics.
//
// Thread Safety: all operations are safe for concurrent use.
type Metrics struct {
	// OperationsTotal counts core operations.
	// Labels: operation, outcome
	OperationsTotal *prometheus.CounterVec

	// OperationDurationSeconds measures core operation latency.
	// Labels: operation
	OperationDurationSeconds *prometheus.HistogramVec

	// SubtreeNodes observes the node count of each assembled subtree.
	SubtreeNodes prometheus.Histogram

	// HTTPRequestsTotal counts HTTP requests.
	// Labels: route, status
	HTTPRequestsTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal prometheus.Counter
}

// NewMetrics creates all metrics and registers them on reg.
// Panics if reg already holds metrics with the same names.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "operations_total",
				Help:      "Total node store operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "operation_duration_seconds",
				Help:      "Node store operation duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),
		SubtreeNodes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "subtree_nodes",
				Help:      "Number of nodes in assembled subtrees",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "rate_limited_total",
				Help:      "Total HTTP requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveOperation records one core operation.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	m.OperationsTotal.WithLabelValues(op, Outcome(err)).Inc()
	m.OperationDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Outcome maps an operation error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case tree.IsNodeNotFound(err), tree.IsParentNotFound(err):
		return OutcomeNotFound
	case tree.IsInvalidInput(err):
		return OutcomeInvalid
	case tree.IsPathConflict(err):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
