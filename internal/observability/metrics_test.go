package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/nodetree/internal/tree"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeNotFound, Outcome(tree.NewNodeNotFoundError("/Y")))
	assert.Equal(t, OutcomeNotFound, Outcome(tree.NewParentNotFoundError("/X")))
	assert.Equal(t, OutcomeInvalid, Outcome(tree.NewInvalidInputError("name is required")))
	assert.Equal(t, OutcomeConflict, Outcome(tree.NewPathConflictError("/A", nil)))
	assert.Equal(t, OutcomeError, Outcome(errors.New("disk I/O error")))
}

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveOperation(OpCreateNode, time.Now(), nil)
	m.ObserveOperation(OpCreateNode, time.Now(), nil)
	m.ObserveOperation(OpCreateNode, time.Now(), tree.NewParentNotFoundError("/X"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(OpCreateNode, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(OpCreateNode, OutcomeNotFound)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDurationSeconds))
}

func TestNewMetrics_IsolatedRegistries(t *testing.T) {
	// Two registries must not panic on duplicate names.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.RateLimitedTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RateLimitedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RateLimitedTotal))
}
