package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestPipelineMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveRequest("READY", "book", 2*time.Second)
	m.ObserveRequest("READY", "book", time.Second)
	m.ObserveEscalation("emergency")
	m.ObserveReview("approve")
	m.ObservePII([]string{"phone", "email"})
	m.ObserveCost(0.25)
	m.ObserveCost(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("READY", "book")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.escalationsTotal.WithLabelValues("emergency")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewsTotal.WithLabelValues("approve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.piiMaskedTotal.WithLabelValues("email")))
	assert.InDelta(t, 0.25, testutil.ToFloat64(m.llmCostUSD), 1e-9)
}

func TestPipelineMetricsNodesAndBreaker(t *testing.T) {
	m := NewPipelineMetrics(prometheus.NewRegistry())

	m.NodeFinished("intent_node", 10*time.Millisecond, nil)
	m.NodeFinished("action_node", time.Millisecond, errors.New("boom"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.nodeErrorsTotal.WithLabelValues("intent_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeErrorsTotal.WithLabelValues("action_node")))

	m.BreakerStateChanged("intent:gemini", gobreaker.StateClosed, gobreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.breakerState.WithLabelValues("intent:gemini")))
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveRequest("READY", "book", time.Second)
	m.ObserveEscalation("emergency")
	m.ObserveReview("reject")
	m.ObservePII([]string{"ssn"})
	m.ObserveCost(1)
	m.NodeFinished("input_node", time.Millisecond, nil)
	m.BreakerStateChanged("x", gobreaker.StateOpen, gobreaker.StateHalfOpen)
}
