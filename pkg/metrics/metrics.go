package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

const namespace = "appointment_assistant"

// PipelineMetrics exposes counters/histograms for the request pipeline.
// A nil *PipelineMetrics is a valid no-op.
type PipelineMetrics struct {
	requestsTotal    *prometheus.CounterVec
	escalationsTotal *prometheus.CounterVec
	reviewsTotal     *prometheus.CounterVec
	piiMaskedTotal   *prometheus.CounterVec
	nodeErrorsTotal  *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	nodeDuration     *prometheus.HistogramVec
	llmCostUSD       prometheus.Counter
	breakerState     *prometheus.GaugeVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Completed requests by final status and intent",
		}, []string{"status", "intent"}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "escalations_total",
			Help:      "Escalated requests by reason",
		}, []string{"reason"}),
		reviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "decisions_total",
			Help:      "Reviewer decisions on drafted replies",
		}, []string{"action"}),
		piiMaskedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "middleware",
			Name:      "pii_masked_total",
			Help:      "Requests with PII masked, by category",
		}, []string{"type"}),
		nodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "node_errors_total",
			Help:      "Pipeline node failures",
		}, []string{"node"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "request_duration_seconds",
			Help:      "Time from request start to final status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "node_duration_seconds",
			Help:      "Latency of each pipeline node",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		llmCostUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Estimated LLM spend in USD",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"breaker"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.requestsTotal,
		m.escalationsTotal,
		m.reviewsTotal,
		m.piiMaskedTotal,
		m.nodeErrorsTotal,
		m.requestDuration,
		m.nodeDuration,
		m.llmCostUSD,
		m.breakerState,
	)
	return m
}

func (m *PipelineMetrics) ObserveRequest(status, intent string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(status, intent).Inc()
	m.requestDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveEscalation(reason string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(reason).Inc()
}

func (m *PipelineMetrics) ObserveReview(action string) {
	if m == nil {
		return
	}
	m.reviewsTotal.WithLabelValues(action).Inc()
}

func (m *PipelineMetrics) ObservePII(types []string) {
	if m == nil {
		return
	}
	for _, t := range types {
		m.piiMaskedTotal.WithLabelValues(t).Inc()
	}
}

func (m *PipelineMetrics) ObserveCost(usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.llmCostUSD.Add(usd)
}

// NodeFinished records node latency and failures.
func (m *PipelineMetrics) NodeFinished(node string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(node).Observe(elapsed.Seconds())
	if err != nil {
		m.nodeErrorsTotal.WithLabelValues(node).Inc()
	}
}

// BreakerStateChanged matches gobreaker's OnStateChange signature.
func (m *PipelineMetrics) BreakerStateChanged(name string, _, to gobreaker.State) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(to))
}
