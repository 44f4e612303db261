package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	messagesDebited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_debits_total",
			Help: "Successful debits by entitlement source (admin/premium/free/credits).",
		},
		[]string{"source"},
	)

	entitlementDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_denials_total",
			Help: "Entitlement denials by reason (banned/maintenance/quota).",
		},
		[]string{"reason"},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment transitions by type and status.",
		},
		[]string{"type", "status"},
	)

	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_pipeline_runs_total",
			Help: "Pipeline outcomes by terminal stage and result.",
		},
		[]string{"stage", "result"},
	)

	pipelineLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_stage_latency_ms",
			Help:    "Per-stage pipeline latency in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"stage"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Read-through cache requests by provider and outcome (hit/miss/bypass).",
		},
		[]string{"provider", "outcome"},
	)

	aiTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated prompt plus completion tokens per provider and direction.",
		},
		[]string{"provider", "direction"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			messagesDebited, entitlementDenials, paymentsTotal,
			pipelineRuns, pipelineLatency, cacheRequests, aiTokens,
		)
	})
}

func IncDebit(source string)               { messagesDebited.WithLabelValues(source).Inc() }
func IncDenial(reason string)              { entitlementDenials.WithLabelValues(reason).Inc() }
func IncPayment(typ, status string)        { paymentsTotal.WithLabelValues(typ, status).Inc() }
func IncPipeline(stage, result string)     { pipelineRuns.WithLabelValues(stage, result).Inc() }
func ObserveStage(stage string, ms float64) { pipelineLatency.WithLabelValues(stage).Observe(ms) }
func IncCacheRequest(provider, outcome string) {
	cacheRequests.WithLabelValues(provider, outcome).Inc()
}
func AddAITokens(provider, direction string, n int) {
	if n > 0 {
		aiTokens.WithLabelValues(provider, direction).Add(float64(n))
	}
}
