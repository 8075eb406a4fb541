package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(aiTokensIn, aiTokensOut, aiCallsLatencyMs, aiRetriesTotal)
}

var aiTokensIn = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_tokens_in_total",
		Help: "Prompt tokens sent to generation providers.",
	},
	[]string{"provider", "model"},
)

var aiTokensOut = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_tokens_out_total",
		Help: "Completion tokens received from generation providers.",
	},
	[]string{"provider", "model"},
)

var aiCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ai_call_latency_ms",
		Help:    "Latency of generation calls in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"provider", "model", "success"},
)

var aiRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_retries_total",
		Help: "Generation calls retried after a rate-limit response.",
	},
	[]string{"provider"},
)

func ObserveGenerationUsage(provider, model string, tokensIn, tokensOut, latencyMs int, success bool) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncAIRetry(provider string) {
	aiRetriesTotal.WithLabelValues(norm(provider)).Inc()
}
