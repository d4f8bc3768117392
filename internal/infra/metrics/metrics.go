// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	exchangeTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	exchangeTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	exchangeLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exchange_latency_ms",
			Help:    "Chat completion call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"provider", "model", "success"},
	)

	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sends_total",
			Help: "Controller send operations by result (ok/failed/stale).",
		},
		[]string{"result"},
	)

	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_store_ops_total",
			Help: "Session store operations by backend/op/success.",
		},
		[]string{"backend", "op", "success"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			exchangeTokensIn, exchangeTokensOut, exchangeLatencyMs,
			sendsTotal, storeOpsTotal,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Exchange helpers --------

func ObserveExchange(provider, model string, tokensIn, tokensOut, latencyMs int, success bool) {
	lbl := []string{norm(provider), norm(model)}
	exchangeTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	exchangeTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	exchangeLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

// -------- Controller helpers --------

func IncSend(result string) {
	sendsTotal.WithLabelValues(norm(result)).Inc()
}

// -------- Store helpers --------

func IncStoreOp(backend, op string, success bool) {
	storeOpsTotal.WithLabelValues(norm(backend), norm(op), strconv.FormatBool(success)).Inc()
}
