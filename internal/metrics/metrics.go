// Package metrics exposes Prometheus instrumentation for the gateway:
// completion runs, tool executions, credential escalations, permission
// denials, retrieval activity, and session/archiver health.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type gatewayMetrics struct {
	completionTotal    *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	keyEscalationTotal    prometheus.Counter
	permissionDenialTotal *prometheus.CounterVec

	retrievalSearchTotal    prometheus.Counter
	retrievalSearchDuration prometheus.Histogram
	retrievalChunks         prometheus.Gauge

	activeSessions       prometheus.Gauge
	transcriptDropsTotal prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *gatewayMetrics
)

func getMetrics() *gatewayMetrics {
	metricsOnce.Do(func() {
		m := &gatewayMetrics{
			completionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "completion_total",
					Help: "Total completion runs by provider and status.",
				},
				[]string{"provider", "status"},
			),
			completionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "completion_duration_seconds",
					Help:    "Completion run duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			keyEscalationTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "key_escalation_total",
					Help: "Total credential escalations to the privileged key.",
				},
			),
			permissionDenialTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "permission_denial_total",
					Help: "Total tool calls refused by the permission gate, by tool.",
				},
				[]string{"tool"},
			),
			retrievalSearchTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "retrieval_search_total",
					Help: "Total knowledge base searches.",
				},
			),
			retrievalSearchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "retrieval_search_duration_seconds",
					Help:    "Knowledge base search duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			retrievalChunks: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "retrieval_chunks",
					Help: "Chunks currently held in the retrieval index.",
				},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_sessions",
					Help: "Current live session count.",
				},
			),
			transcriptDropsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "transcript_drops_total",
					Help: "Transcript snapshots dropped due to a full archive queue.",
				},
			),
		}

		prometheus.MustRegister(
			m.completionTotal,
			m.completionDuration,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.keyEscalationTotal,
			m.permissionDenialTotal,
			m.retrievalSearchTotal,
			m.retrievalSearchDuration,
			m.retrievalChunks,
			m.activeSessions,
			m.transcriptDropsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordCompletion(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.completionTotal.WithLabelValues(provider, status).Inc()
	m.completionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordKeyEscalation() {
	getMetrics().keyEscalationTotal.Inc()
}

func RecordPermissionDenial(tool string) {
	getMetrics().permissionDenialTotal.WithLabelValues(tool).Inc()
}

func RecordRetrievalSearch(duration time.Duration) {
	m := getMetrics()
	m.retrievalSearchTotal.Inc()
	m.retrievalSearchDuration.Observe(duration.Seconds())
}

func SetRetrievalChunks(total int) {
	getMetrics().retrievalChunks.Set(float64(total))
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordTranscriptDrop() {
	getMetrics().transcriptDropsTotal.Inc()
}
