// Package metrics provides Prometheus metrics for the broker CRM.
// Exports HTTP, AI provider, spend, pipeline and database metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds all Prometheus metric collectors
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPResponseSize     *prometheus.HistogramVec

	// AI Metrics
	AIRequestsTotal      *prometheus.CounterVec
	AIRequestDuration    *prometheus.HistogramVec
	AITokensUsed         *prometheus.CounterVec
	AICostTotal          *prometheus.CounterVec
	AIFallbacksTotal     *prometheus.CounterVec
	AIBudgetRejections   prometheus.Counter
	AIPaidSpend          prometheus.Gauge
	AIAssistantFallbacks *prometheus.CounterVec

	// CRM Metrics
	LeadsTotal          prometheus.Gauge
	NegotiationsByStage *prometheus.GaugeVec
	ConversationsTotal  *prometheus.GaugeVec
	ChatTurnsTotal      *prometheus.CounterVec

	// Database Metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// System Metrics
	StartupTime  prometheus.Gauge
	GoroutineNum prometheus.Gauge
}

// Get returns the singleton Metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

// newMetrics creates and registers all Prometheus metrics
func newMetrics() *Metrics {
	m := &Metrics{}

	// HTTP Metrics
	m.HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint, method, and status code",
		},
		[]string{"endpoint", "method", "status"},
	)

	m.HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imobcrm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "method"},
	)

	m.HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	m.HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imobcrm",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"endpoint"},
	)

	// AI Metrics
	m.AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total AI provider calls by provider, model, agent, and status",
		},
		[]string{"provider", "model", "agent", "status"},
	)

	m.AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imobcrm",
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "AI provider call duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider", "model"},
	)

	m.AITokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "ai",
			Name:      "tokens_total",
			Help:      "Tokens reported by AI providers",
		},
		[]string{"provider", "model", "direction"},
	)

	m.AICostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "ai",
			Name:      "estimated_cost_usd_total",
			Help:      "Estimated AI spend in USD",
		},
		[]string{"provider", "model"},
	)

	m.AIFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "ai",
			Name:      "fallbacks_total",
			Help:      "Provider fallbacks by source and target provider",
		},
		[]string{"from", "to"},
	)

	m.AIBudgetRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "ai",
			Name:      "budget_rejections_total",
			Help:      "Paid provider calls refused because the monthly ceiling was reached",
		},
	)

	m.AIPaidSpend = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Subsystem: "ai",
			Name:      "paid_spend_usd",
			Help:      "Accumulated paid provider spend since the counter started",
		},
	)

	m.AIAssistantFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "assistant",
			Name:      "fallback_answers_total",
			Help:      "Assistant features that answered with their fixed fallback",
		},
		[]string{"agent"},
	)

	// CRM Metrics
	m.LeadsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Subsystem: "crm",
			Name:      "leads",
			Help:      "Number of leads",
		},
	)

	m.NegotiationsByStage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Subsystem: "crm",
			Name:      "negotiations",
			Help:      "Number of negotiations by pipeline stage",
		},
		[]string{"stage"},
	)

	m.ConversationsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Subsystem: "crm",
			Name:      "conversations",
			Help:      "Number of qualification conversations by status",
		},
		[]string{"status"},
	)

	m.ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imobcrm",
			Subsystem: "crm",
			Name:      "chat_turns_total",
			Help:      "Qualification chat turns by profile completeness",
		},
		[]string{"complete"},
	)

	// Database Metrics
	m.DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Subsystem: "db",
			Name:      "connections_active",
			Help:      "Number of active database connections",
		},
	)

	m.DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Subsystem: "db",
			Name:      "connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	// System Metrics
	m.StartupTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Name:      "startup_timestamp_seconds",
			Help:      "Unix timestamp of server startup",
		},
	)
	m.StartupTime.Set(float64(time.Now().Unix()))

	m.GoroutineNum = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imobcrm",
			Name:      "goroutines",
			Help:      "Number of goroutines",
		},
	)

	return m
}

// RecordHTTPRequest records metrics for an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint, method string, statusCode int, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, statusCodeToLabel(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(endpoint).Observe(float64(responseSize))
}

// RecordAIRequest records metrics for one provider call
func (m *Metrics) RecordAIRequest(provider, model, agent, status string, duration time.Duration, inputTokens, outputTokens int, cost float64) {
	if agent == "" {
		agent = "unknown"
	}
	m.AIRequestsTotal.WithLabelValues(provider, model, agent, status).Inc()
	m.AIRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	m.AITokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	m.AITokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	if cost > 0 {
		m.AICostTotal.WithLabelValues(provider, model).Add(cost)
	}
}

// RecordAIFallback records a fallback from one provider to the next
func (m *Metrics) RecordAIFallback(fromProvider, toProvider string) {
	m.AIFallbacksTotal.WithLabelValues(fromProvider, toProvider).Inc()
}

// RecordBudgetRejection records a paid call refused by the spend ceiling
func (m *Metrics) RecordBudgetRejection() {
	m.AIBudgetRejections.Inc()
}

// SetPaidSpend publishes the current spend counter value
func (m *Metrics) SetPaidSpend(total float64) {
	m.AIPaidSpend.Set(total)
}

// RecordAssistantFallback records an assistant feature degrading to its fixed answer
func (m *Metrics) RecordAssistantFallback(agent string) {
	m.AIAssistantFallbacks.WithLabelValues(agent).Inc()
}

// RecordChatTurn records one qualification chat turn
func (m *Metrics) RecordChatTurn(complete bool) {
	m.ChatTurnsTotal.WithLabelValues(strconv.FormatBool(complete)).Inc()
}

// Helper function to convert status code to label
func statusCodeToLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
