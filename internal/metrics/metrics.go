// Package metrics exposes Prometheus collectors for the agent loop, the
// command dispatcher and the chat server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "station"

// Metrics holds every station collector. A nil *Metrics records nothing.
type Metrics struct {
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	promptTokens    prometheus.Gauge
	responseTokens  prometheus.Gauge
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	chatMessages    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// MustNewMetrics registers the collectors on reg and panics on conflicts.
// Tests should pass a fresh registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "cycles_total",
			Help:      "Agent cycles by final status.",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of completed agent cycles.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		promptTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "prompt_tokens",
			Help:      "Approximate token count of the last assembled prompt.",
		}),
		responseTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "response_tokens",
			Help:      "Approximate token count of the last model response.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Executed control commands by name and outcome.",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "command_duration_seconds",
			Help:      "Execution time of control commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat submissions by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.cycles, m.cycleDuration, m.promptTokens, m.responseTokens,
		m.commands, m.commandDuration, m.chatMessages, m.httpRequests, m.httpDuration,
	)
	return m
}

// ObserveCycle records one cycle. Duration is only observed for completed
// cycles.
func (m *Metrics) ObserveCycle(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(status).Inc()
	if status == "completed" {
		m.cycleDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SetPromptTokens(n int) {
	if m == nil {
		return
	}
	m.promptTokens.Set(float64(n))
}

func (m *Metrics) SetResponseTokens(n int) {
	if m == nil {
		return
	}
	m.responseTokens.Set(float64(n))
}

// ObserveCommand satisfies the dispatcher's observer.
func (m *Metrics) ObserveCommand(name, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, outcome).Inc()
	m.commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveChatMessage(result string) {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
