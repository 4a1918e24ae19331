// Package metrics exposes Prometheus instrumentation for the dispatch queue,
// the poll loops and the scheduler. Every method is safe on a nil receiver so
// components can run without metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Click kinds.
const (
	ClickAccept          = "accept"
	ClickNewConversation = "new_conversation"
	ClickTab             = "tab"
)

type PrometheusMetrics struct {
	registry           prometheus.Registerer
	commandsTotal      *prometheus.CounterVec
	sendDuration       prometheus.Histogram
	queueDepth         prometheus.Gauge
	busyWaits          prometheus.Counter
	busyConfirmTimeout prometheus.Counter
	clicksTotal        *prometheus.CounterVec
	pollCycles         *prometheus.CounterVec
	schedulerTriggers  prometheus.Counter
	sessionID          prometheus.Gauge
}

func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		registry: reg,
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of dispatched commands by final status",
			},
			[]string{"status"},
		),
		sendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "send_duration_seconds",
				Help:      "Duration of prompt delivery to the remote surface",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of commands waiting in the dispatch queue",
			},
		),
		busyWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "busy_waits_total",
				Help:      "Number of backoff waits caused by a busy remote surface",
			},
		),
		busyConfirmTimeout: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "busy_confirm_timeouts_total",
				Help:      "Number of sends whose processing start was never observed",
			},
		),
		clicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_total",
				Help:      "Total number of clicks issued on the remote surface",
			},
			[]string{"kind"},
		),
		pollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_cycles_total",
				Help:      "Total number of completed poll loop cycles",
			},
			[]string{"mode"},
		),
		schedulerTriggers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_triggers_total",
				Help:      "Total number of scheduled prompt triggers",
			},
		),
		sessionID: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_id",
				Help:      "Current automation session id, 0 when stopped",
			},
		),
	}

	reg.MustRegister(
		m.commandsTotal,
		m.sendDuration,
		m.queueDepth,
		m.busyWaits,
		m.busyConfirmTimeout,
		m.clicksTotal,
		m.pollCycles,
		m.schedulerTriggers,
		m.sessionID,
	)

	return m
}

func (m *PrometheusMetrics) RecordCommand(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(status).Inc()
	m.sendDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *PrometheusMetrics) BusyWait() {
	if m == nil {
		return
	}
	m.busyWaits.Inc()
}

func (m *PrometheusMetrics) BusyConfirmTimeout() {
	if m == nil {
		return
	}
	m.busyConfirmTimeout.Inc()
}

func (m *PrometheusMetrics) Click(kind string) {
	if m == nil {
		return
	}
	m.clicksTotal.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) PollCycle(mode string) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(mode).Inc()
}

func (m *PrometheusMetrics) SchedulerTrigger() {
	if m == nil {
		return
	}
	m.schedulerTriggers.Inc()
}

func (m *PrometheusMetrics) SetSessionID(id uint64) {
	if m == nil {
		return
	}
	m.sessionID.Set(float64(id))
}
