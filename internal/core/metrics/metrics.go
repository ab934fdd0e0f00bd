// Package metrics collects the internal core metrics named in SPEC_FULL.md's
// domain stack: command queue depth, outbox size, sequence counters, and
// command latency, exposed via prometheus/client_golang the way the pack's
// xg2g daemon exposes its own (internal/metrics, cmd/xg2g-soak/prom.go).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the core registers. Construct once per
// process with NewMetrics and pass by reference into components that need
// to observe.
type Metrics struct {
	CommandQueueDepth prometheus.Gauge
	OutboxSize        prometheus.Gauge
	OutboxDropped     prometheus.Counter
	OutboxRetries     prometheus.Counter
	ServerSeq         prometheus.Gauge
	CommandLatency    *prometheus.HistogramVec
	EventsPublished   *prometheus.CounterVec
}

// NewMetrics constructs and registers every collector against reg. Passing
// prometheus.NewRegistry() isolates a test's metrics from the global
// DefaultRegisterer; passing prometheus.DefaultRegisterer wires into the
// process-wide /metrics endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "musicbox",
			Subsystem: "coordinator",
			Name:      "command_queue_depth",
			Help:      "Number of commands currently enqueued awaiting processing.",
		}),
		OutboxSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "musicbox",
			Subsystem: "hub",
			Name:      "outbox_size",
			Help:      "Number of outbox entries awaiting delivery or retry.",
		}),
		OutboxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "musicbox",
			Subsystem: "hub",
			Name:      "outbox_dropped_total",
			Help:      "Outbox entries dropped after exhausting the retry budget.",
		}),
		OutboxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "musicbox",
			Subsystem: "hub",
			Name:      "outbox_retries_total",
			Help:      "Outbox delivery attempts that failed and were retried.",
		}),
		ServerSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "musicbox",
			Subsystem: "hub",
			Name:      "server_seq",
			Help:      "Current value of the global server_seq counter.",
		}),
		CommandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "musicbox",
			Subsystem: "coordinator",
			Name:      "command_duration_seconds",
			Help:      "Time spent processing a coordinator command, by command name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "musicbox",
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Events published to the broadcast hub, by event type.",
		}, []string{"event_type"}),
	}

	reg.MustRegister(
		m.CommandQueueDepth,
		m.OutboxSize,
		m.OutboxDropped,
		m.OutboxRetries,
		m.ServerSeq,
		m.CommandLatency,
		m.EventsPublished,
	)
	return m
}
