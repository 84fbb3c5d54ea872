package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "apihub"
	subsystem = "support"
)

var (
	// ChatTurnsTotal counts assistant replies by how they were produced:
	// command, answer, escalated or model_failure.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chat_turns_total",
			Help:      "Total chat turns handled",
		},
		[]string{"kind"},
	)

	TicketsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tickets_created_total",
			Help:      "Total support tickets created",
		},
		[]string{"source"},
	)

	TicketCreateFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ticket_create_failures_total",
			Help:      "Ticket inserts that failed",
		},
	)

	TicketsClosedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tickets_closed_total",
			Help:      "Total close operations",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Ticket notification attempts by result",
		},
		[]string{"result"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model", "status"},
	)

	UsageLogsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "usage_logs_recorded_total",
			Help:      "API usage log entries recorded",
		},
		[]string{"api"},
	)
)

// OtherAPI labels usage logs for APIs outside the catalog.
const OtherAPI = "other"

const (
	SourceEscalation   = "escalation"
	SourceModelFailure = "model_failure"
	SourceManual       = "manual"
)
