package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by flow (register|login|refresh)
	// and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"flow", "result"},
	)

	// InvitationEvents counts invitation lifecycle events
	// (sent|accepted|expired|duplicate|mail_failed).
	InvitationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_invitation_events_total",
			Help: "Total number of invitation lifecycle events",
		},
		[]string{"event"},
	)

	// RoleDenials counts requests rejected by the role authorizer.
	RoleDenials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_role_denials_total",
			Help: "Total number of requests rejected by role checks",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
