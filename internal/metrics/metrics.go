// Package metrics provides Prometheus instrumentation for the Ticketdrop
// session API. It exposes counters for session creations and reads,
// allocation collisions, absorbed side-effect failures, and a histogram
// for store call latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsCreatedTotal counts successfully created sessions.
	SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ticketdrop_sessions_created_total",
		Help: "Total number of sessions created",
	})

	// SessionReadsTotal counts read requests, labeled by outcome:
	// "ok", "not_found", "corrupt", or "store_error".
	SessionReadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketdrop_session_reads_total",
		Help: "Total number of session read requests",
	}, []string{"outcome"})

	// AllocationCollisionsTotal counts id candidates rejected because the
	// probed key already existed.
	AllocationCollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ticketdrop_allocation_collisions_total",
		Help: "Total number of id allocation collisions",
	})

	// SideEffectFailuresTotal counts absorbed best-effort failures,
	// labeled by channel: "notify", "events", or "audit".
	SideEffectFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketdrop_side_effect_failures_total",
		Help: "Total number of absorbed best-effort side effect failures",
	}, []string{"channel"})

	// StoreCallDuration records key-value store call latency in seconds,
	// labeled by operation ("get" or "set").
	StoreCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticketdrop_store_call_duration_seconds",
		Help:    "Key-value store call latency in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		SessionsCreatedTotal,
		SessionReadsTotal,
		AllocationCollisionsTotal,
		SideEffectFailuresTotal,
		StoreCallDuration,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
