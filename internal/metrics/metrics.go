// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package metrics provides Prometheus instrumentation for Shelfscout:
// recommendation pipeline latency, adapter outcomes, quota decisions,
// hub message routing and API throughput.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal counts recommendation requests by outcome
	// (ok, empty_query, quota_exceeded, error).
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// RecommendationDuration observes end-to-end orchestration latency.
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end recommendation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AdapterRequestsTotal counts adapter fan-out calls by adapter and
	// outcome (ok, degraded, timeout).
	AdapterRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_requests_total",
			Help: "Total capability adapter calls by adapter and outcome",
		},
		[]string{"adapter", "outcome"},
	)

	// AdapterDuration observes per-adapter call latency.
	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapter_duration_seconds",
			Help:    "Capability adapter call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"adapter"},
	)

	// QuotaDecisionsTotal counts quota admissions by plan and decision
	// (admitted, rejected_daily, rejected_monthly).
	QuotaDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_decisions_total",
			Help: "Total quota admission decisions by plan and decision",
		},
		[]string{"plan", "decision"},
	)

	// HubMessagesTotal counts messages routed through the hub by type.
	HubMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_total",
			Help: "Total agent messages routed by message type",
		},
		[]string{"type"},
	)

	// HubDeliveryFailures counts failed deliveries (unknown receiver or
	// handler error).
	HubDeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_delivery_failures_total",
			Help: "Total failed agent message deliveries",
		},
	)

	// FairnessFlagsTotal counts result sets flagged by the fairness auditor.
	FairnessFlagsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fairness_flags_total",
			Help: "Total result sets flagged for category dominance",
		},
	)

	// APIRequestsTotal counts HTTP requests by method, path and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration observes HTTP handler latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveAPIRequest records one HTTP request.
func ObserveAPIRequest(method, path string, status int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveAdapter records one adapter fan-out call.
func ObserveAdapter(adapter, outcome string, elapsed time.Duration) {
	AdapterRequestsTotal.WithLabelValues(adapter, outcome).Inc()
	AdapterDuration.WithLabelValues(adapter).Observe(elapsed.Seconds())
}
