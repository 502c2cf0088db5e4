// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the gateway's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts chat requests by endpoint and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breakwater_chat_requests_total",
		Help: "Chat requests processed, labeled by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// SecurityBlockedTotal counts requests refused by the guardrail pipeline.
	SecurityBlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breakwater_security_blocked_total",
		Help: "Requests refused by the security pipeline.",
	})

	// UpstreamRetriesTotal counts retry attempts against upstream services.
	UpstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breakwater_upstream_retries_total",
		Help: "Retry attempts against upstream services, labeled by operation.",
	}, []string{"op"})

	// RequestDuration tracks end-to-end pipeline latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "breakwater_chat_request_duration_seconds",
		Help:    "End-to-end chat request latency.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"endpoint"})
)

// Outcome labels for RequestsTotal.
const (
	OutcomeOK      = "ok"
	OutcomeBlocked = "blocked"
	OutcomeError   = "error"
)
