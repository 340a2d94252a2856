// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tenantgate",
		Subsystem: "authz",
		Name:      "decisions_total",
		Help:      "Authorization decisions by outcome and denial code.",
	}, []string{"outcome", "code"})

	decisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tenantgate",
		Subsystem: "authz",
		Name:      "decision_duration_seconds",
		Help:      "End-to-end Authorize latency.",
		Buckets:   prometheus.DefBuckets,
	})

	quotaDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tenantgate",
		Subsystem: "quota",
		Name:      "denials_total",
		Help:      "Requests denied for quota exhaustion, by quota type.",
	}, []string{"quota_type"})

	rateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tenantgate",
		Subsystem: "ratelimit",
		Name:      "denials_total",
		Help:      "Requests denied by the fixed-window rate limiter.",
	}, []string{"principal_kind"})
)
