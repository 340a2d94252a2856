// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tenantgate/internal/authz"
	"github.com/tomtom215/tenantgate/internal/middleware"
	"github.com/tomtom215/tenantgate/internal/models"
)

// RouterConfig carries the pieces the router composes.
type RouterConfig struct {
	Authorizer *authz.Authorizer
	IPResolver *middleware.IPResolver
	Throttle   *middleware.IPThrottle
}

// NewRouter assembles the HTTP surface. Route groups differ only in
// the policy handed to the authorization middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewHandler(cfg.Authorizer)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	if cfg.Throttle != nil {
		r.Use(cfg.Throttle.Handler)
	}

	// Operational endpoints sit outside the pipeline; the health
	// probe still gets a coarse per-IP ceiling.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(300, time.Minute))
		r.Get("/healthz", h.Health)
	})
	r.Handle("/metrics", promhttp.Handler())

	authorize := func(policy models.AccessPolicy) func(http.Handler) http.Handler {
		return middleware.Authorize(cfg.Authorizer, cfg.IPResolver, policy)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Identity introspection works for anonymous callers too.
		r.Group(func(r chi.Router) {
			r.Use(authorize(models.PublicPolicy()))
			r.Get("/whoami", h.Whoami)
		})

		// Tenant-scoped quota surface.
		r.Group(func(r chi.Router) {
			r.Use(authorize(models.APIStandardPolicy()))
			r.Get("/quota/stats", h.QuotaStats)
			r.Post("/quota/check", h.QuotaCheck)
		})

		// Usage settlement needs an explicit grant on top of the
		// standard posture.
		r.Group(func(r chi.Router) {
			r.Use(authorize(models.APIStandardPolicy().WithPermissions("quota:write")))
			r.Post("/usage", h.RecordUsage)
		})

		// Cross-tenant admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(authorize(models.AdminOnlyPolicy()))
			r.Get("/tenants/{tenantID}/quota", h.AdminTenantQuota)
		})
	})

	return r
}
