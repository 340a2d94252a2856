// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/authz"
	"github.com/tomtom215/tenantgate/internal/middleware"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/quota"
)

// Handler holds the API's dependencies.
type Handler struct {
	authorizer *authz.Authorizer
}

// NewHandler creates the API handler set.
func NewHandler(authorizer *authz.Authorizer) *Handler {
	return &Handler{authorizer: authorizer}
}

// Health answers liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Whoami reports the verified identity and tenant for the request.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	d := middleware.DecisionFromContext(r.Context())
	if d == nil {
		writeError(w, autherr.E(autherr.KindInternal, "no decision on context"))
		return
	}

	resp := map[string]any{"authenticated": d.Principal != nil}
	if d.Principal != nil {
		resp["subject"] = d.Principal.SubjectID()
		resp["tenant_id"] = d.Principal.TenantID()
		resp["is_admin"] = d.Principal.IsAdmin()
		if d.Principal.IsUser() {
			resp["kind"] = "user"
			resp["role"] = d.Principal.User.Role
		} else {
			resp["kind"] = "api_key"
			resp["scopes"] = d.Principal.APIKey.Scopes
		}
	}
	if d.Tenant != nil {
		resp["resolved_tenant"] = map[string]string{
			"id": d.Tenant.ID, "slug": d.Tenant.Slug, "name": d.Tenant.Name,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// QuotaStats reports every quota dimension for the request's tenant.
func (h *Handler) QuotaStats(w http.ResponseWriter, r *http.Request) {
	d := middleware.DecisionFromContext(r.Context())
	if d == nil || d.Tenant == nil {
		writeError(w, autherr.E(autherr.KindTenantRequired, "tenant context required"))
		return
	}
	stats, err := h.authorizer.GetQuotaStats(r.Context(), d.Tenant.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type quotaCheckRequest struct {
	Checks []quota.QuotaCheck `json:"checks"`
}

// QuotaCheck evaluates a batch of prospective consumptions without
// recording anything.
func (h *Handler) QuotaCheck(w http.ResponseWriter, r *http.Request) {
	d := middleware.DecisionFromContext(r.Context())
	if d == nil || d.Tenant == nil {
		writeError(w, autherr.E(autherr.KindTenantRequired, "tenant context required"))
		return
	}

	var req quotaCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, autherr.E(autherr.KindMalformedRequest, "invalid request body"))
		return
	}
	if len(req.Checks) == 0 {
		writeError(w, autherr.E(autherr.KindMalformedRequest, "at least one check required"))
		return
	}
	for _, c := range req.Checks {
		if !c.QuotaType.Valid() {
			writeError(w, autherr.Ef(autherr.KindMalformedRequest, "unknown quota type %q", c.QuotaType))
			return
		}
		if c.Amount < 0 {
			writeError(w, autherr.E(autherr.KindMalformedRequest, "amount must not be negative"))
			return
		}
	}

	results, err := h.authorizer.CheckQuotas(r.Context(), d.Tenant.ID, req.Checks)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type recordUsageRequest struct {
	QuotaType models.QuotaType `json:"quota_type"`
	Delta     int64            `json:"delta"`
}

// RecordUsage settles resource consumption for the request's tenant,
// e.g. after a document upload or deletion. Delta may be negative.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	d := middleware.DecisionFromContext(r.Context())
	if d == nil || d.Tenant == nil {
		writeError(w, autherr.E(autherr.KindTenantRequired, "tenant context required"))
		return
	}

	var req recordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, autherr.E(autherr.KindMalformedRequest, "invalid request body"))
		return
	}
	if !req.QuotaType.Valid() {
		writeError(w, autherr.Ef(autherr.KindMalformedRequest, "unknown quota type %q", req.QuotaType))
		return
	}

	if err := h.authorizer.RecordUsage(r.Context(), d.Tenant.ID, req.QuotaType, req.Delta); err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.authorizer.GetQuotaStats(r.Context(), d.Tenant.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AdminTenantQuota reports quota stats for an arbitrary tenant.
// Reached only through the admin-only policy.
func (h *Handler) AdminTenantQuota(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if _, err := uuid.Parse(tenantID); err != nil {
		writeError(w, autherr.E(autherr.KindMalformedRequest, "invalid tenant id"))
		return
	}
	stats, err := h.authorizer.GetQuotaStats(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
