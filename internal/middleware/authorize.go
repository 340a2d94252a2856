// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantgate/internal/authz"
	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
)

const decisionKey contextKey = "authz_decision"

// usageRecordTimeout bounds the detached post-request usage write.
const usageRecordTimeout = 5 * time.Second

// Authorize gates a route on an access policy. The decision (with
// its principal and tenant) is stored on the request context for
// handlers. When the policy checks quota, one monthly API call is
// recorded after the handler completes, off the request path.
func Authorize(a *authz.Authorizer, resolver *IPResolver, policy models.AccessPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := BuildRequestMeta(r, resolver)

			decision, err := a.Authorize(r.Context(), policy, meta)
			if err != nil {
				logger := logging.FromContext(r.Context())
				logger.Error().Err(err).
					Str("path", r.URL.Path).Msg("authorization pipeline failure")
				writeDenial(w, http.StatusInternalServerError, "INTERNAL", "internal error", 0)
				return
			}
			if !decision.Allowed {
				writeDenial(w, decision.Status, string(decision.Code), decision.Message, decision.RetryAfter)
				return
			}

			ctx := context.WithValue(r.Context(), decisionKey, decision)
			next.ServeHTTP(w, r.WithContext(ctx))

			if policy.CheckQuota && decision.Tenant != nil {
				recordAPICall(a, decision.Tenant.ID)
			}
		})
	}
}

// recordAPICall settles one unit of monthly API call usage after the
// response has been written.
func recordAPICall(a *authz.Authorizer, tenantID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), usageRecordTimeout)
		defer cancel()
		if err := a.RecordUsage(ctx, tenantID, models.QuotaMonthlyAPICalls, 1); err != nil {
			logger := logging.Get()
			logger.Warn().Err(err).Str("tenant_id", tenantID).
				Msg("failed to record api call usage")
		}
	}()
}

// DecisionFromContext returns the authorization decision attached by
// Authorize, or nil on unguarded routes.
func DecisionFromContext(ctx context.Context) *authz.Decision {
	if d, ok := ctx.Value(decisionKey).(*authz.Decision); ok {
		return d
	}
	return nil
}

// BuildRequestMeta projects an HTTP request into the pipeline's
// transport-neutral shape, extracting at most one credential.
func BuildRequestMeta(r *http.Request, resolver *IPResolver) *models.RequestMeta {
	meta := &models.RequestMeta{
		Method:   r.Method,
		Host:     r.Host,
		Path:     r.URL.Path,
		Header:   r.Header,
		Query:    r.URL.Query(),
		ClientIP: resolver.ClientIP(r),
	}

	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			meta.BearerToken = strings.TrimSpace(token)
		}
	}
	if meta.BearerToken == "" {
		meta.APIKey = strings.TrimSpace(r.Header.Get("X-API-Key"))
	}
	return meta
}

type denialBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retry_after_seconds,omitempty"`
}

func writeDenial(w http.ResponseWriter, status int, code, message string, retryAfter time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	body := denialBody{Error: code, Message: message}
	if retryAfter > 0 {
		secs := int64(retryAfter / time.Second)
		if secs < 1 {
			secs = 1
		}
		body.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
