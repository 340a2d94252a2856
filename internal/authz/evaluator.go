// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package authz

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/quota"
	"github.com/tomtom215/tenantgate/internal/ratelimit"
)

// Evaluator runs the ordered policy checks. Check order is fixed and
// short-circuits on the first failure:
//
//  1. authentication (principal present via an accepted method)
//  2. tenant context and principal-tenant binding
//  3. required permissions
//  4. required roles (hierarchy-aware)
//  5. API key IP allowlist
//  6. quota headroom
//  7. rate limits
//
// The cheap identity checks run before anything that touches the
// store or mutates limiter state, so a denied request never consumes
// rate budget.
type Evaluator struct {
	quotas     *quota.Governor
	limiter    *ratelimit.Limiter
	enforcer   *Enforcer
	userLimits models.RateLimits
	logger     zerolog.Logger
}

// NewEvaluator wires an evaluator. userLimits apply to user
// principals on rate-limited routes; API keys carry their own.
func NewEvaluator(quotas *quota.Governor, limiter *ratelimit.Limiter, enforcer *Enforcer, userLimits models.RateLimits) *Evaluator {
	return &Evaluator{
		quotas:     quotas,
		limiter:    limiter,
		enforcer:   enforcer,
		userLimits: userLimits,
		logger:     logging.WithComponent("authz.evaluator"),
	}
}

// Evaluate applies the policy to a verified (possibly nil, meaning
// anonymous) principal and resolved (possibly nil) tenant. A nil
// return means the request is authorized.
func (e *Evaluator) Evaluate(ctx context.Context, policy models.AccessPolicy, principal *models.Principal, t *models.Tenant, meta *models.RequestMeta) error {
	if err := e.checkAuthentication(policy, principal); err != nil {
		return err
	}
	if err := e.checkTenant(policy, principal, t); err != nil {
		return err
	}
	if err := e.checkPermissions(policy, principal); err != nil {
		return err
	}
	if err := e.checkRoles(policy, principal); err != nil {
		return err
	}
	if err := e.checkIPAllowlist(policy, principal, meta); err != nil {
		return err
	}
	if err := e.checkQuota(ctx, policy, t); err != nil {
		return err
	}
	return e.checkRateLimit(policy, principal)
}

func (e *Evaluator) checkAuthentication(policy models.AccessPolicy, principal *models.Principal) error {
	if principal == nil {
		if policy.AllowsAnonymous() {
			return nil
		}
		return autherr.E(autherr.KindMissingCredential, "authentication required")
	}

	// An empty method list accepts any verified credential.
	if len(policy.AuthMethods) == 0 {
		return nil
	}
	if principal.IsUser() && policy.AllowsMethod(models.AuthMethodJWT) {
		return nil
	}
	if principal.IsAPIKey() && policy.AllowsMethod(models.AuthMethodAPIKey) {
		return nil
	}
	return autherr.E(autherr.KindInvalidCredential, "authentication method not accepted")
}

func (e *Evaluator) checkTenant(policy models.AccessPolicy, principal *models.Principal, t *models.Tenant) error {
	if policy.RequireTenant && t == nil {
		return autherr.E(autherr.KindTenantRequired, "tenant context required")
	}
	if t == nil || principal == nil {
		return nil
	}

	// Platform admins may cross tenant boundaries; everyone else,
	// including every API key, stays home.
	if principal.IsAdmin() {
		return nil
	}
	if principal.TenantID() != t.ID {
		e.logger.Warn().Str("principal_tenant", principal.TenantID()).
			Str("request_tenant", t.ID).Str("subject", principal.SubjectID()).
			Msg("principal addressed a foreign tenant")
		return autherr.E(autherr.KindTenantMismatch, "principal does not belong to this tenant")
	}
	return nil
}

func (e *Evaluator) checkPermissions(policy models.AccessPolicy, principal *models.Principal) error {
	if len(policy.RequiredPermissions) == 0 {
		return nil
	}
	if principal == nil {
		return autherr.E(autherr.KindInsufficientPermission, "permission required")
	}
	if principal.IsAdmin() {
		return nil
	}
	for _, perm := range policy.RequiredPermissions {
		if !principal.HasPermission(perm) {
			return autherr.Ef(autherr.KindInsufficientPermission, "missing permission %q", perm)
		}
	}
	return nil
}

func (e *Evaluator) checkRoles(policy models.AccessPolicy, principal *models.Principal) error {
	if len(policy.RequiredRoles) == 0 {
		return nil
	}
	if principal == nil || !principal.IsUser() {
		return autherr.E(autherr.KindInsufficientRole, "role requirements apply to user principals")
	}
	if principal.IsAdmin() {
		return nil
	}
	for _, required := range policy.RequiredRoles {
		ok, err := e.enforcer.RoleSatisfies(principal.User.Role, required)
		if err != nil {
			return autherr.Internal(err)
		}
		if ok {
			return nil
		}
	}
	return autherr.E(autherr.KindInsufficientRole, "insufficient role")
}

func (e *Evaluator) checkIPAllowlist(policy models.AccessPolicy, principal *models.Principal, meta *models.RequestMeta) error {
	if !policy.CheckIPAllowlist || !principal.IsAPIKey() {
		return nil
	}
	if !principal.APIKey.IsIPAllowed(meta.ClientIP) {
		return autherr.E(autherr.KindIPNotAllowed, "client address not allowed for this key")
	}
	return nil
}

func (e *Evaluator) checkQuota(ctx context.Context, policy models.AccessPolicy, t *models.Tenant) error {
	if !policy.CheckQuota || t == nil {
		return nil
	}
	for _, qt := range policy.EffectiveQuotaTypes() {
		res, err := e.quotas.CheckRequest(ctx, t.ID, qt, 1)
		if err != nil {
			return err
		}
		if !res.Allowed {
			quotaDenials.WithLabelValues(string(qt)).Inc()
			denial := autherr.Ef(autherr.KindQuotaExceeded, "quota exceeded for %s", qt)
			if res.Usage.ResetAt != nil {
				if wait := time.Until(*res.Usage.ResetAt); wait > 0 {
					denial.RetryAfter = wait
				}
			}
			return denial
		}
	}
	return nil
}

func (e *Evaluator) checkRateLimit(policy models.AccessPolicy, principal *models.Principal) error {
	if !policy.EnableRateLimit || principal == nil {
		return nil
	}

	limits := e.userLimits
	kind := "user"
	if principal.IsAPIKey() {
		kind = "apikey"
		limits = principal.APIKey.RateLimits
		if limits.RequestsPerMinute == 0 && limits.RequestsPerDay == 0 {
			limits = models.DefaultAPIKeyRateLimits()
		}
	}

	res := e.limiter.Allow(principal.RateKey(), limits)
	if !res.Allowed {
		rateLimitDenials.WithLabelValues(kind).Inc()
		return autherr.RetryableE(autherr.KindRateLimitExceeded, "rate limit exceeded", res.RetryAfter)
	}
	return nil
}
