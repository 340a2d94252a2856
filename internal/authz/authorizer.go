// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package authz

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tenantgate/internal/auth"
	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/quota"
	"github.com/tomtom215/tenantgate/internal/tenant"
)

// Decision is the outcome of one authorization pass. Denials carry
// the taxonomy code, the HTTP status it maps to, and a retry hint
// where one applies. The transport layer renders it without further
// interpretation.
type Decision struct {
	Allowed    bool
	Principal  *models.Principal
	Tenant     *models.Tenant
	Code       autherr.Kind
	Status     int
	Message    string
	RetryAfter time.Duration
}

// Authorizer is the single entry point the transport layer talks to.
// It runs credential verification and tenant resolution concurrently,
// gates on tenant status, and hands the results to the evaluator.
type Authorizer struct {
	verifier  *auth.Verifier
	resolver  *tenant.Resolver
	evaluator *Evaluator
	quotas    *quota.Governor
	logger    zerolog.Logger
}

// NewAuthorizer wires the facade.
func NewAuthorizer(verifier *auth.Verifier, resolver *tenant.Resolver, evaluator *Evaluator, quotas *quota.Governor) *Authorizer {
	return &Authorizer{
		verifier:  verifier,
		resolver:  resolver,
		evaluator: evaluator,
		quotas:    quotas,
		logger:    logging.WithComponent("authz.authorizer"),
	}
}

// Authorize decides whether the request described by meta may proceed
// under the policy. Policy denials come back as a non-allowed
// Decision with a nil error; a non-nil error means the pipeline
// itself failed (store outage, context cancellation) and the caller
// should answer 500.
func (a *Authorizer) Authorize(ctx context.Context, policy models.AccessPolicy, meta *models.RequestMeta) (*Decision, error) {
	start := time.Now()
	d, err := a.authorize(ctx, policy, meta)
	decisionDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		decisionsTotal.WithLabelValues("error", string(autherr.KindInternal)).Inc()
	case d.Allowed:
		decisionsTotal.WithLabelValues("allowed", "").Inc()
	default:
		decisionsTotal.WithLabelValues("denied", string(d.Code)).Inc()
	}
	return d, err
}

func (a *Authorizer) authorize(ctx context.Context, policy models.AccessPolicy, meta *models.RequestMeta) (*Decision, error) {
	type verifyResult struct {
		principal *models.Principal
		err       error
	}
	type resolveResult struct {
		tenant *models.Tenant
		err    error
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verifyCh := make(chan verifyResult, 1)
	resolveCh := make(chan resolveResult, 1)

	go func() {
		p, err := a.verifyCredential(ctx, meta)
		verifyCh <- verifyResult{p, err}
	}()
	go func() {
		t, err := a.resolver.Resolve(ctx, meta)
		resolveCh <- resolveResult{t, err}
	}()

	var (
		vr verifyResult
		rr resolveResult
	)
	for i := 0; i < 2; i++ {
		select {
		case vr = <-verifyCh:
		case rr = <-resolveCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if isInternal(vr.err) {
		return nil, vr.err
	}
	if rr.err != nil {
		if isInternal(rr.err) {
			return nil, rr.err
		}
		return a.deny(meta, rr.err), nil
	}

	// An inactive tenant blocks everything addressed at it, no matter
	// how good the credentials are.
	if rr.tenant != nil && !rr.tenant.IsActive() {
		return a.deny(meta, autherr.E(autherr.KindTenantInactive, "tenant is not active")), nil
	}

	principal := vr.principal
	if vr.err != nil {
		// A missing credential is tolerable when the policy says so;
		// every other verification failure is final.
		if autherr.IsKind(vr.err, autherr.KindMissingCredential) && policy.AllowsAnonymous() {
			principal = nil
		} else {
			return a.deny(meta, vr.err), nil
		}
	}

	if err := a.evaluator.Evaluate(ctx, policy, principal, rr.tenant, meta); err != nil {
		if isInternal(err) {
			return nil, err
		}
		d := a.deny(meta, err)
		d.Principal = principal
		d.Tenant = rr.tenant
		return d, nil
	}

	return &Decision{Allowed: true, Principal: principal, Tenant: rr.tenant}, nil
}

// verifyCredential picks the verification path from what the request
// carries. No credential at all is reported as missing; the caller
// decides whether that matters.
func (a *Authorizer) verifyCredential(ctx context.Context, meta *models.RequestMeta) (*models.Principal, error) {
	switch {
	case meta.BearerToken != "":
		return a.verifier.VerifyBearerToken(ctx, meta.BearerToken)
	case meta.APIKey != "":
		return a.verifier.VerifyAPIKey(ctx, meta.APIKey, meta.ClientIP)
	default:
		return nil, autherr.E(autherr.KindMissingCredential, "no credential presented")
	}
}

func (a *Authorizer) deny(meta *models.RequestMeta, err error) *Decision {
	var ae *autherr.Error
	if !errors.As(err, &ae) {
		ae = autherr.Internal(err)
	}
	a.logger.Info().Str("code", string(ae.Kind)).Str("path", meta.Path).
		Str("client_ip", meta.ClientIP).Msg("request denied")
	return &Decision{
		Code:       ae.Kind,
		Status:     ae.Status(),
		Message:    ae.Message,
		RetryAfter: ae.RetryAfter,
	}
}

func isInternal(err error) bool {
	return err != nil && autherr.KindOf(err) == autherr.KindInternal
}

// RecordUsage settles consumption after a request succeeds: reset any
// due windows, then apply the delta atomically.
func (a *Authorizer) RecordUsage(ctx context.Context, tenantID string, qt models.QuotaType, delta int64) error {
	if _, err := a.quotas.RecordUsage(ctx, tenantID, qt, delta); err != nil {
		return err
	}
	return nil
}

// GetQuotaStats reports all quota dimensions for a tenant.
func (a *Authorizer) GetQuotaStats(ctx context.Context, tenantID string) (*models.QuotaStats, error) {
	return a.quotas.Stats(ctx, tenantID)
}

// CheckQuotas runs a batch of quota checks without consuming.
func (a *Authorizer) CheckQuotas(ctx context.Context, tenantID string, checks []quota.QuotaCheck) ([]*models.QuotaCheckResult, error) {
	return a.quotas.CheckAll(ctx, tenantID, checks)
}
