// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package tenant resolves which tenant a request addresses. Four
// strategies run in a configured priority order and the first one
// that yields a stored tenant wins; later strategies are not
// consulted even if they would disagree.
package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/store"
)

// Strategy names a tenant resolution source.
type Strategy string

const (
	StrategyHeader    Strategy = "header"
	StrategySubdomain Strategy = "subdomain"
	StrategyPath      Strategy = "path"
	StrategyQuery     Strategy = "query"
)

// Headers carrying an explicit tenant selection. The ID header is
// consulted before the slug header.
const (
	TenantIDHeader   = "X-Tenant-ID"
	TenantSlugHeader = "X-Tenant-Slug"
)

// DefaultStrategies is the standard priority order.
var DefaultStrategies = []Strategy{StrategyHeader, StrategySubdomain, StrategyPath, StrategyQuery}

// reservedSubdomains are host labels that never name a tenant.
var reservedSubdomains = map[string]struct{}{
	"www": {}, "api": {}, "app": {}, "admin": {}, "dashboard": {},
}

// reservedPathSegments are leading path segments that never name a
// tenant slug.
var reservedPathSegments = map[string]struct{}{
	"api": {}, "health": {}, "healthz": {}, "metrics": {},
	"docs": {}, "static": {}, "assets": {}, "favicon.ico": {},
}

// Resolver maps requests to tenants.
type Resolver struct {
	tenants    store.TenantStore
	strategies []Strategy
	logger     zerolog.Logger
}

// NewResolver creates a resolver running the given strategies in
// order. An empty list means DefaultStrategies.
func NewResolver(tenants store.TenantStore, strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Resolver{
		tenants:    tenants,
		strategies: strategies,
		logger:     logging.WithComponent("tenant.resolver"),
	}
}

// Resolve returns the tenant addressed by the request, or (nil, nil)
// when no strategy matches. A miss is not an error; whether tenant
// context is required is the policy evaluator's call. A syntactically
// invalid explicit tenant ID is an error, since the caller clearly
// intended to select a tenant and failed.
func (r *Resolver) Resolve(ctx context.Context, meta *models.RequestMeta) (*models.Tenant, error) {
	for _, s := range r.strategies {
		var (
			t   *models.Tenant
			err error
		)
		switch s {
		case StrategyHeader:
			t, err = r.fromHeader(ctx, meta)
		case StrategySubdomain:
			t, err = r.fromSubdomain(ctx, meta)
		case StrategyPath:
			t, err = r.fromPath(ctx, meta)
		case StrategyQuery:
			t, err = r.fromQuery(ctx, meta)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if t != nil {
			r.logger.Debug().Str("strategy", string(s)).Str("tenant_id", t.ID).
				Msg("tenant resolved")
			return t, nil
		}
	}
	return nil, nil
}

func (r *Resolver) fromHeader(ctx context.Context, meta *models.RequestMeta) (*models.Tenant, error) {
	if id := strings.TrimSpace(meta.Header.Get(TenantIDHeader)); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return nil, autherr.Ef(autherr.KindMalformedRequest, "invalid %s header", TenantIDHeader)
		}
		return r.lookupByID(ctx, id)
	}
	if slug := strings.TrimSpace(meta.Header.Get(TenantSlugHeader)); slug != "" {
		return r.lookupBySlug(ctx, strings.ToLower(slug))
	}
	return nil, nil
}

func (r *Resolver) fromSubdomain(ctx context.Context, meta *models.RequestMeta) (*models.Tenant, error) {
	host := meta.Host
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host, "]") {
		host = host[:i]
	}
	labels := strings.Split(host, ".")
	// Need at least sub.domain.tld for the first label to be a slug.
	if len(labels) < 3 {
		return nil, nil
	}
	slug := strings.ToLower(labels[0])
	if _, reserved := reservedSubdomains[slug]; reserved {
		return nil, nil
	}
	return r.lookupBySlug(ctx, slug)
}

func (r *Resolver) fromPath(ctx context.Context, meta *models.RequestMeta) (*models.Tenant, error) {
	segments := splitPath(meta.Path)
	if len(segments) == 0 {
		return nil, nil
	}

	// /tenants/{id}/... addresses a tenant by ID.
	if segments[0] == "tenants" && len(segments) >= 2 {
		if _, err := uuid.Parse(segments[1]); err == nil {
			return r.lookupByID(ctx, segments[1])
		}
		return nil, nil
	}

	// Otherwise a non-reserved leading segment may be a slug.
	slug := strings.ToLower(segments[0])
	if _, reserved := reservedPathSegments[slug]; reserved {
		return nil, nil
	}
	return r.lookupBySlug(ctx, slug)
}

func (r *Resolver) fromQuery(ctx context.Context, meta *models.RequestMeta) (*models.Tenant, error) {
	if id := strings.TrimSpace(meta.Query.Get("tenant_id")); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return nil, autherr.E(autherr.KindMalformedRequest, "invalid tenant_id parameter")
		}
		return r.lookupByID(ctx, id)
	}
	if slug := strings.TrimSpace(meta.Query.Get("tenant_slug")); slug != "" {
		return r.lookupBySlug(ctx, strings.ToLower(slug))
	}
	return nil, nil
}

// lookupByID treats a missing tenant as a strategy miss, not an
// error, so resolution falls through to the next strategy.
func (r *Resolver) lookupByID(ctx context.Context, id string) (*models.Tenant, error) {
	t, err := r.tenants.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, autherr.Internal(err)
	}
	return t, nil
}

func (r *Resolver) lookupBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	t, err := r.tenants.FindBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, autherr.Internal(err)
	}
	return t, nil
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
