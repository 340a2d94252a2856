// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package authz

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/tomtom215/tenantgate/internal/auth"
	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/quota"
	"github.com/tomtom215/tenantgate/internal/ratelimit"
	"github.com/tomtom215/tenantgate/internal/store"
	"github.com/tomtom215/tenantgate/internal/tenant"
)

const facadeSecret = "0123456789abcdef0123456789abcdef"

type facadeFixture struct {
	store      *store.MemoryStore
	jwt        *auth.JWTManager
	authorizer *Authorizer
	apiKey     string
}

func newFacadeFixture(t *testing.T) *facadeFixture {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemoryStore()

	tenants := []*models.Tenant{
		{
			ID: "11111111-1111-1111-1111-111111111111", Slug: "acme",
			Status: models.TenantStatusActive, QuotaLimits: models.DefaultQuotaLimits(),
			UsageStats: models.UsageStats{LastUpdated: time.Now().UTC()},
		},
		{
			ID: "22222222-2222-2222-2222-222222222222", Slug: "frozen",
			Status: models.TenantStatusSuspended, QuotaLimits: models.DefaultQuotaLimits(),
			UsageStats: models.UsageStats{LastUpdated: time.Now().UTC()},
		},
	}
	for _, tn := range tenants {
		if err := m.SaveTenant(ctx, tn); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.SaveUser(ctx, &models.User{
		ID: "u1", TenantID: tenants[0].ID, Username: "alice", Role: "editor", Active: true,
	}); err != nil {
		t.Fatal(err)
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SaveKey(ctx, &models.APIKey{
		ID: "k1", TenantID: tenants[0].ID, KeyHash: hash, Active: true,
		Scopes: []string{"documents:read"},
	}); err != nil {
		t.Fatal(err)
	}

	jwtMgr, err := auth.NewJWTManager(facadeSecret, time.Minute, "tenantgate")
	if err != nil {
		t.Fatal(err)
	}

	limiter := ratelimit.NewLimiter()
	t.Cleanup(limiter.Stop)
	enforcer, err := NewEnforcer(EnforcerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	governor := quota.NewGovernor(m, quota.DefaultThresholds())
	evaluator := NewEvaluator(governor, limiter, enforcer, models.RateLimits{RequestsPerMinute: 1000})
	verifier := auth.NewVerifier(jwtMgr, m, m, nil, m)
	resolver := tenant.NewResolver(m)

	return &facadeFixture{
		store:      m,
		jwt:        jwtMgr,
		authorizer: NewAuthorizer(verifier, resolver, evaluator, governor),
		apiKey:     key,
	}
}

func (f *facadeFixture) meta(host string, tenantHeader string) *models.RequestMeta {
	h := make(http.Header)
	if tenantHeader != "" {
		h.Set("X-Tenant-ID", tenantHeader)
	}
	return &models.RequestMeta{
		Method: "GET", Host: host, Path: "/api/v1/docs",
		Header: h, Query: make(url.Values), ClientIP: "203.0.113.9",
	}
}

func TestAuthorizeBearerHappyPath(t *testing.T) {
	f := newFacadeFixture(t)
	token, err := f.jwt.GenerateToken(&models.User{ID: "u1", TenantID: "11111111-1111-1111-1111-111111111111"})
	if err != nil {
		t.Fatal(err)
	}

	meta := f.meta("acme.example.com", "")
	meta.BearerToken = token

	d, err := f.authorizer.Authorize(context.Background(), models.APIStandardPolicy(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("denied: %s %s", d.Code, d.Message)
	}
	if d.Principal == nil || !d.Principal.IsUser() {
		t.Error("decision should carry the user principal")
	}
	if d.Tenant == nil || d.Tenant.Slug != "acme" {
		t.Errorf("decision tenant = %+v", d.Tenant)
	}
}

func TestAuthorizeAPIKeyHappyPath(t *testing.T) {
	f := newFacadeFixture(t)

	meta := f.meta("acme.example.com", "")
	meta.APIKey = f.apiKey

	d, err := f.authorizer.Authorize(context.Background(), models.APIStandardPolicy(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("denied: %s %s", d.Code, d.Message)
	}
	if !d.Principal.IsAPIKey() {
		t.Error("decision should carry the api key principal")
	}
}

func TestAuthorizeMissingCredential(t *testing.T) {
	f := newFacadeFixture(t)

	d, err := f.authorizer.Authorize(context.Background(), models.APIStandardPolicy(),
		f.meta("acme.example.com", ""))
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("anonymous request against the standard policy must be denied")
	}
	if d.Code != autherr.KindMissingCredential || d.Status != http.StatusUnauthorized {
		t.Errorf("code = %s status = %d", d.Code, d.Status)
	}
}

func TestAuthorizeAnonymousAllowedByPublicPolicy(t *testing.T) {
	f := newFacadeFixture(t)

	d, err := f.authorizer.Authorize(context.Background(), models.PublicPolicy(),
		f.meta("acme.example.com", ""))
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("denied: %s", d.Code)
	}
	if d.Principal != nil {
		t.Error("anonymous decision should carry no principal")
	}
}

func TestAuthorizeInactiveTenantGatesEverything(t *testing.T) {
	f := newFacadeFixture(t)

	// Valid credentials, suspended tenant addressed via header.
	token, err := f.jwt.GenerateToken(&models.User{ID: "u1", TenantID: "11111111-1111-1111-1111-111111111111"})
	if err != nil {
		t.Fatal(err)
	}
	meta := f.meta("example.com", "22222222-2222-2222-2222-222222222222")
	meta.BearerToken = token

	d, err := f.authorizer.Authorize(context.Background(), models.APIStandardPolicy(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Code != autherr.KindTenantInactive {
		t.Fatalf("code = %s, want tenant inactive regardless of credentials", d.Code)
	}
	if d.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", d.Status)
	}
}

func TestAuthorizeQuotaExceededEndToEnd(t *testing.T) {
	f := newFacadeFixture(t)
	ctx := context.Background()

	// Drive the monthly counter to exactly its limit.
	_, err := f.store.UpdateUsage(ctx, "11111111-1111-1111-1111-111111111111", func(s *models.UsageStats) error {
		s.MonthlyAPICalls = 10000
		s.LastUpdated = time.Now().UTC()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	meta := f.meta("acme.example.com", "")
	meta.APIKey = f.apiKey

	d, err := f.authorizer.Authorize(ctx, models.APIStandardPolicy(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Code != autherr.KindQuotaExceeded {
		t.Fatalf("code = %s, want quota exceeded", d.Code)
	}
	if d.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", d.Status)
	}
}

func TestAuthorizeCanceledContext(t *testing.T) {
	f := newFacadeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.authorizer.Authorize(ctx, models.APIStandardPolicy(), f.meta("acme.example.com", ""))
	if err == nil {
		t.Fatal("canceled context should surface as a pipeline error")
	}
}

func TestRecordUsageAndStats(t *testing.T) {
	f := newFacadeFixture(t)
	ctx := context.Background()
	tenantID := "11111111-1111-1111-1111-111111111111"

	if err := f.authorizer.RecordUsage(ctx, tenantID, models.QuotaDocuments, 3); err != nil {
		t.Fatal(err)
	}

	stats, err := f.authorizer.GetQuotaStats(ctx, tenantID)
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range stats.Quotas {
		if u.QuotaType == models.QuotaDocuments && u.Current != 3 {
			t.Errorf("documents usage = %d, want 3", u.Current)
		}
	}
	if stats.OverallHealth != models.QuotaHealthHealthy {
		t.Errorf("health = %s", stats.OverallHealth)
	}
}
