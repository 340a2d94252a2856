// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package tenant

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/store"
)

const (
	acmeID   = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	globexID = "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
)

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemoryStore()
	for _, tn := range []*models.Tenant{
		{ID: acmeID, Slug: "acme", Status: models.TenantStatusActive},
		{ID: globexID, Slug: "globex", Status: models.TenantStatusActive},
	} {
		if err := m.SaveTenant(ctx, tn); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func metaFor(host, path string, header map[string]string, query map[string]string) *models.RequestMeta {
	h := make(http.Header)
	for k, v := range header {
		h.Set(k, v)
	}
	q := make(url.Values)
	for k, v := range query {
		q.Set(k, v)
	}
	return &models.RequestMeta{Method: "GET", Host: host, Path: path, Header: h, Query: q}
}

func TestResolverStrategies(t *testing.T) {
	r := NewResolver(seededStore(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		meta   *models.RequestMeta
		wantID string
	}{
		{
			name:   "header",
			meta:   metaFor("example.com", "/api/v1/docs", map[string]string{"X-Tenant-ID": acmeID}, nil),
			wantID: acmeID,
		},
		{
			name:   "header by slug",
			meta:   metaFor("example.com", "/api/v1/docs", map[string]string{"X-Tenant-Slug": "Globex"}, nil),
			wantID: globexID,
		},
		{
			name:   "subdomain",
			meta:   metaFor("globex.example.com", "/api/v1/docs", nil, nil),
			wantID: globexID,
		},
		{
			name:   "subdomain with port",
			meta:   metaFor("globex.example.com:8443", "/api/v1/docs", nil, nil),
			wantID: globexID,
		},
		{
			name:   "reserved subdomain skipped",
			meta:   metaFor("api.example.com", "/acme/docs", nil, nil),
			wantID: acmeID, // falls through to path strategy
		},
		{
			name:   "bare domain has no subdomain",
			meta:   metaFor("example.com", "/acme/docs", nil, nil),
			wantID: acmeID,
		},
		{
			name:   "path by id",
			meta:   metaFor("example.com", "/tenants/"+globexID+"/settings", nil, nil),
			wantID: globexID,
		},
		{
			name:   "path slug",
			meta:   metaFor("example.com", "/acme/dashboard", nil, nil),
			wantID: acmeID,
		},
		{
			name:   "query by id",
			meta:   metaFor("example.com", "/api/v1/docs", nil, map[string]string{"tenant_id": acmeID}),
			wantID: acmeID,
		},
		{
			name:   "query by slug",
			meta:   metaFor("example.com", "/api/v1/docs", nil, map[string]string{"tenant_slug": "globex"}),
			wantID: globexID,
		},
		{
			name:   "no strategy matches",
			meta:   metaFor("example.com", "/api/v1/docs", nil, nil),
			wantID: "",
		},
		{
			name:   "unknown slug is a miss",
			meta:   metaFor("nosuch.example.com", "/api/v1/docs", nil, nil),
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.meta)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantID == "" {
				if got != nil {
					t.Errorf("resolved %s, want none", got.ID)
				}
				return
			}
			if got == nil || got.ID != tt.wantID {
				t.Errorf("resolved %v, want %s", got, tt.wantID)
			}
		})
	}
}

func TestResolverHeaderWinsOverSubdomain(t *testing.T) {
	r := NewResolver(seededStore(t))

	// Header says acme, subdomain says globex; the first strategy in
	// priority order decides.
	meta := metaFor("globex.example.com", "/api/v1/docs",
		map[string]string{"X-Tenant-ID": acmeID}, nil)

	got, err := r.Resolve(context.Background(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != acmeID {
		t.Fatalf("resolved %v, want header tenant %s", got, acmeID)
	}
}

func TestResolverMalformedHeaderID(t *testing.T) {
	r := NewResolver(seededStore(t))
	meta := metaFor("example.com", "/api/v1/docs",
		map[string]string{"X-Tenant-ID": "not-a-uuid"}, nil)

	_, err := r.Resolve(context.Background(), meta)
	if !autherr.IsKind(err, autherr.KindMalformedRequest) {
		t.Fatalf("kind = %v, want malformed request", autherr.KindOf(err))
	}
}

func TestResolverUnknownHeaderIDFallsThrough(t *testing.T) {
	r := NewResolver(seededStore(t))

	// A well-formed but unknown ID is a miss, not an error, and the
	// subdomain strategy still gets its chance.
	meta := metaFor("acme.example.com", "/api/v1/docs",
		map[string]string{"X-Tenant-ID": "00000000-0000-0000-0000-000000000000"}, nil)

	got, err := r.Resolve(context.Background(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != acmeID {
		t.Fatalf("resolved %v, want subdomain tenant", got)
	}
}

func TestResolverCustomStrategyOrder(t *testing.T) {
	r := NewResolver(seededStore(t), StrategyQuery)

	// Only the query strategy is configured; the header must be
	// ignored entirely.
	meta := metaFor("example.com", "/api/v1/docs",
		map[string]string{"X-Tenant-ID": acmeID},
		map[string]string{"tenant_slug": "globex"})

	got, err := r.Resolve(context.Background(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != globexID {
		t.Fatalf("resolved %v, want query tenant", got)
	}
}

func TestResolverReservedPathSegments(t *testing.T) {
	r := NewResolver(seededStore(t), StrategyPath)

	got, err := r.Resolve(context.Background(), metaFor("example.com", "/api/v1/docs", nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("reserved path segment resolved tenant %s", got.ID)
	}
}
