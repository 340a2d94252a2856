// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tenantgate/internal/models"
)

func newTestTenant(id, slug string) *models.Tenant {
	return &models.Tenant{
		ID:          id,
		Slug:        slug,
		Name:        "Test " + slug,
		Status:      models.TenantStatusActive,
		QuotaLimits: models.DefaultQuotaLimits(),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestMemoryStoreTenantLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	tn := newTestTenant("t1", "acme")
	if err := m.SaveTenant(ctx, tn); err != nil {
		t.Fatal(err)
	}

	got, err := m.FindBySlug(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "t1" {
		t.Errorf("FindBySlug returned tenant %s", got.ID)
	}

	// Mutating the returned copy must not affect stored state.
	got.UsageStats.Documents = 999
	fresh, _ := m.FindByID(ctx, "t1")
	if fresh.UsageStats.Documents != 0 {
		t.Error("store leaked a mutable reference")
	}
}

func TestMemoryStoreUpdateUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.SaveTenant(ctx, newTestTenant("t1", "acme")); err != nil {
		t.Fatal(err)
	}

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := m.UpdateUsage(ctx, "t1", func(s *models.UsageStats) error {
					s.Add(models.QuotaMonthlyAPICalls, 1)
					return nil
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	tn, err := m.FindByID(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got := tn.UsageStats.MonthlyAPICalls; got != workers*perWorker {
		t.Errorf("monthly api calls = %d, want %d (lost updates)", got, workers*perWorker)
	}
}

func TestMemoryStoreUpdateUsageMutateError(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.SaveTenant(ctx, newTestTenant("t1", "acme")); err != nil {
		t.Fatal(err)
	}

	sentinel := errors.New("refuse")
	if _, err := m.UpdateUsage(ctx, "t1", func(*models.UsageStats) error {
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("expected mutate error to propagate, got %v", err)
	}
}

func TestMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s := &models.Session{
		ID:               "s1",
		UserID:           "u1",
		TenantID:         "t1",
		TokenHash:        "abc123",
		RefreshTokenHash: "ref456",
		Status:           models.SessionStatusActive,
		ExpiresAt:        time.Now().Add(time.Hour),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := m.SaveSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := m.FindSessionByTokenHash(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "s1" {
		t.Errorf("session id = %s", got.ID)
	}

	got, err = m.FindSessionByRefreshTokenHash(ctx, "ref456")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "s1" || got.RefreshTokenHash != "ref456" {
		t.Errorf("session by refresh hash = %+v", got)
	}
	if _, err := m.FindSessionByRefreshTokenHash(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown refresh hash, got %v", err)
	}

	if err := m.UpdateSessionStatus(ctx, "s1", models.SessionStatusRevoked); err != nil {
		t.Fatal(err)
	}
	got, _ = m.FindSessionByTokenHash(ctx, "abc123")
	if got.Status != models.SessionStatusRevoked {
		t.Errorf("status = %s, want revoked", got.Status)
	}
}

func TestMemoryStoreActiveKeysFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if err := m.SaveKey(ctx, &models.APIKey{ID: "k1", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveKey(ctx, &models.APIKey{ID: "k2", Active: false}); err != nil {
		t.Fatal(err)
	}

	keys, err := m.FindActiveKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].ID != "k1" {
		t.Errorf("active keys = %v", keys)
	}
}
