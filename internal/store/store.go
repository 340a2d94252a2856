// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package store defines the persistence interfaces consumed by the
// authorization pipeline, plus in-memory and Badger-backed
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/tenantgate/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("store: not found")

// TenantStore persists tenants and their usage counters.
type TenantStore interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)

	// UpdateUsage applies mutate to the tenant's usage stats inside a
	// single atomic read-modify-write. Implementations must guarantee
	// that concurrent updates never lose increments. The returned
	// tenant reflects the post-mutation state.
	UpdateUsage(ctx context.Context, id string, mutate func(*models.UsageStats) error) (*models.Tenant, error)

	// SaveTenant creates or replaces a tenant record.
	SaveTenant(ctx context.Context, t *models.Tenant) error
}

// UserStore looks up user accounts.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
}

// SessionStore persists server-side sessions, looked up by the hash
// of either the access token or the refresh token.
type SessionStore interface {
	FindSessionByTokenHash(ctx context.Context, hash string) (*models.Session, error)
	FindSessionByRefreshTokenHash(ctx context.Context, hash string) (*models.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error
	SaveSession(ctx context.Context, s *models.Session) error
}

// APIKeyStore persists API key records.
type APIKeyStore interface {
	// FindActiveKeys returns every active key. Callers match the
	// presented credential against the stored hashes.
	FindActiveKeys(ctx context.Context) ([]*models.APIKey, error)

	// UpdateKeyUsage records a successful use of the key. Best-effort
	// telemetry; verification never blocks on it.
	UpdateKeyUsage(ctx context.Context, id string, usedAt time.Time, clientIP string) error

	SaveKey(ctx context.Context, k *models.APIKey) error
}

// Store bundles the four record families behind one backend.
type Store interface {
	TenantStore
	UserStore
	SessionStore
	APIKeyStore

	Close() error
}
