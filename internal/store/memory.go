// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package store

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/tenantgate/internal/models"
)

// MemoryStore is a mutex-guarded in-memory backend for development
// and tests. Records are copied on the way in and out so callers can
// never mutate stored state outside UpdateUsage.
type MemoryStore struct {
	mu       sync.RWMutex
	tenants  map[string]*models.Tenant
	slugs    map[string]string // slug -> tenant ID
	users         map[string]*models.User
	sessions      map[string]*models.Session
	byHash        map[string]string // token hash -> session ID
	byRefreshHash map[string]string // refresh token hash -> session ID
	keys          map[string]*models.APIKey
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:       make(map[string]*models.Tenant),
		slugs:         make(map[string]string),
		users:         make(map[string]*models.User),
		sessions:      make(map[string]*models.Session),
		byHash:        make(map[string]string),
		byRefreshHash: make(map[string]string),
		keys:          make(map[string]*models.APIKey),
	}
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTenant(t), nil
}

func (m *MemoryStore) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.slugs[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTenant(m.tenants[id]), nil
}

func (m *MemoryStore) UpdateUsage(_ context.Context, id string, mutate func(*models.UsageStats) error) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	stats := t.UsageStats
	if err := mutate(&stats); err != nil {
		return nil, err
	}
	t.UsageStats = stats
	t.UpdatedAt = time.Now().UTC()
	return cloneTenant(t), nil
}

func (m *MemoryStore) SaveTenant(_ context.Context, t *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.tenants[t.ID]; ok && old.Slug != t.Slug {
		delete(m.slugs, old.Slug)
	}
	m.tenants[t.ID] = cloneTenant(t)
	if t.Slug != "" {
		m.slugs[t.Slug] = t.ID
	}
	return nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	cp.Permissions = append([]string(nil), u.Permissions...)
	return &cp, nil
}

func (m *MemoryStore) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	cp.Permissions = append([]string(nil), u.Permissions...)
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) FindSessionByTokenHash(_ context.Context, hash string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.sessions[id]
	return &cp, nil
}

func (m *MemoryStore) FindSessionByRefreshTokenHash(_ context.Context, hash string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byRefreshHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.sessions[id]
	return &cp, nil
}

func (m *MemoryStore) UpdateSessionStatus(_ context.Context, id string, status models.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	return nil
}

func (m *MemoryStore) SaveSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	m.byHash[s.TokenHash] = s.ID
	if s.RefreshTokenHash != "" {
		m.byRefreshHash[s.RefreshTokenHash] = s.ID
	}
	return nil
}

func (m *MemoryStore) FindActiveKeys(_ context.Context) ([]*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		if !k.Active {
			continue
		}
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) UpdateKeyUsage(_ context.Context, id string, usedAt time.Time, clientIP string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	t := usedAt
	k.LastUsedAt = &t
	k.LastUsedIP = clientIP
	k.UsageCount++
	return nil
}

func (m *MemoryStore) SaveKey(_ context.Context, k *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *k
	m.keys[k.ID] = &cp
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryStore) Close() error { return nil }

func cloneTenant(t *models.Tenant) *models.Tenant {
	cp := *t
	return &cp
}
