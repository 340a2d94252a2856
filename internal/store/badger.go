// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
)

// Key prefixes. Slug and token-hash lookups go through small index
// records mapping the secondary key to the primary ID.
const (
	prefixTenant      = "tenant:"
	prefixTenantSlug  = "tenant_slug:"
	prefixUser        = "user:"
	prefixSession        = "session:"
	prefixSessionHash    = "session_hash:"
	prefixSessionRefresh = "session_refresh:"
	prefixAPIKey         = "apikey:"
)

// usageUpdateAttempts bounds the optimistic retry loop for usage
// read-modify-writes under write contention.
const usageUpdateAttempts = 16

// BadgerStore persists all record families in a single embedded
// Badger database. Usage updates run inside Badger transactions and
// retry on conflict, so concurrent increments are never lost.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore opens (or creates) the database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{
		db:     db,
		logger: logging.WithComponent("store.badger"),
	}, nil
}

// Close flushes and closes the database.
func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	if err := b.get(ctx, prefixTenant+id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (b *BadgerStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var id string
	if err := b.get(ctx, prefixTenantSlug+slug, &id); err != nil {
		return nil, err
	}
	return b.FindByID(ctx, id)
}

func (b *BadgerStore) UpdateUsage(ctx context.Context, id string, mutate func(*models.UsageStats) error) (*models.Tenant, error) {
	key := []byte(prefixTenant + id)
	var updated models.Tenant

	for attempt := 0; attempt < usageUpdateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := b.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			var t models.Tenant
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			if err := mutate(&t.UsageStats); err != nil {
				return err
			}
			t.UpdatedAt = time.Now().UTC()
			data, err := json.Marshal(&t)
			if err != nil {
				return err
			}
			updated = t
			return txn.Set(key, data)
		})
		if errors.Is(err, badger.ErrConflict) {
			b.logger.Debug().Str("tenant_id", id).Int("attempt", attempt+1).
				Msg("usage update conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, fmt.Errorf("usage update for tenant %s: exhausted %d attempts", id, usageUpdateAttempts)
}

func (b *BadgerStore) SaveTenant(ctx context.Context, t *models.Tenant) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(prefixTenant+t.ID), data); err != nil {
			return err
		}
		if t.Slug == "" {
			return nil
		}
		slugRef, err := json.Marshal(t.ID)
		if err != nil {
			return err
		}
		return txn.Set([]byte(prefixTenantSlug+t.Slug), slugRef)
	})
}

func (b *BadgerStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := b.get(ctx, prefixUser+id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (b *BadgerStore) SaveUser(ctx context.Context, u *models.User) error {
	return b.set(prefixUser+u.ID, u)
}

func (b *BadgerStore) FindSessionByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	var id string
	if err := b.get(ctx, prefixSessionHash+hash, &id); err != nil {
		return nil, err
	}
	var s models.Session
	if err := b.get(ctx, prefixSession+id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (b *BadgerStore) FindSessionByRefreshTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	var id string
	if err := b.get(ctx, prefixSessionRefresh+hash, &id); err != nil {
		return nil, err
	}
	var s models.Session
	if err := b.get(ctx, prefixSession+id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (b *BadgerStore) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	key := []byte(prefixSession + id)
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var s models.Session
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		}); err != nil {
			return err
		}
		s.Status = status
		data, err := json.Marshal(&s)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (b *BadgerStore) SaveSession(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(prefixSession+s.ID), data); err != nil {
			return err
		}
		idRef, err := json.Marshal(s.ID)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(prefixSessionHash+s.TokenHash), idRef); err != nil {
			return err
		}
		if s.RefreshTokenHash != "" {
			return txn.Set([]byte(prefixSessionRefresh+s.RefreshTokenHash), idRef)
		}
		return nil
	})
}

func (b *BadgerStore) FindActiveKeys(ctx context.Context) ([]*models.APIKey, error) {
	var out []*models.APIKey
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixAPIKey)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var k models.APIKey
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &k)
			}); err != nil {
				return err
			}
			if k.Active {
				out = append(out, &k)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BadgerStore) UpdateKeyUsage(ctx context.Context, id string, usedAt time.Time, clientIP string) error {
	key := []byte(prefixAPIKey + id)
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var k models.APIKey
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &k)
		}); err != nil {
			return err
		}
		t := usedAt
		k.LastUsedAt = &t
		k.LastUsedIP = clientIP
		k.UsageCount++
		data, err := json.Marshal(&k)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (b *BadgerStore) SaveKey(ctx context.Context, k *models.APIKey) error {
	return b.set(prefixAPIKey+k.ID, k)
}

func (b *BadgerStore) get(ctx context.Context, key string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
	return err
}

func (b *BadgerStore) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}
