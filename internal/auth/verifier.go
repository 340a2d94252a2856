// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/store"
)

// usageUpdateTimeout bounds the detached last-used write for API keys.
const usageUpdateTimeout = 5 * time.Second

// Verifier turns raw credentials into verified principals. Both paths
// cross-check the store: token claims are re-validated against the
// live user and tenant records, and API keys are matched against
// stored digests.
type Verifier struct {
	jwt          *JWTManager
	tenants      store.TenantStore
	users        store.UserStore
	sessions     store.SessionStore
	keys         store.APIKeyStore
	logger       zerolog.Logger
	usageTimeout time.Duration
}

// NewVerifier wires a verifier. sessions may be nil, in which case
// bearer tokens are validated purely by signature and claims.
func NewVerifier(jwtMgr *JWTManager, tenants store.TenantStore, users store.UserStore, sessions store.SessionStore, keys store.APIKeyStore) *Verifier {
	return &Verifier{
		jwt:          jwtMgr,
		tenants:      tenants,
		users:        users,
		sessions:     sessions,
		keys:         keys,
		logger:       logging.WithComponent("auth.verifier"),
		usageTimeout: usageUpdateTimeout,
	}
}

// VerifyBearerToken validates a JWT and returns the user principal.
// The claimed tenant must exist and be active, and the user record
// must still belong to it. The user record, not the claims, is the
// source of truth for role and permissions.
func (v *Verifier) VerifyBearerToken(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, autherr.E(autherr.KindMissingCredential, "bearer token required")
	}

	claims, err := v.jwt.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherr.Wrap(autherr.KindTokenExpired, "token expired", err)
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, autherr.Wrap(autherr.KindMalformedCredential, "malformed token", err)
		}
		return nil, autherr.Wrap(autherr.KindInvalidCredential, "invalid token", err)
	}

	if v.sessions != nil {
		if err := v.checkSession(ctx, token); err != nil {
			return nil, err
		}
	}

	tenant, err := v.tenants.FindByID(ctx, claims.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, autherr.E(autherr.KindInvalidCredential, "invalid token")
	}
	if err != nil {
		return nil, autherr.Internal(err)
	}
	if !tenant.IsActive() {
		return nil, autherr.E(autherr.KindTenantInactive, "tenant is not active")
	}

	user, err := v.users.FindUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, autherr.E(autherr.KindInvalidCredential, "invalid token")
	}
	if err != nil {
		return nil, autherr.Internal(err)
	}
	if !user.Active {
		return nil, autherr.E(autherr.KindInvalidCredential, "account disabled")
	}
	// Stale or forged tenant claims lose to the stored binding.
	if user.TenantID != claims.TenantID {
		v.logger.Warn().Str("user_id", user.ID).Str("claimed_tenant", claims.TenantID).
			Str("actual_tenant", user.TenantID).Msg("token tenant claim does not match user record")
		return nil, autherr.E(autherr.KindInvalidCredential, "invalid token")
	}

	return &models.Principal{User: user}, nil
}

// checkSession enforces server-side session state for a token.
// Sessions past their deadline are lazily flipped to expired on first
// sight.
func (v *Verifier) checkSession(ctx context.Context, token string) error {
	sess, err := v.sessions.FindSessionByTokenHash(ctx, HashToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return autherr.E(autherr.KindInvalidCredential, "no session for token")
	}
	if err != nil {
		return autherr.Internal(err)
	}

	switch sess.Status {
	case models.SessionStatusRevoked:
		return autherr.E(autherr.KindInvalidCredential, "session revoked")
	case models.SessionStatusExpired:
		return autherr.E(autherr.KindTokenExpired, "session expired")
	}

	if sess.IsExpired(time.Now().UTC()) {
		if err := v.sessions.UpdateSessionStatus(ctx, sess.ID, models.SessionStatusExpired); err != nil {
			v.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to mark session expired")
		}
		return autherr.E(autherr.KindTokenExpired, "session expired")
	}
	return nil
}

// VerifyAPIKey validates a presented key and returns the service
// principal. Keys without the well-known prefix or below minimum
// length are rejected before any hash work.
func (v *Verifier) VerifyAPIKey(ctx context.Context, key, clientIP string) (*models.Principal, error) {
	if key == "" {
		return nil, autherr.E(autherr.KindMissingCredential, "api key required")
	}
	if !strings.HasPrefix(key, models.APIKeyPrefix) || len(key) < models.APIKeyMinLength {
		return nil, autherr.E(autherr.KindMalformedCredential, "malformed api key")
	}

	candidates, err := v.keys.FindActiveKeys(ctx)
	if err != nil {
		return nil, autherr.Internal(err)
	}

	var matched *models.APIKey
	for _, k := range candidates {
		if VerifyKeyHash(key, k.KeyHash) {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, autherr.E(autherr.KindInvalidCredential, "invalid api key")
	}

	now := time.Now().UTC()
	if matched.IsExpired(now) {
		return nil, autherr.E(autherr.KindKeyExpired, "api key expired")
	}
	if !matched.IsIPAllowed(clientIP) {
		v.logger.Warn().Str("key_id", matched.ID).Str("client_ip", clientIP).
			Msg("api key used from disallowed address")
		return nil, autherr.E(autherr.KindIPNotAllowed, "client address not allowed for this key")
	}

	v.recordKeyUsage(matched.ID, now, clientIP)

	return &models.Principal{APIKey: matched.Identity()}, nil
}

// recordKeyUsage updates last-used telemetry off the request path.
// One retry, then a warning; verification never fails on telemetry.
// Each attempt runs under its own deadline so a timed-out first write
// does not doom the retry.
func (v *Verifier) recordKeyUsage(keyID string, usedAt time.Time, clientIP string) {
	go func() {
		update := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), v.usageTimeout)
			defer cancel()
			return v.keys.UpdateKeyUsage(ctx, keyID, usedAt, clientIP)
		}

		err := update()
		if err != nil {
			err = update()
		}
		if err != nil {
			v.logger.Warn().Err(err).Str("key_id", keyID).Msg("failed to record api key usage")
		}
	}()
}
