// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

import "time"

// SessionStatus is the lifecycle state of a server-side session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusExpired SessionStatus = "expired"
	SessionStatusRevoked SessionStatus = "revoked"
)

// Session is the server-side record backing an issued bearer token.
// Both the access token and the refresh token are looked up by the
// SHA-256 of their compact form, so a database leak never exposes
// usable credentials. The refresh token outlives the access token and
// lets a client obtain a fresh one without re-authenticating.
type Session struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	TenantID         string        `json:"tenant_id"`
	TokenHash        string        `json:"token_hash"`
	RefreshTokenHash string        `json:"refresh_token_hash,omitempty"`
	Status           SessionStatus `json:"status"`
	ClientIP         string        `json:"client_ip,omitempty"`
	UserAgent        string        `json:"user_agent,omitempty"`
	ExpiresAt        time.Time     `json:"expires_at"`
	RefreshExpiresAt time.Time     `json:"refresh_expires_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	LastActivityAt   time.Time     `json:"last_activity_at"`
}

// IsExpired reports whether the session's deadline has passed,
// independent of its recorded status. Expiry is applied lazily: the
// status flips to expired on the first lookup after the deadline.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsRefreshExpired reports whether the refresh window has also
// closed. A session past this point cannot be renewed, only replaced
// by a new login.
func (s *Session) IsRefreshExpired(now time.Time) bool {
	return now.After(s.RefreshExpiresAt)
}
