// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

import (
	"net"
	"strings"
	"time"
)

// APIKeyPrefix is prepended to every generated key so malformed
// credentials can be rejected before any hash comparison.
const APIKeyPrefix = "ak_"

// APIKeyMinLength is the minimum plausible length of a presented key
// (prefix plus encoded random material).
const APIKeyMinLength = 32

// RateLimits are the per-principal fixed-window request ceilings.
// Zero means the corresponding window is unlimited.
type RateLimits struct {
	RequestsPerMinute int64 `json:"requests_per_minute"`
	RequestsPerDay    int64 `json:"requests_per_day"`
}

// DefaultAPIKeyRateLimits returns the limits applied to keys created
// without explicit overrides: 60 requests per minute, 10000 per day.
func DefaultAPIKeyRateLimits() RateLimits {
	return RateLimits{RequestsPerMinute: 60, RequestsPerDay: 10000}
}

// APIKey is the stored record for a service credential. The plaintext
// key is shown once at creation time and never persisted; KeyHash is
// a bcrypt digest of its SHA-256.
type APIKey struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"key_hash"`
	Scopes      []string   `json:"scopes"`
	IPAllowlist []string   `json:"ip_allowlist,omitempty"`
	RateLimits  RateLimits `json:"rate_limits"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	LastUsedIP  string     `json:"last_used_ip,omitempty"`
	UsageCount  int64      `json:"usage_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsExpired reports whether the key has an expiry in the past.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// IsIPAllowed checks clientIP against the key's allowlist.
func (k *APIKey) IsIPAllowed(clientIP string) bool {
	return ipAllowed(k.IPAllowlist, clientIP)
}

// ipAllowed matches clientIP against allowlist entries, which may be
// single addresses or CIDR blocks. An empty allowlist admits every
// address.
func ipAllowed(allowlist []string, clientIP string) bool {
	if len(allowlist) == 0 {
		return true
	}
	ip := net.ParseIP(strings.TrimSpace(clientIP))
	if ip == nil {
		return false
	}
	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, cidr, err := net.ParseCIDR(entry); err == nil && cidr.Contains(ip) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(ip) {
			return true
		}
	}
	return false
}

// Identity derives the runtime identity carried on authorized
// requests. It deliberately omits the key hash.
func (k *APIKey) Identity() *APIKeyIdent {
	return &APIKeyIdent{
		KeyID:       k.ID,
		TenantID:    k.TenantID,
		Name:        k.Name,
		Scopes:      k.Scopes,
		IPAllowlist: k.IPAllowlist,
		RateLimits:  k.RateLimits,
		ExpiresAt:   k.ExpiresAt,
	}
}

// APIKeyIdent is the verified identity of an API key principal.
type APIKeyIdent struct {
	KeyID       string     `json:"key_id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Scopes      []string   `json:"scopes"`
	IPAllowlist []string   `json:"ip_allowlist,omitempty"`
	RateLimits  RateLimits `json:"rate_limits"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// IsIPAllowed checks clientIP against the identity's allowlist.
func (i *APIKeyIdent) IsIPAllowed(clientIP string) bool {
	return ipAllowed(i.IPAllowlist, clientIP)
}

// HasScope reports whether the key grants the named scope. A literal
// "*" scope grants everything.
func (i *APIKeyIdent) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}
