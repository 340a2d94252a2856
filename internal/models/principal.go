// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

import "time"

// User is a human account belonging to a tenant.
type User struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	IsAdmin     bool      `json:"is_admin"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasPermission reports whether the user holds the named permission.
// Platform admins implicitly hold every permission.
func (u *User) HasPermission(perm string) bool {
	if u.IsAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p == perm || p == "*" {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the user holds every named
// permission.
func (u *User) HasAllPermissions(perms ...string) bool {
	for _, p := range perms {
		if !u.HasPermission(p) {
			return false
		}
	}
	return true
}

// Principal is the authenticated caller attached to a request: either
// a user (from a bearer token) or a service identity (from an API
// key), never both. A nil *Principal means the request is anonymous.
type Principal struct {
	User   *User        `json:"user,omitempty"`
	APIKey *APIKeyIdent `json:"api_key,omitempty"`
}

// IsUser reports whether the principal came from a bearer token.
func (p *Principal) IsUser() bool { return p != nil && p.User != nil }

// IsAPIKey reports whether the principal came from an API key.
func (p *Principal) IsAPIKey() bool { return p != nil && p.APIKey != nil }

// IsAdmin reports whether the principal is a platform administrator.
// API key principals are never admins.
func (p *Principal) IsAdmin() bool {
	return p.IsUser() && p.User.IsAdmin
}

// TenantID returns the tenant the principal belongs to, or "" for
// anonymous callers.
func (p *Principal) TenantID() string {
	switch {
	case p.IsUser():
		return p.User.TenantID
	case p.IsAPIKey():
		return p.APIKey.TenantID
	default:
		return ""
	}
}

// SubjectID returns a stable identifier for the principal, used as
// the casbin subject and in audit logs.
func (p *Principal) SubjectID() string {
	switch {
	case p.IsUser():
		return p.User.ID
	case p.IsAPIKey():
		return p.APIKey.KeyID
	default:
		return ""
	}
}

// RateKey returns the rate-limiter bucket key for the principal.
// User and API key namespaces are kept separate so a user's browser
// traffic never competes with their service keys.
func (p *Principal) RateKey() string {
	switch {
	case p.IsUser():
		return "user:" + p.User.ID
	case p.IsAPIKey():
		return "apikey:" + p.APIKey.KeyID
	default:
		return ""
	}
}

// HasPermission checks the permission against the user's grants or
// the API key's scopes, whichever identity is present.
func (p *Principal) HasPermission(perm string) bool {
	switch {
	case p.IsUser():
		return p.User.HasPermission(perm)
	case p.IsAPIKey():
		return p.APIKey.HasScope(perm)
	default:
		return false
	}
}
