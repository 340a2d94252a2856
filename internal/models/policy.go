// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

// AuthMethod names a credential mechanism a policy may accept.
type AuthMethod string

const (
	AuthMethodJWT      AuthMethod = "jwt"
	AuthMethodAPIKey   AuthMethod = "api_key"
	AuthMethodOptional AuthMethod = "optional"
)

// AccessPolicy declares what a route requires. Policies are data, not
// code: handlers attach one and the evaluator runs the same ordered
// checks everywhere.
type AccessPolicy struct {
	// RequireAuth demands a verified principal. With it unset a
	// credential is still verified when presented, but its absence
	// is not an error.
	RequireAuth bool `json:"require_auth"`

	// AuthMethods lists the accepted mechanisms. AuthMethodOptional
	// in the list makes anonymous access acceptable even when
	// RequireAuth is set.
	AuthMethods []AuthMethod `json:"auth_methods"`

	// RequireTenant demands that tenant resolution produced a tenant.
	RequireTenant bool `json:"require_tenant"`

	// RequiredPermissions must all be held by the principal
	// (admin bypasses).
	RequiredPermissions []string `json:"required_permissions,omitempty"`

	// RequiredRoles pass when the principal's role matches any entry
	// or inherits it through the role hierarchy (admin bypasses).
	RequiredRoles []string `json:"required_roles,omitempty"`

	// CheckIPAllowlist enforces API key IP allowlists at policy
	// evaluation time.
	CheckIPAllowlist bool `json:"check_ip_allowlist"`

	// CheckQuota gates the request on the tenant's quota headroom.
	CheckQuota bool `json:"check_quota"`

	// QuotaTypes are the dimensions checked when CheckQuota is set.
	// Empty defaults to monthly API calls.
	QuotaTypes []QuotaType `json:"quota_types,omitempty"`

	// EnableRateLimit applies per-principal fixed-window limits.
	EnableRateLimit bool `json:"enable_rate_limit"`
}

// AllowsMethod reports whether the policy accepts the given method.
func (p AccessPolicy) AllowsMethod(m AuthMethod) bool {
	for _, am := range p.AuthMethods {
		if am == m {
			return true
		}
	}
	return false
}

// AllowsAnonymous reports whether the policy tolerates requests with
// no credential at all.
func (p AccessPolicy) AllowsAnonymous() bool {
	return !p.RequireAuth || p.AllowsMethod(AuthMethodOptional)
}

// EffectiveQuotaTypes returns the quota dimensions to check,
// defaulting to monthly API calls.
func (p AccessPolicy) EffectiveQuotaTypes() []QuotaType {
	if len(p.QuotaTypes) > 0 {
		return p.QuotaTypes
	}
	return []QuotaType{QuotaMonthlyAPICalls}
}

// APIStandardPolicy is the default posture for tenant-scoped API
// routes: any credential, tenant context, quota and rate limiting on.
func APIStandardPolicy() AccessPolicy {
	return AccessPolicy{
		RequireAuth:      true,
		AuthMethods:      []AuthMethod{AuthMethodJWT, AuthMethodAPIKey},
		RequireTenant:    true,
		CheckIPAllowlist: true,
		CheckQuota:       true,
		EnableRateLimit:  true,
	}
}

// AdminOnlyPolicy restricts a route to platform administrators.
// Admin traffic is cross-tenant, so no tenant context is demanded
// and quotas do not apply.
func AdminOnlyPolicy() AccessPolicy {
	return AccessPolicy{
		RequireAuth:     true,
		AuthMethods:     []AuthMethod{AuthMethodJWT},
		RequiredRoles:   []string{"admin"},
		EnableRateLimit: true,
	}
}

// PublicPolicy verifies credentials when presented but requires
// nothing.
func PublicPolicy() AccessPolicy {
	return AccessPolicy{
		AuthMethods: []AuthMethod{AuthMethodJWT, AuthMethodAPIKey, AuthMethodOptional},
	}
}

// WithPermissions returns a copy of the policy with the required
// permissions appended.
func (p AccessPolicy) WithPermissions(perms ...string) AccessPolicy {
	p.RequiredPermissions = append(append([]string{}, p.RequiredPermissions...), perms...)
	return p
}

// WithRoles returns a copy of the policy with the required roles
// appended.
func (p AccessPolicy) WithRoles(roles ...string) AccessPolicy {
	p.RequiredRoles = append(append([]string{}, p.RequiredRoles...), roles...)
	return p
}

// WithQuotaTypes returns a copy of the policy checking the given
// quota dimensions.
func (p AccessPolicy) WithQuotaTypes(types ...QuotaType) AccessPolicy {
	p.CheckQuota = true
	p.QuotaTypes = append(append([]QuotaType{}, p.QuotaTypes...), types...)
	return p
}
