// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package models defines the core domain types shared across the
// authorization pipeline: tenants, principals, sessions, API keys,
// quota types, and access policies.
package models

import "time"

// TenantStatus represents the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusArchived  TenantStatus = "archived"
)

// Tenant is an isolated customer organization. Every authorized request
// executes in the context of exactly one tenant (or none, for public
// and cross-tenant admin traffic).
type Tenant struct {
	ID     string       `json:"id"`
	Slug   string       `json:"slug"`
	Name   string       `json:"name"`
	Status TenantStatus `json:"status"`

	QuotaLimits QuotaLimits `json:"quota_limits"`
	UsageStats  UsageStats  `json:"usage_stats"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the tenant may serve requests. Any other
// status is rejected before a single policy check runs.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// QuotaLimits holds the per-tenant ceilings for each quota type.
// A limit of zero means the resource is not provisioned at all.
type QuotaLimits struct {
	MaxUsers          int64 `json:"max_users"`
	MaxKnowledgeBases int64 `json:"max_knowledge_bases"`
	MaxDocuments      int64 `json:"max_documents"`
	MaxStorageBytes   int64 `json:"max_storage_bytes"`
	MonthlyAPICalls   int64 `json:"monthly_api_calls"`
	DailyAIQueries    int64 `json:"daily_ai_queries"`
}

// DefaultQuotaLimits returns the limits assigned to newly provisioned
// tenants: 100 users, 10 knowledge bases, 1000 documents, 1 GiB of
// storage, 10000 API calls per month, and 1000 AI queries per day.
func DefaultQuotaLimits() QuotaLimits {
	return QuotaLimits{
		MaxUsers:          100,
		MaxKnowledgeBases: 10,
		MaxDocuments:      1000,
		MaxStorageBytes:   1 << 30,
		MonthlyAPICalls:   10000,
		DailyAIQueries:    1000,
	}
}

// For returns the configured limit for the given quota type.
func (l QuotaLimits) For(qt QuotaType) int64 {
	switch qt {
	case QuotaUsers:
		return l.MaxUsers
	case QuotaKnowledgeBases:
		return l.MaxKnowledgeBases
	case QuotaDocuments:
		return l.MaxDocuments
	case QuotaStorageBytes:
		return l.MaxStorageBytes
	case QuotaMonthlyAPICalls:
		return l.MonthlyAPICalls
	case QuotaDailyAIQueries:
		return l.DailyAIQueries
	default:
		return 0
	}
}

// UsageStats tracks a tenant's current consumption per quota type.
// LastUpdated drives the lazy reset of the calendar-windowed counters.
type UsageStats struct {
	Users           int64     `json:"users"`
	KnowledgeBases  int64     `json:"knowledge_bases"`
	Documents       int64     `json:"documents"`
	StorageBytes    int64     `json:"storage_bytes"`
	MonthlyAPICalls int64     `json:"monthly_api_calls"`
	DailyAIQueries  int64     `json:"daily_ai_queries"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Get returns the current usage for the given quota type.
func (s UsageStats) Get(qt QuotaType) int64 {
	switch qt {
	case QuotaUsers:
		return s.Users
	case QuotaKnowledgeBases:
		return s.KnowledgeBases
	case QuotaDocuments:
		return s.Documents
	case QuotaStorageBytes:
		return s.StorageBytes
	case QuotaMonthlyAPICalls:
		return s.MonthlyAPICalls
	case QuotaDailyAIQueries:
		return s.DailyAIQueries
	default:
		return 0
	}
}

// Add applies a signed delta to the counter for the given quota type,
// clamping the result at zero so decrements can never drive usage
// negative.
func (s *UsageStats) Add(qt QuotaType, delta int64) {
	apply := func(v int64) int64 {
		v += delta
		if v < 0 {
			v = 0
		}
		return v
	}
	switch qt {
	case QuotaUsers:
		s.Users = apply(s.Users)
	case QuotaKnowledgeBases:
		s.KnowledgeBases = apply(s.KnowledgeBases)
	case QuotaDocuments:
		s.Documents = apply(s.Documents)
	case QuotaStorageBytes:
		s.StorageBytes = apply(s.StorageBytes)
	case QuotaMonthlyAPICalls:
		s.MonthlyAPICalls = apply(s.MonthlyAPICalls)
	case QuotaDailyAIQueries:
		s.DailyAIQueries = apply(s.DailyAIQueries)
	}
}
