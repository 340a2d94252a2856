// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

import "time"

// QuotaType identifies one governed resource dimension.
type QuotaType string

const (
	QuotaUsers           QuotaType = "users"
	QuotaKnowledgeBases  QuotaType = "knowledge_bases"
	QuotaDocuments       QuotaType = "documents"
	QuotaStorageBytes    QuotaType = "storage_bytes"
	QuotaMonthlyAPICalls QuotaType = "monthly_api_calls"
	QuotaDailyAIQueries  QuotaType = "daily_ai_queries"
)

// AllQuotaTypes lists every quota type in report order.
var AllQuotaTypes = []QuotaType{
	QuotaUsers,
	QuotaKnowledgeBases,
	QuotaDocuments,
	QuotaStorageBytes,
	QuotaMonthlyAPICalls,
	QuotaDailyAIQueries,
}

// Valid reports whether qt names a known quota type.
func (qt QuotaType) Valid() bool {
	switch qt {
	case QuotaUsers, QuotaKnowledgeBases, QuotaDocuments,
		QuotaStorageBytes, QuotaMonthlyAPICalls, QuotaDailyAIQueries:
		return true
	}
	return false
}

// IsTimeWindowed reports whether the counter resets on a calendar
// boundary (monthly for API calls, daily for AI queries). The other
// four types are gauges that only move on explicit usage updates.
func (qt QuotaType) IsTimeWindowed() bool {
	return qt == QuotaMonthlyAPICalls || qt == QuotaDailyAIQueries
}

// QuotaUsage is a point-in-time snapshot of one quota dimension.
type QuotaUsage struct {
	QuotaType  QuotaType  `json:"quota_type"`
	Current    int64      `json:"current"`
	Limit      int64      `json:"limit"`
	Percentage float64    `json:"percentage"`
	Exceeded   bool       `json:"exceeded"`
	Remaining  int64      `json:"remaining"`
	ResetAt    *time.Time `json:"reset_at,omitempty"`
}

// QuotaCheckResult is the outcome of asking whether a tenant may
// consume a given amount of one quota type.
type QuotaCheckResult struct {
	TenantID  string     `json:"tenant_id"`
	QuotaType QuotaType  `json:"quota_type"`
	Allowed   bool       `json:"allowed"`
	Usage     QuotaUsage `json:"usage"`
	Reason    string     `json:"reason,omitempty"`
}

// QuotaHealth classifies how close a tenant is to its ceilings.
type QuotaHealth string

const (
	QuotaHealthHealthy  QuotaHealth = "healthy"
	QuotaHealthWarning  QuotaHealth = "warning"
	QuotaHealthCritical QuotaHealth = "critical"
	QuotaHealthExceeded QuotaHealth = "exceeded"
)

// HealthForPercentage maps the highest utilization percentage across
// all quota types to a health grade. Below 80% is healthy, 80-95% is
// warning, 95-100% is critical, and anything above 100% is exceeded.
func HealthForPercentage(pct float64) QuotaHealth {
	switch {
	case pct > 100:
		return QuotaHealthExceeded
	case pct >= 95:
		return QuotaHealthCritical
	case pct >= 80:
		return QuotaHealthWarning
	default:
		return QuotaHealthHealthy
	}
}

// QuotaStats aggregates every quota dimension for one tenant.
type QuotaStats struct {
	TenantID      string       `json:"tenant_id"`
	Quotas        []QuotaUsage `json:"quotas"`
	OverallHealth QuotaHealth  `json:"overall_health"`
	Warnings      []string     `json:"warnings,omitempty"`
	LastUpdated   time.Time    `json:"last_updated"`
}
