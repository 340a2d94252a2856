// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package quota enforces per-tenant resource ceilings. Counters are
// held on the tenant record; the calendar-windowed ones (monthly API
// calls, daily AI queries) reset lazily on first touch after the
// boundary rather than by any scheduled job.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/store"
)

// Thresholds are the warning and critical utilization percentages
// used for health grading and stats warnings.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// DefaultThresholds warns at 80% and goes critical at 95%.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 80, Critical: 95}
}

// Governor answers quota questions and applies usage updates.
type Governor struct {
	tenants    store.TenantStore
	thresholds Thresholds
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGovernor creates a governor over the tenant store.
func NewGovernor(tenants store.TenantStore, thresholds Thresholds) *Governor {
	if thresholds.Warning <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Governor{
		tenants:    tenants,
		thresholds: thresholds,
		logger:     logging.WithComponent("quota.governor"),
		now:        time.Now,
	}
}

// CheckRequest asks whether the tenant may consume amount units of
// the quota type. Time-windowed counters are reset first if a
// calendar boundary has passed. The check itself does not consume.
func (g *Governor) CheckRequest(ctx context.Context, tenantID string, qt models.QuotaType, amount int64) (*models.QuotaCheckResult, error) {
	if !qt.Valid() {
		return nil, autherr.Ef(autherr.KindMalformedRequest, "unknown quota type %q", qt)
	}
	if qt.IsTimeWindowed() {
		if err := g.ResetIfDue(ctx, tenantID); err != nil {
			return nil, err
		}
	}

	t, err := g.tenants.FindByID(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, autherr.E(autherr.KindMalformedRequest, "unknown tenant")
	}
	if err != nil {
		return nil, autherr.Internal(err)
	}

	usage := g.usageFor(t, qt)
	res := &models.QuotaCheckResult{
		TenantID:  tenantID,
		QuotaType: qt,
		Usage:     usage,
	}

	// Exceeded means strictly over the ceiling; sitting exactly at the
	// limit is full but not exceeded. Either way there is no headroom
	// for a further request.
	switch {
	case usage.Exceeded:
		res.Reason = fmt.Sprintf("quota %s exceeded: %d of %d", qt, usage.Current, usage.Limit)
	case usage.Current+amount > usage.Limit:
		res.Reason = fmt.Sprintf("quota %s has insufficient headroom for %d more", qt, amount)
	default:
		res.Allowed = true
	}
	return res, nil
}

// RecordUsage applies a signed delta to the tenant's counter inside
// one atomic store update. Decrements clamp at zero. Returns the
// post-update snapshot.
func (g *Governor) RecordUsage(ctx context.Context, tenantID string, qt models.QuotaType, delta int64) (*models.QuotaUsage, error) {
	if !qt.Valid() {
		return nil, autherr.Ef(autherr.KindMalformedRequest, "unknown quota type %q", qt)
	}
	if qt.IsTimeWindowed() {
		if err := g.ResetIfDue(ctx, tenantID); err != nil {
			return nil, err
		}
	}

	now := g.now().UTC()
	t, err := g.tenants.UpdateUsage(ctx, tenantID, func(s *models.UsageStats) error {
		s.Add(qt, delta)
		s.LastUpdated = now
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, autherr.E(autherr.KindMalformedRequest, "unknown tenant")
	}
	if err != nil {
		return nil, autherr.Internal(err)
	}

	usage := g.usageFor(t, qt)
	if usage.Exceeded {
		g.logger.Warn().Str("tenant_id", tenantID).Str("quota_type", string(qt)).
			Int64("current", usage.Current).Int64("limit", usage.Limit).
			Msg("tenant over quota after usage update")
	}
	return &usage, nil
}

// ResetIfDue zeroes the windowed counters whose calendar boundary has
// passed since the tenant's last update. Idempotent within a window:
// the first call resets, later calls see a fresh LastUpdated and do
// nothing more.
func (g *Governor) ResetIfDue(ctx context.Context, tenantID string) error {
	now := g.now().UTC()
	_, err := g.tenants.UpdateUsage(ctx, tenantID, func(s *models.UsageStats) error {
		last := s.LastUpdated.UTC()
		if last.Year() != now.Year() || last.Month() != now.Month() {
			s.MonthlyAPICalls = 0
		}
		ly, lm, ld := last.Date()
		ny, nm, nd := now.Date()
		if ly != ny || lm != nm || ld != nd {
			s.DailyAIQueries = 0
		}
		s.LastUpdated = now
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return autherr.E(autherr.KindMalformedRequest, "unknown tenant")
	}
	if err != nil {
		return autherr.Internal(err)
	}
	return nil
}

// Stats reports every quota dimension for a tenant plus an overall
// health grade and human-readable warnings for the hot dimensions.
func (g *Governor) Stats(ctx context.Context, tenantID string) (*models.QuotaStats, error) {
	if err := g.ResetIfDue(ctx, tenantID); err != nil {
		return nil, err
	}
	t, err := g.tenants.FindByID(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, autherr.E(autherr.KindMalformedRequest, "unknown tenant")
	}
	if err != nil {
		return nil, autherr.Internal(err)
	}

	stats := &models.QuotaStats{
		TenantID:    tenantID,
		Quotas:      make([]models.QuotaUsage, 0, len(models.AllQuotaTypes)),
		LastUpdated: t.UsageStats.LastUpdated,
	}

	var maxPct float64
	for _, qt := range models.AllQuotaTypes {
		u := g.usageFor(t, qt)
		stats.Quotas = append(stats.Quotas, u)
		if u.Percentage > maxPct {
			maxPct = u.Percentage
		}
		switch {
		case u.Exceeded:
			stats.Warnings = append(stats.Warnings,
				fmt.Sprintf("%s exceeded: %d of %d", qt, u.Current, u.Limit))
		case u.Percentage >= g.thresholds.Critical:
			stats.Warnings = append(stats.Warnings,
				fmt.Sprintf("%s critical: %.1f%% used", qt, u.Percentage))
		case u.Percentage >= g.thresholds.Warning:
			stats.Warnings = append(stats.Warnings,
				fmt.Sprintf("%s approaching limit: %.1f%% used", qt, u.Percentage))
		}
	}
	stats.OverallHealth = models.HealthForPercentage(maxPct)
	return stats, nil
}

// QuotaCheck names one dimension-and-amount pair for batch checks.
type QuotaCheck struct {
	QuotaType models.QuotaType `json:"quota_type"`
	Amount    int64            `json:"amount"`
}

// CheckAll evaluates several quota checks in one call, for handlers
// that consume multiple resource types at once.
func (g *Governor) CheckAll(ctx context.Context, tenantID string, checks []QuotaCheck) ([]*models.QuotaCheckResult, error) {
	out := make([]*models.QuotaCheckResult, 0, len(checks))
	for _, c := range checks {
		res, err := g.CheckRequest(ctx, tenantID, c.QuotaType, c.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// usageFor builds the snapshot for one dimension. A zero limit means
// the resource is not provisioned, which reads as exceeded the moment
// anything is consumed.
func (g *Governor) usageFor(t *models.Tenant, qt models.QuotaType) models.QuotaUsage {
	current := t.UsageStats.Get(qt)
	limit := t.QuotaLimits.For(qt)

	u := models.QuotaUsage{
		QuotaType: qt,
		Current:   current,
		Limit:     limit,
		Exceeded:  current > limit,
		Remaining: limit - current,
	}
	if u.Remaining < 0 {
		u.Remaining = 0
	}
	if limit > 0 {
		u.Percentage = float64(current) / float64(limit) * 100
	} else if current > 0 {
		u.Percentage = 100
	}
	if qt.IsTimeWindowed() {
		reset := g.nextReset(qt)
		u.ResetAt = &reset
	}
	return u
}

// nextReset returns the next calendar boundary for a windowed type:
// the first of next month or next UTC midnight.
func (g *Governor) nextReset(qt models.QuotaType) time.Time {
	now := g.now().UTC()
	if qt == models.QuotaMonthlyAPICalls {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
