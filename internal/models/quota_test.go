// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

import "testing"

func TestQuotaTypeIsTimeWindowed(t *testing.T) {
	tests := []struct {
		qt       QuotaType
		windowed bool
	}{
		{QuotaUsers, false},
		{QuotaKnowledgeBases, false},
		{QuotaDocuments, false},
		{QuotaStorageBytes, false},
		{QuotaMonthlyAPICalls, true},
		{QuotaDailyAIQueries, true},
	}
	for _, tt := range tests {
		if got := tt.qt.IsTimeWindowed(); got != tt.windowed {
			t.Errorf("%s: IsTimeWindowed() = %v, want %v", tt.qt, got, tt.windowed)
		}
	}
}

func TestQuotaTypeValid(t *testing.T) {
	for _, qt := range AllQuotaTypes {
		if !qt.Valid() {
			t.Errorf("%s should be valid", qt)
		}
	}
	if QuotaType("bogus").Valid() {
		t.Error("bogus quota type should not be valid")
	}
}

func TestHealthForPercentage(t *testing.T) {
	tests := []struct {
		pct  float64
		want QuotaHealth
	}{
		{0, QuotaHealthHealthy},
		{79.9, QuotaHealthHealthy},
		{80, QuotaHealthWarning},
		{94.9, QuotaHealthWarning},
		{95, QuotaHealthCritical},
		{100, QuotaHealthCritical},
		{100.1, QuotaHealthExceeded},
		{250, QuotaHealthExceeded},
	}
	for _, tt := range tests {
		if got := HealthForPercentage(tt.pct); got != tt.want {
			t.Errorf("HealthForPercentage(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
}

func TestUsageStatsAddClampsAtZero(t *testing.T) {
	var s UsageStats
	s.Add(QuotaDocuments, 5)
	if s.Documents != 5 {
		t.Fatalf("Documents = %d, want 5", s.Documents)
	}
	s.Add(QuotaDocuments, -10)
	if s.Documents != 0 {
		t.Fatalf("Documents = %d, want 0 after clamped decrement", s.Documents)
	}
}

func TestQuotaLimitsFor(t *testing.T) {
	l := DefaultQuotaLimits()
	if got := l.For(QuotaMonthlyAPICalls); got != 10000 {
		t.Errorf("monthly api calls limit = %d, want 10000", got)
	}
	if got := l.For(QuotaStorageBytes); got != 1<<30 {
		t.Errorf("storage limit = %d, want %d", got, int64(1<<30))
	}
	if got := l.For(QuotaType("bogus")); got != 0 {
		t.Errorf("unknown quota type limit = %d, want 0", got)
	}
}
