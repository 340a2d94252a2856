// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package ratelimit

import (
	"testing"
	"time"

	"github.com/tomtom215/tenantgate/internal/models"
)

func newTestLimiter(t *testing.T, at time.Time) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter()
	t.Cleanup(l.Stop)
	clock := at
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestMinuteWindowExhaustion(t *testing.T) {
	start := time.Date(2026, time.August, 31, 10, 30, 15, 0, time.UTC)
	l, _ := newTestLimiter(t, start)
	limits := models.RateLimits{RequestsPerMinute: 3}

	for i := 0; i < 3; i++ {
		if res := l.Allow("user:u1", limits); !res.Allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}

	res := l.Allow("user:u1", limits)
	if res.Allowed {
		t.Fatal("fourth request in the window must be denied")
	}
	if res.RetryAfter != 45*time.Second {
		t.Errorf("retry after = %v, want 45s to the next minute boundary", res.RetryAfter)
	}
}

func TestMinuteWindowRollover(t *testing.T) {
	start := time.Date(2026, time.August, 31, 10, 30, 50, 0, time.UTC)
	l, clock := newTestLimiter(t, start)
	limits := models.RateLimits{RequestsPerMinute: 1}

	if !l.Allow("user:u1", limits).Allowed {
		t.Fatal("first request should pass")
	}
	if l.Allow("user:u1", limits).Allowed {
		t.Fatal("second request in same minute must fail")
	}

	*clock = start.Add(11 * time.Second) // crosses 10:31:00
	if !l.Allow("user:u1", limits).Allowed {
		t.Fatal("request after window rollover should pass")
	}
}

func TestDayWindowOutlivesMinutes(t *testing.T) {
	start := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)
	l, clock := newTestLimiter(t, start)
	limits := models.RateLimits{RequestsPerMinute: 2, RequestsPerDay: 3}

	l.Allow("apikey:k1", limits)
	l.Allow("apikey:k1", limits)

	*clock = start.Add(2 * time.Minute)
	if !l.Allow("apikey:k1", limits).Allowed {
		t.Fatal("third request of the day should pass in a fresh minute")
	}

	*clock = start.Add(4 * time.Minute)
	res := l.Allow("apikey:k1", limits)
	if res.Allowed {
		t.Fatal("fourth request must hit the daily ceiling")
	}
	wantReset := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	if !res.ResetAt.Equal(wantReset) {
		t.Errorf("reset at = %v, want %v", res.ResetAt, wantReset)
	}

	// Next UTC day reopens the window.
	*clock = wantReset.Add(time.Second)
	if !l.Allow("apikey:k1", limits).Allowed {
		t.Fatal("request on the next day should pass")
	}
}

func TestDeniedRequestsDoNotConsume(t *testing.T) {
	start := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)
	l, clock := newTestLimiter(t, start)
	limits := models.RateLimits{RequestsPerMinute: 1, RequestsPerDay: 2}

	l.Allow("user:u1", limits)
	for i := 0; i < 10; i++ {
		if l.Allow("user:u1", limits).Allowed {
			t.Fatal("should be minute-limited")
		}
	}

	// The denials above must not have eaten the daily budget.
	*clock = start.Add(time.Minute)
	if !l.Allow("user:u1", limits).Allowed {
		t.Fatal("second of two daily requests should still be available")
	}
}

func TestKeysAreIsolated(t *testing.T) {
	start := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)
	l, _ := newTestLimiter(t, start)
	limits := models.RateLimits{RequestsPerMinute: 1}

	if !l.Allow("user:u1", limits).Allowed {
		t.Fatal("u1 first request should pass")
	}
	if !l.Allow("user:u2", limits).Allowed {
		t.Fatal("u2 must have its own window")
	}
	if !l.Allow("apikey:u1", limits).Allowed {
		t.Fatal("api key namespace must not collide with users")
	}
}

func TestZeroLimitsDisableWindows(t *testing.T) {
	l, _ := newTestLimiter(t, time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 500; i++ {
		if !l.Allow("user:u1", models.RateLimits{}).Allowed {
			t.Fatal("zero limits must never deny")
		}
	}
}

func TestRemainingReporting(t *testing.T) {
	l, _ := newTestLimiter(t, time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC))
	limits := models.RateLimits{RequestsPerMinute: 5, RequestsPerDay: 3}

	res := l.Allow("user:u1", limits)
	// Day budget (2 left) is tighter than the minute budget (4 left).
	if res.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", res.Remaining)
	}
}
