// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

import (
	"testing"
	"time"
)

func TestSessionExpiryWindows(t *testing.T) {
	now := time.Now().UTC()
	s := &Session{
		ExpiresAt:        now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}

	if s.IsExpired(now) {
		t.Error("session before its deadline should not be expired")
	}
	if s.IsRefreshExpired(now) {
		t.Error("refresh window should still be open")
	}

	// Past the access deadline but inside the refresh window: the
	// session can be renewed but not used.
	at := now.Add(time.Hour)
	if !s.IsExpired(at) {
		t.Error("session past its deadline should be expired")
	}
	if s.IsRefreshExpired(at) {
		t.Error("refresh window should outlive the access token")
	}

	at = now.Add(48 * time.Hour)
	if !s.IsRefreshExpired(at) {
		t.Error("session past the refresh deadline cannot be renewed")
	}
}
