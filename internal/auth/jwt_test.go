// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/tenantgate/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *models.User {
	return &models.User{
		ID:       "u1",
		TenantID: "t1",
		Username: "alice",
		Role:     "editor",
		Active:   true,
	}
}

func TestJWTManagerRoundTrip(t *testing.T) {
	m, err := NewJWTManager(testSecret, time.Minute, "tenantgate")
	if err != nil {
		t.Fatal(err)
	}

	token, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "u1" || claims.TenantID != "t1" || claims.Role != "editor" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", time.Minute, ""); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestJWTManagerExpiredToken(t *testing.T) {
	m, err := NewJWTManager(testSecret, time.Minute, "tenantgate")
	if err != nil {
		t.Fatal(err)
	}

	// Craft a token that expired a minute ago.
	now := time.Now().Add(-2 * time.Minute)
	claims := Claims{
		TenantID: "t1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "tenantgate",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateToken(signed); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTManagerWrongSecret(t *testing.T) {
	issuer, _ := NewJWTManager(testSecret, time.Minute, "tenantgate")
	other, _ := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Minute, "tenantgate")

	token, err := issuer.GenerateToken(testUser())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with a different secret must not validate")
	}
}

func TestJWTManagerRejectsMissingTenantClaim(t *testing.T) {
	m, _ := NewJWTManager(testSecret, time.Minute, "tenantgate")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "tenantgate",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(signed); err == nil {
		t.Fatal("token without tenant claim must not validate")
	}
}

func TestAPIKeyHashRoundTrip(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if len(key) < models.APIKeyMinLength {
		t.Fatalf("generated key too short: %d", len(key))
	}

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyKeyHash(key, hash) {
		t.Error("key should verify against its own hash")
	}
	if VerifyKeyHash(key+"x", hash) {
		t.Error("modified key must not verify")
	}
}
