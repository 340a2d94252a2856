// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package auth implements credential verification: HMAC-signed bearer
// tokens backed by server-side sessions, and prefixed API keys stored
// as bcrypt digests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/tenantgate/internal/models"
)

// Claims is the JWT payload issued for user sessions. The subject is
// the user ID; the tenant binding is re-verified against the store on
// every request, so a stale or forged tenant claim never wins.
type Claims struct {
	TenantID string `json:"tid"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 tokens.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
	issuer  string
}

// NewJWTManager creates a manager. The secret must be at least 32
// bytes; configuration validation enforces this before we get here.
func NewJWTManager(secret string, timeout time.Duration, issuer string) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &JWTManager{
		secret:  []byte(secret),
		timeout: timeout,
		issuer:  issuer,
	}, nil
}

// Timeout returns the configured token lifetime.
func (m *JWTManager) Timeout() time.Duration { return m.timeout }

// GenerateToken issues a signed token for the user.
func (m *JWTManager) GenerateToken(u *models.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		TenantID: u.TenantID,
		Username: u.Username,
		Role:     u.Role,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    m.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a compact token, returning its
// claims. Expiry and not-before are checked by the parser; callers
// distinguish expiry via errors.Is(err, jwt.ErrTokenExpired).
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
