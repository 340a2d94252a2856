// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/tenantgate/internal/models"
)

// bcryptCost for key hashing. Keys pass through SHA-256 first, which
// both normalizes length below bcrypt's 72-byte input cap and means
// the stored digest is two hashes away from the plaintext.
const bcryptCost = 12

// GenerateAPIKey mints a new plaintext key: the well-known prefix
// plus 32 bytes of randomness, base64url-encoded. Shown to the caller
// once; only the hash is stored.
func GenerateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key material: %w", err)
	}
	return models.APIKeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashAPIKey produces the storable digest of a plaintext key.
func HashAPIKey(plaintext string) (string, error) {
	sum := sha256.Sum256([]byte(plaintext))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// VerifyKeyHash reports whether plaintext matches a stored digest.
// bcrypt's comparison is constant-time over the digest.
func VerifyKeyHash(plaintext, storedHash string) bool {
	sum := sha256.Sum256([]byte(plaintext))
	return bcrypt.CompareHashAndPassword([]byte(storedHash), sum[:]) == nil
}

// HashToken returns the hex SHA-256 of a bearer token, used as the
// session lookup key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum)
}
