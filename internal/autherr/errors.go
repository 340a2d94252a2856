// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package autherr defines the typed denial taxonomy for the
// authorization pipeline. Every check failure is one of a closed set
// of kinds, and the mapping from kind to HTTP status is a pure
// function so transport handling stays out of the decision logic.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is a stable machine-readable denial code.
type Kind string

const (
	KindMissingCredential      Kind = "MISSING_CREDENTIAL"
	KindMalformedCredential    Kind = "MALFORMED_CREDENTIAL"
	KindInvalidCredential      Kind = "INVALID_CREDENTIAL"
	KindTokenExpired           Kind = "TOKEN_EXPIRED"
	KindKeyExpired             Kind = "KEY_EXPIRED"
	KindIPNotAllowed           Kind = "IP_NOT_ALLOWED"
	KindTenantRequired         Kind = "TENANT_REQUIRED"
	KindTenantInactive         Kind = "TENANT_INACTIVE"
	KindTenantMismatch         Kind = "TENANT_MISMATCH"
	KindInsufficientPermission Kind = "INSUFFICIENT_PERMISSION"
	KindInsufficientRole       Kind = "INSUFFICIENT_ROLE"
	KindQuotaExceeded          Kind = "QUOTA_EXCEEDED"
	KindRateLimitExceeded      Kind = "RATE_LIMIT_EXCEEDED"
	KindMalformedRequest       Kind = "MALFORMED_REQUEST"
	KindInternal               Kind = "INTERNAL"
)

// HTTPStatus maps a denial kind to its response status. Store and
// infrastructure failures always map to 500; their details never
// reach the client.
func HTTPStatus(k Kind) int {
	switch k {
	case KindMissingCredential, KindMalformedCredential, KindInvalidCredential,
		KindTokenExpired, KindKeyExpired:
		return http.StatusUnauthorized
	case KindIPNotAllowed, KindTenantRequired, KindTenantInactive,
		KindTenantMismatch, KindInsufficientPermission, KindInsufficientRole:
		return http.StatusForbidden
	case KindQuotaExceeded, KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case KindMalformedRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a denial carrying its kind, a client-safe message, and an
// optional retry hint for rate and quota denials.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status for the error's kind.
func (e *Error) Status() int { return HTTPStatus(e.Kind) }

// E constructs a denial of the given kind.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef constructs a denial with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a denial. The cause is logged server-side
// only; Message is what clients see.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Internal wraps a backend failure. The client-visible message is
// deliberately generic.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// RetryableE constructs a denial carrying a retry hint.
func RetryableE(kind Kind, message string, retryAfter time.Duration) *Error {
	return &Error{Kind: kind, Message: message, RetryAfter: retryAfter}
}

// KindOf extracts the kind from any error. Non-pipeline errors are
// classified as internal; nil returns the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a pipeline denial of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
