// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package models

import (
	"net/http"
	"net/url"
)

// RequestMeta is the transport-neutral view of an incoming request
// that the authorization pipeline consumes. The HTTP layer builds one
// per request; tests construct them directly.
type RequestMeta struct {
	Method   string
	Host     string
	Path     string
	Header   http.Header
	Query    url.Values
	ClientIP string

	// BearerToken and APIKey are the raw credentials extracted from
	// the Authorization and X-API-Key headers. At most one is set.
	BearerToken string
	APIKey      string
}

// HasCredential reports whether any credential accompanied the
// request.
func (m *RequestMeta) HasCredential() bool {
	return m.BearerToken != "" || m.APIKey != ""
}
