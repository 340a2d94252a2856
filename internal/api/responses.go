// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package api exposes the HTTP surface: quota stats and checks, usage
// settlement, identity introspection, and operational endpoints.
package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantgate/internal/autherr"
	"github.com/tomtom215/tenantgate/internal/logging"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.Get()
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError renders a pipeline error, collapsing internals to a
// generic 500.
func writeError(w http.ResponseWriter, err error) {
	kind := autherr.KindOf(err)
	message := "internal error"
	var ae *autherr.Error
	if kind != autherr.KindInternal && errors.As(err, &ae) {
		message = ae.Message
	} else {
		logger := logging.Get()
		logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, autherr.HTTPStatus(kind), errorBody{Error: string(kind), Message: message})
}
