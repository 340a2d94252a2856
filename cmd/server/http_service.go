// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// httpService runs the HTTP server under the supervisor. Serve blocks
// until the listener fails or the context is canceled, at which point
// it drains connections within the shutdown timeout.
type httpService struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("graceful shutdown incomplete, closing")
		_ = s.srv.Close()
	}
	return ctx.Err()
}

func (s *httpService) String() string { return "http-server" }
