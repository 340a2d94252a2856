// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Command server runs the tenantgate authorization service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tenantgate/internal/api"
	"github.com/tomtom215/tenantgate/internal/auth"
	"github.com/tomtom215/tenantgate/internal/authz"
	"github.com/tomtom215/tenantgate/internal/config"
	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/middleware"
	"github.com/tomtom215/tenantgate/internal/quota"
	"github.com/tomtom215/tenantgate/internal/ratelimit"
	"github.com/tomtom215/tenantgate/internal/store"
	"github.com/tomtom215/tenantgate/internal/tenant"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger := logging.Get()
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Logging)
	logger := logging.WithComponent("server")

	var st store.Store
	switch cfg.Store.Backend {
	case "memory":
		st = store.NewMemoryStore()
	default:
		st, err = store.NewBadgerStore(cfg.Store.Path)
		if err != nil {
			return err
		}
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	jwtMgr, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTimeout, cfg.Security.Issuer)
	if err != nil {
		return err
	}

	var sessions store.SessionStore
	if cfg.Security.SessionCheck {
		sessions = st
	}
	verifier := auth.NewVerifier(jwtMgr, st, st, sessions, st)
	resolver := tenant.NewResolver(st, cfg.TenantStrategies()...)
	governor := quota.NewGovernor(st, quota.Thresholds{
		Warning:  cfg.Quota.WarningThreshold,
		Critical: cfg.Quota.CriticalThreshold,
	})

	limiter := ratelimit.NewLimiter()
	defer limiter.Stop()

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{
		ModelPath:  cfg.Authz.ModelPath,
		PolicyPath: cfg.Authz.PolicyPath,
	})
	if err != nil {
		return err
	}

	evaluator := authz.NewEvaluator(governor, limiter, enforcer, cfg.UserRateLimits())
	authorizer := authz.NewAuthorizer(verifier, resolver, evaluator, governor)

	ipResolver := middleware.NewIPResolver(cfg.Security.TrustedProxies)
	throttle := middleware.NewIPThrottle(cfg.RateLimit.IPPerSecond, cfg.RateLimit.IPBurst, ipResolver)
	defer throttle.Stop()

	router := api.NewRouter(api.RouterConfig{
		Authorizer: authorizer,
		IPResolver: ipResolver,
		Throttle:   throttle,
	})

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := suture.NewSimple("tenantgate")
	sup.Add(&httpService{
		srv:             srv,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		logger:          logging.WithComponent("http"),
	})

	logger.Info().Str("store", cfg.Store.Backend).Str("addr", cfg.Server.ListenAddr).
		Msg("starting tenantgate")

	err = sup.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("shutdown complete")
		return nil
	}
	return err
}
