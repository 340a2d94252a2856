// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package config loads and validates service configuration from
// struct defaults, an optional YAML file, and TENANTGATE_* environment
// variables, in that order of precedence (lowest to highest).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tenantgate/internal/logging"
	"github.com/tomtom215/tenantgate/internal/models"
	"github.com/tomtom215/tenantgate/internal/tenant"
)

// envPrefix namespaces environment overrides. Double underscore
// separates nesting levels so key names may themselves contain
// underscores: TENANTGATE_SECURITY__JWT_SECRET maps to
// security.jwt_secret.
const envPrefix = "TENANTGATE_"

// Config is the full service configuration tree.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Tenant    TenantConfig    `koanf:"tenant"`
	Quota     QuotaConfig     `koanf:"quota"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Store     StoreConfig     `koanf:"store"`
	Authz     AuthzConfig     `koanf:"authz"`
	Logging   logging.Config  `koanf:"logging"`
}

type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type SecurityConfig struct {
	// JWTSecret signs session tokens. 32 bytes minimum; there is no
	// default on purpose.
	JWTSecret    string        `koanf:"jwt_secret" validate:"required,min=32"`
	TokenTimeout time.Duration `koanf:"token_timeout"`
	Issuer       string        `koanf:"issuer"`

	// SessionCheck enables server-side session verification for
	// bearer tokens (revocation support at the cost of a store read).
	SessionCheck bool `koanf:"session_check"`

	// TrustedProxies are CIDR blocks whose X-Forwarded-For headers
	// are believed.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

type TenantConfig struct {
	// Strategies is the resolution priority order. Valid entries:
	// header, subdomain, path, query.
	Strategies []string `koanf:"strategies" validate:"dive,oneof=header subdomain path query"`
}

type QuotaConfig struct {
	WarningThreshold  float64 `koanf:"warning_threshold" validate:"gt=0,lte=100"`
	CriticalThreshold float64 `koanf:"critical_threshold" validate:"gt=0,lte=100,gtefield=WarningThreshold"`
}

type RateLimitConfig struct {
	// UserPerMinute / UserPerDay are the fixed-window defaults for
	// user principals. API keys carry per-key limits.
	UserPerMinute int64 `koanf:"user_per_minute" validate:"gte=0"`
	UserPerDay    int64 `koanf:"user_per_day" validate:"gte=0"`

	// IPPerSecond throttles unauthenticated traffic per client
	// address before it reaches the pipeline.
	IPPerSecond float64 `koanf:"ip_per_second" validate:"gte=0"`
	IPBurst     int     `koanf:"ip_burst" validate:"gte=0"`
}

type StoreConfig struct {
	// Backend is "badger" or "memory".
	Backend string `koanf:"backend" validate:"oneof=badger memory"`
	Path    string `koanf:"path"`
}

type AuthzConfig struct {
	ModelPath  string `koanf:"model_path"`
	PolicyPath string `koanf:"policy_path"`
}

// Default returns the baseline configuration before file and
// environment overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Security: SecurityConfig{
			TokenTimeout: 15 * time.Minute,
			Issuer:       "tenantgate",
		},
		Tenant: TenantConfig{
			Strategies: []string{"header", "subdomain", "path", "query"},
		},
		Quota: QuotaConfig{
			WarningThreshold:  80,
			CriticalThreshold: 95,
		},
		RateLimit: RateLimitConfig{
			UserPerMinute: 120,
			UserPerDay:    20000,
			IPPerSecond:   50,
			IPBurst:       100,
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "data/tenantgate",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at
// path (skipped when empty), then environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies struct-tag validation plus cross-field rules the
// tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Store.Backend == "badger" && cfg.Store.Path == "" {
		return fmt.Errorf("invalid configuration: store.path required for badger backend")
	}
	return nil
}

// TenantStrategies converts the configured strategy names.
func (c *Config) TenantStrategies() []tenant.Strategy {
	out := make([]tenant.Strategy, 0, len(c.Tenant.Strategies))
	for _, s := range c.Tenant.Strategies {
		out = append(out, tenant.Strategy(s))
	}
	return out
}

// UserRateLimits returns the fixed-window limits for user principals.
func (c *Config) UserRateLimits() models.RateLimits {
	return models.RateLimits{
		RequestsPerMinute: c.RateLimit.UserPerMinute,
		RequestsPerDay:    c.RateLimit.UserPerDay,
	}
}
