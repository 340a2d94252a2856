// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package logging wraps zerolog with a process-wide structured logger
// and context helpers for request tracing.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger initialization.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string `koanf:"level"`

	// Format is "json" or "console". Defaults to json.
	Format string `koanf:"format"`

	// IncludeCaller adds file:line to every event.
	IncludeCaller bool `koanf:"include_caller"`
}

var (
	mu     sync.RWMutex
	logger zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init configures the global logger. Safe to call once at startup;
// later calls replace the logger wholesale.
func Init(cfg Config) {
	level := parseLevel(cfg.Level)

	var out io.Writer = os.Stderr
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.IncludeCaller {
		ctx = ctx.Caller()
	}

	mu.Lock()
	logger = ctx.Logger()
	mu.Unlock()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithComponent returns the global logger tagged with a component
// name. Packages call this once at construction time.
func WithComponent(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}
