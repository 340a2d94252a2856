// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package ratelimit implements per-principal fixed-window request
// limiting with a minute and a day window per key. Windows are
// tracked in memory; state is per-process.
package ratelimit

import (
	"sync"
	"time"

	"github.com/tomtom215/tenantgate/internal/models"
)

// Result is the outcome of one admission check. RetryAfter is set
// only on denials and points at the earliest window boundary that
// could admit the request.
type Result struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

type windowEntry struct {
	minuteStart time.Time
	minuteCount int64
	dayStart    time.Time
	dayCount    int64
	lastSeen    time.Time
}

// Limiter tracks fixed windows per key. Keys are principal-scoped
// (user:<id> / apikey:<id>) so namespaces never collide.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
	stop    chan struct{}
	done    chan struct{}
}

// cleanupInterval and entryTTL control eviction of idle keys.
const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 48 * time.Hour
)

// NewLimiter creates a limiter and starts its eviction loop.
func NewLimiter() *Limiter {
	l := &Limiter{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow admits or denies one request under the given limits. A zero
// limit disables the corresponding window. Denied requests do not
// consume from either window.
func (l *Limiter) Allow(key string, limits models.RateLimits) Result {
	now := l.now().UTC()
	minuteStart := now.Truncate(time.Minute)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &windowEntry{minuteStart: minuteStart, dayStart: dayStart}
		l.entries[key] = e
	}
	e.lastSeen = now

	// Window rollovers reset the counters in place.
	if !e.minuteStart.Equal(minuteStart) {
		e.minuteStart = minuteStart
		e.minuteCount = 0
	}
	if !e.dayStart.Equal(dayStart) {
		e.dayStart = dayStart
		e.dayCount = 0
	}

	if limits.RequestsPerMinute > 0 && e.minuteCount >= limits.RequestsPerMinute {
		reset := minuteStart.Add(time.Minute)
		return Result{ResetAt: reset, RetryAfter: reset.Sub(now)}
	}
	if limits.RequestsPerDay > 0 && e.dayCount >= limits.RequestsPerDay {
		reset := dayStart.AddDate(0, 0, 1)
		return Result{ResetAt: reset, RetryAfter: reset.Sub(now)}
	}

	e.minuteCount++
	e.dayCount++

	remaining := int64(-1)
	if limits.RequestsPerMinute > 0 {
		remaining = limits.RequestsPerMinute - e.minuteCount
	}
	if limits.RequestsPerDay > 0 {
		if day := limits.RequestsPerDay - e.dayCount; remaining < 0 || day < remaining {
			remaining = day
		}
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: minuteStart.Add(time.Minute)}
}

// Stop terminates the eviction loop.
func (l *Limiter) Stop() {
	close(l.stop)
	<-l.done
}

func (l *Limiter) cleanupLoop() {
	defer close(l.done)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *Limiter) evictIdle() {
	cutoff := l.now().UTC().Add(-entryTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
