// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPThrottle is a token-bucket guard per client address, applied in
// front of the authorization pipeline. It protects the credential
// verifiers (bcrypt in particular) from unauthenticated floods; the
// per-principal fixed windows inside the pipeline are a separate
// concern.
type IPThrottle struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry
	rps      rate.Limit
	burst    int
	resolver *IPResolver
	stop     chan struct{}
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const ipEntryTTL = 10 * time.Minute

// NewIPThrottle creates a throttle admitting rps requests per second
// with the given burst per address. A zero rps disables throttling.
func NewIPThrottle(rps float64, burst int, resolver *IPResolver) *IPThrottle {
	t := &IPThrottle{
		limiters: make(map[string]*ipLimiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		resolver: resolver,
		stop:     make(chan struct{}),
	}
	go t.cleanupLoop()
	return t
}

// Handler wraps next with the throttle.
func (t *IPThrottle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.rps <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !t.allow(t.resolver.ClientIP(r)) {
			writeDenial(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"too many requests", time.Second)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *IPThrottle) allow(ip string) bool {
	t.mu.Lock()
	e, ok := t.limiters[ip]
	if !ok {
		e = &ipLimiterEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.limiters[ip] = e
	}
	e.lastSeen = time.Now()
	t.mu.Unlock()
	return e.limiter.Allow()
}

// Stop terminates the eviction loop.
func (t *IPThrottle) Stop() { close(t.stop) }

func (t *IPThrottle) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-ipEntryTTL)
			t.mu.Lock()
			for ip, e := range t.limiters {
				if e.lastSeen.Before(cutoff) {
					delete(t.limiters, ip)
				}
			}
			t.mu.Unlock()
		}
	}
}
