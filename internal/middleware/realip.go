// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// IPResolver determines the client address for a request.
// X-Forwarded-For is only believed when the direct peer is inside a
// trusted proxy range; otherwise a client could spoof its way past
// IP allowlists.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses the trusted proxy CIDR list. Invalid entries
// are ignored; single addresses get a /32 (or /128).
func NewIPResolver(trustedProxies []string) *IPResolver {
	r := &IPResolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 32
				if ip.To4() == nil {
					bits = 128
				}
				entry = ip.String() + "/" + strconv.Itoa(bits)
			}
		}
		if _, cidr, err := net.ParseCIDR(entry); err == nil {
			r.trusted = append(r.trusted, cidr)
		}
	}
	return r
}

// ClientIP returns the best-effort client address.
func (r *IPResolver) ClientIP(req *http.Request) string {
	peer := remoteIP(req.RemoteAddr)
	if peer == "" {
		return req.RemoteAddr
	}
	if !r.isTrusted(peer) {
		return peer
	}

	// Walk the forwarded chain right to left past trusted hops; the
	// first untrusted entry is the client.
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !r.isTrusted(hop) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}
	if rip := strings.TrimSpace(req.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	return peer
}

func (r *IPResolver) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, cidr := range r.trusted {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		if ip := net.ParseIP(remoteAddr); ip != nil {
			return remoteAddr
		}
		return ""
	}
	return host
}
