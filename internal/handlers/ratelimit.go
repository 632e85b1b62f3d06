package handlers

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// TrustedProxies lists the peers whose X-Forwarded-For and X-Real-IP headers
// are believed. An empty list keys every request by its connection address.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts CIDR prefixes and bare addresses. Entries may
// themselves be comma separated.
func ParseTrustedProxies(values []string) (TrustedProxies, error) {
	var proxies TrustedProxies
	for _, value := range values {
		for _, entry := range strings.Split(value, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if strings.Contains(entry, "/") {
				prefix, err := netip.ParsePrefix(entry)
				if err != nil {
					return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
				}
				proxies = append(proxies, prefix.Masked())
				continue
			}
			addr, err := netip.ParseAddr(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			addr = addr.Unmap()
			proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return proxies, nil
}

func (t TrustedProxies) trusts(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the address the request is attributed to. Forwarding headers
// are consulted only when the connection comes from a trusted proxy; the
// X-Forwarded-For chain is then walked from the right and the first untrusted
// hop wins.
func (t TrustedProxies) ClientIP(r *http.Request) string {
	remote := remoteHost(r)
	if len(t) == 0 || !t.trusts(remote) {
		if remote == "" {
			return "unknown"
		}
		return remote
	}

	if forwarded := r.Header.Values("X-Forwarded-For"); len(forwarded) > 0 {
		hops := strings.Split(strings.Join(forwarded, ","), ",")
		var leftmost string
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !t.trusts(hop) {
				return hop
			}
			leftmost = hop
		}
		if leftmost != "" {
			return leftmost
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return remote
}

func remoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

// rejectLimited answers with ErrRateLimited and returns true when the caller has
// exhausted its budget for scope. A nil limiter never rejects.
func rejectLimited(limiter RateLimiter, proxies TrustedProxies, w http.ResponseWriter, r *http.Request, scope string) bool {
	if limiter == nil {
		return false
	}
	ip := proxies.ClientIP(r)
	if limiter.Allow(scope + ":" + ip) {
		return false
	}
	logging.FromContext(r.Context()).Warn("rate limit exceeded", "scope", scope, "client", ip)
	respondError(w, r, apperr.ErrRateLimited)
	return true
}
