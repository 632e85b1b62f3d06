package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultVisitorTTL is how long an idle caller's bucket is retained.
const DefaultVisitorTTL = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

// RateLimitOptions configures a per-key token bucket limiter.
type RateLimitOptions struct {
	// Requests events are refilled every Window.
	Requests int
	Window   time.Duration
	// Burst is the bucket capacity.
	Burst int
	// TTL evicts buckets idle for longer than this.
	TTL time.Duration
}

// KeyedRateLimiter tracks request rates per key (typically scope plus client IP).
type KeyedRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
	now      func() time.Time
}

// NewRateLimiter constructs a KeyedRateLimiter. Non-positive options fall back to
// one request per second, a burst of one and DefaultVisitorTTL.
func NewRateLimiter(opts RateLimitOptions) *KeyedRateLimiter {
	if opts.Requests <= 0 {
		opts.Requests = 1
	}
	if opts.Window <= 0 {
		opts.Window = time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultVisitorTTL
	}

	return &KeyedRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(opts.Window / time.Duration(opts.Requests)),
		burst:    opts.Burst,
		ttl:      opts.TTL,
		now:      time.Now,
	}
}

// Allow reports whether the caller identified by key may proceed now.
func (l *KeyedRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	now := l.now()
	v := l.visitorLocked(key, now)
	if now.Sub(l.lastGC) > l.ttl {
		l.gcLocked(now)
	}
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Len reports the number of tracked keys.
func (l *KeyedRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *KeyedRateLimiter) visitorLocked(key string, now time.Time) *visitor {
	if v, ok := l.visitors[key]; ok {
		v.lastSeen = now
		return v
	}

	v := &visitor{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.visitors[key] = v
	return v
}

func (l *KeyedRateLimiter) gcLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
	l.lastGC = now
}

// WithNowFunc allows tests to override the time source.
func (l *KeyedRateLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
