package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max requests per Window for one key.
	Max    int
	Window time.Duration
	// KeyFunc picks the bucket of a request. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// KeyByHeader buckets requests by the value of header, falling back to the
// client IP when the header is absent. Staff sharing one shop network keep
// separate budgets this way.
func KeyByHeader(header string) func(*http.Request) string {
	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return "h:" + v
		}
		return "ip:" + clientIP(r)
	}
}

// bucket counts requests of the current fixed window and the one before it.
// The sliding estimate weighs the previous count by how much of it still
// overlaps the trailing window.
type bucket struct {
	prev  float64
	cur   float64
	start time.Time
}

func (b *bucket) advance(now time.Time, size time.Duration) {
	age := now.Sub(b.start)
	if age < size {
		return
	}
	if age >= 2*size {
		b.prev = 0
	} else {
		b.prev = b.cur
	}
	b.cur = 0
	b.start = now.Truncate(size)
}

func (b *bucket) estimate(now time.Time, size time.Duration) float64 {
	overlap := 1 - now.Sub(b.start).Seconds()/size.Seconds()
	return b.prev*max(overlap, 0) + b.cur
}

type decision struct {
	allowed   bool
	remaining int
	reset     time.Time
}

type limiter struct {
	limit int
	size  time.Duration
	key   func(*http.Request) string

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiter(cfg RateLimitConfig) *limiter {
	key := cfg.KeyFunc
	if key == nil {
		key = clientIP
	}
	return &limiter{
		limit:   cfg.Max,
		size:    cfg.Window,
		key:     key,
		buckets: make(map[string]*bucket),
	}
}

// take records a request for key at now unless the key is over budget.
func (l *limiter) take(key string, now time.Time) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		b = &bucket{start: now.Truncate(l.size)}
		l.buckets[key] = b
	}
	b.advance(now, l.size)

	d := decision{reset: b.start.Add(l.size)}
	used := b.estimate(now, l.size)
	if used >= float64(l.limit) {
		return d
	}
	b.cur++
	d.allowed = true
	d.remaining = max(int(float64(l.limit)-used-1), 0)
	return d
}

// sweep drops buckets with no requests in the last two windows.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.start) >= 2*l.size {
			delete(l.buckets, key)
		}
	}
}

func (l *limiter) sweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := l.take(l.key(r), time.Now())

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))

		if !d.allowed {
			wait := max(time.Until(d.reset), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			WriteError(r.Context(), w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit enforces a per-key sliding window limit, answering 429 with the
// error envelope once a key is over budget. Responses carry the
// X-RateLimit-* headers. Idle keys are kept forever; long running servers
// use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit with a goroutine evicting idle keys
// every two windows until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go l.sweepEvery(ctx, 2*cfg.Window)
	return l.middleware
}

// clientIP is the first X-Forwarded-For hop, X-Real-IP, or the remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
