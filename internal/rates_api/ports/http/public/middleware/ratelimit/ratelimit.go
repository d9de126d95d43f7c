package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCleanupInterval = 5 * time.Minute
	defaultIdleTTL         = 10 * time.Minute

	msgTooManyRequests = "Too many requests. Please try again later."
)

// Limiter keeps one token bucket per client IP.
type Limiter struct {
	limiters        sync.Map
	rps             rate.Limit
	burst           int
	cleanupInterval time.Duration
	idleTTL         time.Duration
	now             func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rps:             rate.Limit(rps),
		burst:           burst,
		cleanupInterval: defaultCleanupInterval,
		idleTTL:         defaultIdleTTL,
		now:             time.Now,
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	now := l.now().UnixNano()

	if v, ok := l.limiters.Load(key); ok {
		entry := v.(*limiterEntry)
		entry.lastAccess.Store(now)
		return entry.limiter
	}

	entry := &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
	entry.lastAccess.Store(now)

	actual, _ := l.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

// Evict drops buckets idle for longer than the idle TTL and returns how many went.
func (l *Limiter) Evict() int {
	cutoff := l.now().Add(-l.idleTTL).UnixNano()
	evicted := 0

	l.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastAccess.Load() < cutoff {
			l.limiters.Delete(key)
			evicted++
		}
		return true
	})
	return evicted
}

// Cleanup runs Evict periodically until ctx is done.
func (l *Limiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Evict(); n > 0 {
				slog.Debug("evicted idle rate limiters", "count", n)
			}
		}
	}
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !l.get(ip).Allow() {
			slog.Warn("Rate limit exceeded",
				"client_ip", ip,
				"path", r.URL.Path,
				"method", r.Method,
			)

			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			http.Error(w, msgTooManyRequests, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP keys on RemoteAddr, which chi's RealIP rewrites only when
// proxy headers are trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
