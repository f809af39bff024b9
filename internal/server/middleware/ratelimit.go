package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = 30 * time.Minute
)

// KeyFunc picks the bucket a request is charged to. Requests for which it
// reports false are not limited.
type KeyFunc func(r *http.Request) (string, bool)

// ByIP charges every request to the client address. It relies on chi's
// RealIP middleware having rewritten r.RemoteAddr.
func ByIP(r *http.Request) (string, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, true
	}
	return host, true
}

// ByChatTurn charges chat turns to the authenticated caller, or to the client
// address when authentication is off. Other requests pass through.
func ByChatTurn(r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		return "", false
	}
	if !strings.HasSuffix(r.URL.Path, "/chat") && !strings.HasSuffix(r.URL.Path, "/chat/stream") {
		return "", false
	}
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p.Role + ":" + p.EmployeeID, true
	}
	return ByIP(r)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet holds one token bucket per key. Idle buckets are dropped by a
// sweeper that runs until ctx is done.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newLimiterSet(ctx context.Context, limit rate.Limit, burst int) *limiterSet {
	s := &limiterSet{limit: limit, burst: burst, entries: make(map[string]*limiterEntry)}

	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.sweep(now.Add(-limiterIdleTTL))
			case <-ctx.Done():
				return
			}
		}
	}()

	return s
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastAccess = now
	s.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (s *limiterSet) sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.lastAccess.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

// RateLimit rejects requests with 429 once the bucket chosen by key is
// empty. Buckets refill at limit tokens per second up to burst.
func RateLimit(ctx context.Context, limit rate.Limit, burst int, key KeyFunc) func(http.Handler) http.Handler {
	set := newLimiterSet(ctx, limit, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, ok := key(r)
			if ok && !set.allow(k, time.Now()) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP applies per-IP rate limiting to every request.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return RateLimit(ctx, rate.Limit(requestsPerSecond), burst, ByIP)
}

// RateLimitChatTurns bounds model-backed chat turns per caller to
// turnsPerMinute, allowing a burst of the same size.
func RateLimitChatTurns(ctx context.Context, turnsPerMinute int) func(http.Handler) http.Handler {
	return RateLimit(ctx, rate.Every(time.Minute/time.Duration(turnsPerMinute)), turnsPerMinute, ByChatTurn)
}
