package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Limiter idle and sweep periods for webhook clients.
const (
	limiterIdleTTL  = 30 * time.Minute
	limiterSweepGap = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per client key and forgets keys that
// have been idle longer than ttl.
type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

func newLimiterSet(rps float64, burst int, ttl time.Duration) *limiterSet {
	return &limiterSet{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = c
	}
	c.lastSeen = s.now()
	return c.limiter.Allow()
}

// sweep drops idle clients and returns how many remain.
func (s *limiterSet) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	for key, c := range s.clients {
		if c.lastSeen.Before(cutoff) {
			delete(s.clients, key)
		}
	}
	return len(s.clients)
}

// sweepEvery calls sweep on every tick until ctx is done.
func (s *limiterSet) sweepEvery(ctx context.Context, gap time.Duration) {
	ticker := time.NewTicker(gap)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// RateLimitByIP limits each client host on the public webhook endpoints.
// Run chi's RealIP first so proxied requests key on the original client.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	set := newLimiterSet(requestsPerSecond, burst, limiterIdleTTL)
	go set.sweepEvery(ctx, limiterSweepGap)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !set.allow(ip) {
				log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("webhook rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP drops the port RemoteAddr carries when no proxy header was applied,
// so every connection from one host shares a limiter.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
