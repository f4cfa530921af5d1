package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"priceoracle/internal/metrics"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows limit requests per window for each client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
	}
}

// StartCleanup drops clients idle for longer than idle, every interval,
// until stop is closed.
func (r *RateLimiter) StartCleanup(interval, idle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				r.cleanup(now, idle)
			}
		}
	}()
}

func (r *RateLimiter) cleanup(now time.Time, idle time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ip, v := range r.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(r.visitors, ip)
		}
	}
}

func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	v, ok := r.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.rate, r.burst)}
		r.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	r.mu.Unlock()

	return v.limiter.Allow()
}

func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := clientIP(req)
		if !r.Allow(ip) {
			metrics.HTTPRateLimited.Inc()
			log.WithField("ip", ip).Warn("rate limit exceeded")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, req)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
