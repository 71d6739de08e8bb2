package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	maxRequests    = 100             // per window, per client IP
	windowDuration = 5 * time.Minute // window duration
)

type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	count    int
	lastSeen time.Time
}

var limiter = &rateLimiter{clients: make(map[string]*clientWindow)}

// allow records one request for ip and reports whether it fits the window.
func (l *rateLimiter) allow(ip string) (ok bool, remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for addr, c := range l.clients {
		if now.Sub(c.lastSeen) > windowDuration {
			delete(l.clients, addr)
		}
	}

	c, exists := l.clients[ip]
	if !exists || now.Sub(c.lastSeen) > windowDuration {
		c = &clientWindow{}
		l.clients[ip] = c
	}

	reset = c.lastSeen.Add(windowDuration)
	if c.count >= maxRequests {
		return false, 0, reset
	}
	c.count++
	c.lastSeen = now
	return true, maxRequests - c.count, c.lastSeen.Add(windowDuration)
}

// RateLimit throttles unauthenticated REST clients per IP. Requests carrying
// a valid API key bypass the limit.
func RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("Authorization")
		if apiKey != "" && ValidateAPIKey(apiKey) {
			next.ServeHTTP(w, r)
			return
		}

		ok, remaining, reset := limiter.allow(r.RemoteAddr)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", reset.Format(time.RFC3339))
		if !ok {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
