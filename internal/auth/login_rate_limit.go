package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LoginRateLimiter throttles login attempts per client IP with a sliding
// window kept in memory. It protects the bcrypt verification path, not the
// token quota; the quota has its own enforcement in the store.
type LoginRateLimiter struct {
	mu        sync.Mutex
	maxHits   int
	window    time.Duration
	hitsByIP  map[string][]time.Time
	maxClient int
	now       func() time.Time
}

func NewLoginRateLimiter(maxHits int, window time.Duration) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		maxHits:   maxHits,
		window:    window,
		hitsByIP:  make(map[string][]time.Time),
		maxClient: 5000,
		now:       time.Now,
	}
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.allow(clientIP(r))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(ip string) (bool, time.Duration) {
	now := l.now().UTC()
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hitsByIP[ip]
	fresh := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			fresh = append(fresh, hit)
		}
	}

	if len(fresh) >= l.maxHits {
		retryAfter := fresh[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.hitsByIP[ip] = fresh
		return false, retryAfter
	}

	l.hitsByIP[ip] = append(fresh, now)

	// Drop idle clients once the map grows past the memory cap.
	if len(l.hitsByIP) > l.maxClient {
		for key, value := range l.hitsByIP {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(l.hitsByIP, key)
			}
		}
	}

	return true, 0
}

func clientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		if ip := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0]); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
