package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoginRateLimiter_AllowsUpToMax(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.allow("10.0.0.1")
		if !allowed {
			t.Fatalf("attempt %d: expected allow", i+1)
		}
	}

	allowed, retryAfter := limiter.allow("10.0.0.1")
	if allowed {
		t.Fatal("fourth attempt within the window should be rejected")
	}
	if retryAfter < time.Second {
		t.Fatalf("retry-after should be at least a second, got %v", retryAfter)
	}
}

func TestLoginRateLimiter_WindowSlides(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(2, time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	limiter.allow("10.0.0.2")
	limiter.allow("10.0.0.2")
	if allowed, _ := limiter.allow("10.0.0.2"); allowed {
		t.Fatal("third attempt should be rejected")
	}

	limiter.now = func() time.Time { return base.Add(61 * time.Second) }
	if allowed, _ := limiter.allow("10.0.0.2"); !allowed {
		t.Fatal("attempt after the window passed should be allowed")
	}
}

func TestLoginRateLimiter_IsolatesClients(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(1, time.Minute)

	limiter.allow("10.0.0.3")
	if allowed, _ := limiter.allow("10.0.0.3"); allowed {
		t.Fatal("second attempt from the same client should be rejected")
	}
	if allowed, _ := limiter.allow("10.0.0.4"); !allowed {
		t.Fatal("a different client should not be throttled")
	}
}

func TestLoginRateLimiter_MiddlewareSetsRetryAfter(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(1, time.Minute)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	request.RemoteAddr = "192.0.2.7:1234"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, request)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, request)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("throttled response should carry Retry-After")
	}
}

func TestClientIP_PrefersForwardedFor(t *testing.T) {
	t.Parallel()

	request := httptest.NewRequest(http.MethodPost, "/", nil)
	request.RemoteAddr = "192.0.2.1:999"
	request.Header.Set("X-Forwarded-For", " 203.0.113.5 , 10.0.0.9")

	if got := clientIP(request); got != "203.0.113.5" {
		t.Fatalf("clientIP = %q, want first forwarded address", got)
	}

	request.Header.Del("X-Forwarded-For")
	if got := clientIP(request); got != "192.0.2.1:999" {
		t.Fatalf("clientIP = %q, want remote addr", got)
	}
}
