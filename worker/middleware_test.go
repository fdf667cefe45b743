package worker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"edge-worker/worker/infra"

	"github.com/gin-gonic/gin"
)

func throttledEngine(opts ThrottleOptions, calls *int) *gin.Engine {
	r := gin.New()
	r.Use(ThrottleMiddleware(opts))
	r.Any("/*path", func(c *gin.Context) {
		*calls++
		c.Status(http.StatusOK)
	})
	return r
}

func TestThrottleMiddleware_AllowsThenRejectsSameClient(t *testing.T) {
	calls := 0
	h := throttledEngine(ThrottleOptions{
		Store:               infra.NewThrottleStore(0.02, 1),
		AddRateLimitHeaders: true,
	}, &calls)

	r1 := httptest.NewRequest(http.MethodGet, "http://example/popular-posts", nil)
	r1.Header.Set("CF-Connecting-IP", "1.2.3.4")
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if w1.Header().Get("X-RateLimit-Burst") != "1" {
		t.Fatalf("expected X-RateLimit-Burst header")
	}

	r2 := httptest.NewRequest(http.MethodGet, "http://example/popular-posts", nil)
	r2.Header.Set("CF-Connecting-IP", "1.2.3.4")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if got := errorMessage(t, w2); got != msgTooManyRequests {
		t.Fatalf("unexpected error body %q", got)
	}

	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestThrottleMiddleware_ClientsAreIndependent(t *testing.T) {
	calls := 0
	h := throttledEngine(ThrottleOptions{Store: infra.NewThrottleStore(0.02, 1)}, &calls)

	for _, ip := range []string{"1.1.1.1", "2.2.2.2"} {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.Header.Set("CF-Connecting-IP", ip)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("client %s: expected 200, got %d", ip, w.Code)
		}
	}
}

func TestThrottleMiddleware_PreflightDoesNotConsume(t *testing.T) {
	calls := 0
	h := throttledEngine(ThrottleOptions{Store: infra.NewThrottleStore(0.02, 1)}, &calls)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodOptions, "http://example/contact", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
	}

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected first real request to pass, got %d", w.Code)
	}
}

func TestThrottleMiddleware_NilStorePassesThrough(t *testing.T) {
	calls := 0
	h := throttledEngine(ThrottleOptions{}, &calls)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryAfterSeconds_RoundsUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0s", "1"},
		{"200ms", "1"},
		{"1.2s", "2"},
		{"1h", "3600"},
	}
	for _, tt := range tests {
		d := mustDuration(t, tt.in)
		if got := retryAfterSeconds(d); got != tt.want {
			t.Fatalf("retryAfterSeconds(%s)=%s, want %s", tt.in, got, tt.want)
		}
	}
}
