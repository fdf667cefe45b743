package worker

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestConcurrencyMiddleware_RejectsWhenFull(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})

	h := gin.New()
	h.Use(ConcurrencyMiddleware(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 20 * time.Millisecond,
	}))
	h.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-unblock
		c.Status(http.StatusOK)
	})
	h.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/slow", nil))
	}()
	<-entered

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/fast", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if got := errorMessage(t, w); got != msgUnavailable {
		t.Fatalf("unexpected error body %q", got)
	}

	close(unblock)
	wg.Wait()

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/fast", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after release, got %d", w.Code)
	}
}

func TestConcurrencyMiddleware_DisabledPassesThrough(t *testing.T) {
	h := gin.New()
	h.Use(ConcurrencyMiddleware(ConcurrencyOptions{Max: 0}))
	h.GET("/", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected passthrough, got %d", w.Code)
	}
}
