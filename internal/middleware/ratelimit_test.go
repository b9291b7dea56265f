package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestMemoryStoreBlocksAfterBurst(t *testing.T) {
	store := NewMemoryStore(1, 2)
	ctx := context.Background()
	allowed := 0
	for i := 0; i < 5; i++ {
		ok, err := store.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("expected burst of 2 allowed, got %d", allowed)
	}
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	store := NewMemoryStore(1, 1)
	ctx := context.Background()
	if ok, _ := store.Allow(ctx, "a"); !ok {
		t.Fatalf("first request for key a should pass")
	}
	if ok, _ := store.Allow(ctx, "b"); !ok {
		t.Fatalf("first request for key b should pass")
	}
	if ok, _ := store.Allow(ctx, "a"); ok {
		t.Fatalf("second request for key a should be limited")
	}
}

func TestRateLimiterReturns429(t *testing.T) {
	limiter := NewRateLimiter(NewMemoryStore(1, 1), zap.NewNop())
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/custom/cfg", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

type failingStore struct{}

func (failingStore) Allow(ctx context.Context, key string) (bool, error) {
	return false, errors.New("backend down")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	limiter := NewRateLimiter(failingStore{}, zap.NewNop())
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", nil)
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("limiter must fail open, got %d", rr.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := clientIP(req); ip != "203.0.113.7" {
		t.Fatalf("expected forwarded ip, got %s", ip)
	}
}
