package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"leadgate/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitStore answers whether a client key may proceed. Implementations
// decide where the counters live: in-process for a single instance, Redis
// when several instances share the webhook surface.
type RateLimitStore interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryStore keeps one token bucket per client key.
type MemoryStore struct {
	rps   int
	burst int

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func NewMemoryStore(rps, burst int) *MemoryStore {
	return &MemoryStore{
		rps:      rps,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *MemoryStore) Allow(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()
	if !exists {
		s.mu.Lock()
		limiter, exists = s.limiters[key]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(s.rps), s.burst)
			s.limiters[key] = limiter
		}
		s.mu.Unlock()
	}
	return limiter.Allow(), nil
}

// Reset drops all tracked buckets. Called periodically so the key map does
// not grow without bound.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters = make(map[string]*rate.Limiter)
}

// RedisStore counts requests per key in fixed windows shared across
// instances.
type RedisStore struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisStore(client *redis.Client, limit int, window time.Duration) *RedisStore {
	return &RedisStore{client: client, limit: limit, window: window}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UnixNano()/int64(s.window))
	count, err := s.client.Incr(ctx, bucket).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, bucket, s.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(s.limit), nil
}

// RateLimiter guards the webhook front door per client IP.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
}

func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{store: store, logger: logger}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, err := rl.store.Allow(r.Context(), ip)
		if err != nil {
			// A broken limiter backend must not take the front door down.
			rl.logger.Warn("rate limit store error", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			metrics.Default.RateLimitHits.WithLabelValues(r.URL.Path).Inc()
			rl.logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
