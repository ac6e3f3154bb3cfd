package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter is the injectable counter store for API-key rate limiting.
// The in-memory implementation is process-local; the Redis one holds
// across multiple service instances.
type Limiter interface {
	Allow(ctx context.Context, key string) (LimitResult, error)
}

type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// --- In-memory fixed window ---

type windowCounter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

type MemoryLimiter struct {
	visitors sync.Map // key -> *windowCounter
	limit    int
	window   time.Duration
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	ml := &MemoryLimiter{limit: limit, window: window}
	go ml.cleanup()
	return ml
}

// cleanup removes stale windows to prevent memory leaks
func (ml *MemoryLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		now := time.Now()
		ml.visitors.Range(func(key, value interface{}) bool {
			wc := value.(*windowCounter)
			wc.mu.Lock()
			stale := now.Sub(wc.windowStart) > 2*ml.window
			wc.mu.Unlock()
			if stale {
				ml.visitors.Delete(key)
			}
			return true
		})
	}
}

func (ml *MemoryLimiter) Allow(_ context.Context, key string) (LimitResult, error) {
	v, _ := ml.visitors.LoadOrStore(key, &windowCounter{windowStart: time.Now()})
	wc := v.(*windowCounter)

	wc.mu.Lock()
	defer wc.mu.Unlock()

	now := time.Now()
	if now.Sub(wc.windowStart) >= ml.window {
		wc.windowStart = now
		wc.count = 0
	}
	wc.count++

	remaining := ml.limit - wc.count
	if remaining < 0 {
		remaining = 0
	}
	return LimitResult{
		Allowed:   wc.count <= ml.limit,
		Limit:     ml.limit,
		Remaining: remaining,
		Reset:     wc.windowStart.Add(ml.window),
	}, nil
}

// --- Redis-backed fixed window ---

type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (LimitResult, error) {
	windowStart := time.Now().Truncate(rl.window)
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, rl.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return LimitResult{}, err
	}

	count := int(incr.Val())
	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return LimitResult{
		Allowed:   count <= rl.limit,
		Limit:     rl.limit,
		Remaining: remaining,
		Reset:     windowStart.Add(rl.window),
	}, nil
}

// RateLimitAPIKey enforces the per-key window on API-key routes. Keyed by
// the key's display prefix (set by RequireAPIKey), so it must run after it.
// If the limiter store itself fails, the request is let through - a broken
// Redis should not take the warehouse API down with it.
func RateLimitAPIKey(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefix := c.GetString("apiKeyPrefix")
		if prefix == "" {
			c.Next()
			return
		}

		res, err := l.Allow(c.Request.Context(), prefix)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(time.Until(res.Reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
