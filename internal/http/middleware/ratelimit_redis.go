package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter installs the shared client used by the limiters.
// If ping fails the client is dropped and limiters fall back to process memory.
func InitRedisRateLimiter(client *redis.Client) bool {
	redisClient = nil
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return false
	}
	redisClient = client
	return true
}

// RateLimit is a fixed-window limiter per client IP.
// key format: rl:<window_seconds>:<ip>
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newWindowCounter()
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		limit(c, local, key, c.FullPath(), maxRequests, window)
	}
}

func limit(c *gin.Context, local *windowCounter, key, endpoint string, maxRequests int, window time.Duration) {
	var val int64
	if redisClient != nil {
		ctx := c.Request.Context()
		n, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// fail-open on redis error
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if n == 1 {
			redisClient.Expire(ctx, key, window)
		}
		val = n
	} else {
		val = local.incr(key, window)
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

	if val > int64(maxRequests) {
		RLBlocked.WithLabelValues(endpoint).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": int(window.Seconds()),
		})
		return
	}

	RLRequests.WithLabelValues(endpoint).Inc()
	c.Next()
}

type bucket struct {
	start time.Time
	count int64
}

// windowCounter is the in-process fixed-window counter used without redis.
type windowCounter struct {
	mu      sync.Mutex
	windows map[string]*bucket
	now     func() time.Time
}

func newWindowCounter() *windowCounter {
	return &windowCounter{windows: make(map[string]*bucket), now: time.Now}
}

func (w *windowCounter) incr(key string, size time.Duration) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cur, ok := w.windows[key]
	if !ok || now.Sub(cur.start) >= size {
		if len(w.windows) > 10000 {
			for k, v := range w.windows {
				if now.Sub(v.start) >= size {
					delete(w.windows, k)
				}
			}
		}
		cur = &bucket{start: now}
		w.windows[key] = cur
	}
	cur.count++
	return cur.count
}
