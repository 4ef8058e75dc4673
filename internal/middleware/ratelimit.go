package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dropnest_backend/internal/appErrors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter counts requests per key in fixed redis-backed windows.
// The counter lives in redis so every instance shares the same view.
type FixedWindowLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewFixedWindowLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow reports whether the key is within quota. Redis failures fail open:
// uploads are not dropped because the limiter store blinked.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) bool {
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		return true
	}
	slot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return true
	}
	return count <= int64(l.limit)
}

// UploadRateLimit throttles the public ingestion endpoints per client IP.
func UploadRateLimit(limiter *FixedWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), c.ClientIP()) {
			appErrors.HandleError(c, appErrors.New(
				appErrors.CodeRateLimited,
				"Too many requests, slow down",
				http.StatusTooManyRequests,
			))
			return
		}
		c.Next()
	}
}
