package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/linkfolio-api/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndMethod limits by client IP, route and method, so reads and
// writes of one collection get separate budgets.
func KeyByIPAndMethod() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:route:" + c.Request.Method + ":" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// Limit is a request budget per fixed window.
type Limit struct {
	Max    int
	Window time.Duration
}

// PerMinute is a budget of n requests per minute; n <= 0 disables limiting.
func PerMinute(n int) Limit { return Limit{Max: n, Window: time.Minute} }

func (l Limit) enabled() bool { return l.Max > 0 && l.Window > 0 }

// INCR the window counter, start its expiry on the first hit and return the
// count with the remaining ttl in one round trip.
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type AllowFunc func(*gin.Context) bool // return true to bypass the limit

// RateLimit is a fixed-window limiter backed by Redis. It sets the
// X-RateLimit-* headers, skips OPTIONS and fails open when Redis errors.
func RateLimit(rdb *redis.Client, limit Limit, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || !limit.enabled() || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if (allow != nil && allow(c)) || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		res, err := windowScript.Run(c.Request.Context(), rdb, []string{keyFn(c)}, limit.Window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			c.Next()
			return
		}
		count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
		resetSec := 0
		if ttl > 0 {
			resetSec = int((ttl + time.Second - 1) / time.Second)
		}
		writeLimitHeaders(c, limit.Max, count, resetSec)

		if count > limit.Max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeLimitHeaders(c *gin.Context, max, count, resetSec int) {
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(max))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))
}
