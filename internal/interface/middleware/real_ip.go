package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the client IP in the Gin context under "real_ip". When
// trustProxy is set it prefers CF-Connecting-IP, then the left-most
// X-Forwarded-For entry; otherwise it uses c.ClientIP().
func RealIP(trustProxy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", resolveIP(c, trustProxy))
		c.Next()
	}
}

func resolveIP(c *gin.Context, trustProxy bool) string {
	if trustProxy {
		if cf := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); cf != "" {
			if ip := net.ParseIP(cf); ip != nil {
				return ip.String()
			}
		}
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip.String()
			}
		}
	}
	return c.ClientIP()
}

// AllowPrivateIP bypasses rate limits for loopback and private-range clients.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		return parsed != nil && (parsed.IsLoopback() || parsed.IsPrivate())
	}
}
