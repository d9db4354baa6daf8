package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/linkfolio-api/pkg/response"
)

// BodyLimit caps the request body at max bytes. Requests that declare a larger
// Content-Length are rejected before any parsing.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > max {
			response.Error(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
