package modules

import (
	"expvar"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/linkfolio-api/internal/interface/middleware"
	"github.com/oksasatya/linkfolio-api/pkg/response"
)

// DebugModule exposes liveness and the expvar counters.
type DebugModule struct {
	Redis   *redis.Client
	Metrics bool
}

func NewDebugModule(rdb *redis.Client, metrics bool) *DebugModule {
	return &DebugModule{Redis: rdb, Metrics: metrics}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	})
	if m.Metrics {
		rl := middleware.RateLimit(m.Redis, middleware.PerMinute(120), middleware.KeyByIP(), middleware.AllowPrivateIP())
		rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	}
}
