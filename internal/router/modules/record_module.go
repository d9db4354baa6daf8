package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/linkfolio-api/internal/interface/http"
	"github.com/oksasatya/linkfolio-api/internal/interface/middleware"
)

// RecordModule wires the CRUD routes of one entity kind:
//
//	POST   /api/<kind>
//	GET    /api/<kind>?page=&limit=&search=
//	GET    /api/<kind>/:id
//	PUT    /api/<kind>/:id
//	DELETE /api/<kind>/:id
type RecordModule struct {
	Handler      *handlers.RecordHandler
	MaxBody      int64 // caps create/update bodies
	Redis        *redis.Client
	WritesPerMin int
	ReadsPerMin  int
}

func NewRecordModule(h *handlers.RecordHandler, maxBody int64, rdb *redis.Client, writesPerMin, readsPerMin int) *RecordModule {
	return &RecordModule{Handler: h, MaxBody: maxBody, Redis: rdb, WritesPerMin: writesPerMin, ReadsPerMin: readsPerMin}
}

func (m *RecordModule) Register(rg *gin.RouterGroup) {
	read := middleware.RateLimit(m.Redis, middleware.PerMinute(m.ReadsPerMin), middleware.KeyByIPAndMethod(), middleware.AllowPrivateIP())
	write := middleware.RateLimit(m.Redis, middleware.PerMinute(m.WritesPerMin), middleware.KeyByIPAndMethod(), nil)
	body := middleware.BodyLimit(m.MaxBody)

	g := rg.Group("/" + m.Handler.Svc.Kind.Name)
	{
		g.GET("", read, m.Handler.List)
		g.GET("/:id", read, m.Handler.Get)
		g.POST("", write, body, m.Handler.Create)
		g.PUT("/:id", write, body, m.Handler.Update)
		g.DELETE("/:id", write, m.Handler.Delete)
	}
}
