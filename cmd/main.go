package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/oksasatya/linkfolio-api/config"
	"github.com/oksasatya/linkfolio-api/internal/container"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
	"github.com/oksasatya/linkfolio-api/internal/interface/middleware"
	"github.com/oksasatya/linkfolio-api/internal/router"
	"github.com/oksasatya/linkfolio-api/pkg/helpers"
	"github.com/oksasatya/linkfolio-api/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(helpers.LoggerOptions{App: cfg.AppName, Env: cfg.Env, Level: cfg.LogLevel})
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	store, closeStore, err := container.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	blobs, closeBlobs, err := container.OpenBlobs(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init %s uploads: %v", cfg.UploadBackend, err)
	}
	defer closeBlobs()

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if cfg.RateLimitEnabled {
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limits fail open")
		}
	}

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetStore(store)
	container.SetUploads(uploads.NewManager(blobs, cfg.UploadMaxBytes, entity.Placeholders()...))
	container.SetRedis(rdb)

	if cfg.EventsEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer pub.Close()
		container.SetPublisher(pub)
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	corsCfg := cors.Config{
		AllowOrigins:  cfg.CORSOrigins(),
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	repos := router.InitModules(reg)
	reg.RegisterAll()
	if local, ok := blobs.(*uploads.LocalStore); ok && cfg.ServeUploads {
		reg.ServeUploads(local.Dir())
	}

	idxCtx, cancelIdx := context.WithTimeout(ctx, 30*time.Second)
	for _, repo := range repos {
		if err := repo.EnsureIndexes(idxCtx); err != nil {
			cancelIdx()
			log.Fatalf("failed to ensure indexes for %s: %v", repo.Kind().Name, err)
		}
	}
	cancelIdx()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s (store=%s uploads=%s)", cfg.Port, cfg.StoreDriver, cfg.UploadBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}
