package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/linkfolio-api/config"
	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
	"github.com/oksasatya/linkfolio-api/pkg/events"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	store       repository.DocumentStore
	uploadMgr   *uploads.Manager
	redisClient *redis.Client
	publisher   events.Publisher
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger { return logger }
func SetStore(s repository.DocumentStore) { store = s }
func GetStore() repository.DocumentStore { return store }
func SetUploads(m *uploads.Manager) { uploadMgr = m }
func GetUploads() *uploads.Manager { return uploadMgr }
func SetRedis(r *redis.Client) { redisClient = r }
func GetRedis() *redis.Client { return redisClient }
func SetPublisher(p events.Publisher) { publisher = p }
func GetPublisher() events.Publisher { return publisher }
