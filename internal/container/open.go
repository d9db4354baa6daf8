package container

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/linkfolio-api/config"
	"github.com/oksasatya/linkfolio-api/internal/domain/repository"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/memory"
	mongoinfra "github.com/oksasatya/linkfolio-api/internal/infrastructure/mongo"
	pginfra "github.com/oksasatya/linkfolio-api/internal/infrastructure/postgres"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
	"github.com/oksasatya/linkfolio-api/pkg/helpers"
)

// OpenStore connects the configured document store and returns a func that
// releases it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.DocumentStore, func(), error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, err := mongoinfra.NewClient(ctx, cfg.MongoURI, uint64(cfg.MongoMaxPool), cfg.MongoConnTimeout)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return mongoinfra.NewStore(client.Database(cfg.MongoDatabase)), closeFn, nil
	case "postgres":
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			return nil, nil, err
		}
		pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
			DSN:             cfg.PostgresDSN(),
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, nil, err
		}
		return pginfra.NewStore(pool), pool.Close, nil
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
	return nil, nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
}

func OpenBlobs(ctx context.Context, cfg *config.Config) (uploads.BlobStore, func(), error) {
	switch cfg.UploadBackend {
	case "local":
		local, err := uploads.NewLocalStore(cfg.UploadsDir)
		if err != nil {
			return nil, nil, err
		}
		return local, func() {}, nil
	case "gcs":
		client, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return nil, nil, err
		}
		gcs, err := uploads.NewGCSStore(client, cfg.GCSBucket, cfg.GCSObjectPrefix)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return gcs, func() { _ = client.Close() }, nil
	}
	return nil, nil, errors.New("unknown UPLOAD_BACKEND " + cfg.UploadBackend)
}
