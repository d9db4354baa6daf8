package router

import (
	"github.com/oksasatya/linkfolio-api/internal/application"
	"github.com/oksasatya/linkfolio-api/internal/container"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	handlers "github.com/oksasatya/linkfolio-api/internal/interface/http"
	"github.com/oksasatya/linkfolio-api/internal/router/modules"
)

// multipart framing and text fields on top of the files themselves
const formOverhead = 1 << 20

type RecordModuleDeps struct {
	Repo    *application.RecordRepository
	Service *application.CatalogService
	Handler *handlers.RecordHandler
}

func buildRecordDeps(kind entity.Kind) RecordModuleDeps {
	repo := application.NewRecordRepository(kind, container.GetStore())
	service := application.NewCatalogService(repo, container.GetUploads(), container.GetPublisher(), container.GetLogger())
	handler := handlers.NewRecordHandler(service, container.GetLogger())
	return RecordModuleDeps{Repo: repo, Service: service, Handler: handler}
}

func maxBody(kind entity.Kind, perFile int64) int64 {
	files := 0
	for _, img := range kind.Images {
		n := img.MaxFiles
		if n < 1 {
			n = 1
		}
		files += n
	}
	return int64(files)*perFile + formOverhead
}

// InitModules builds one module per entity kind plus the debug module and
// registers them with the router registry. It returns the repositories so
// startup can create their indexes.
func InitModules(r *Registry) []*application.RecordRepository {
	cfg := container.GetConfig()
	rdb := container.GetRedis()
	if !cfg.RateLimitEnabled {
		rdb = nil
	}

	var repos []*application.RecordRepository
	for _, kind := range entity.Kinds() {
		deps := buildRecordDeps(kind)
		repos = append(repos, deps.Repo)
		r.Add(modules.NewRecordModule(
			deps.Handler,
			maxBody(kind, container.GetUploads().MaxSize()),
			rdb,
			cfg.RateLimitWrites,
			cfg.RateLimitReads,
		))
	}
	r.Add(modules.NewDebugModule(rdb, cfg.DebugMetricsEnabled))
	return repos
}
