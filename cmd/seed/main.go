package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/linkfolio-api/config"
	"github.com/oksasatya/linkfolio-api/internal/application"
	"github.com/oksasatya/linkfolio-api/internal/container"
	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
	"github.com/oksasatya/linkfolio-api/pkg/helpers"
	"github.com/oksasatya/linkfolio-api/pkg/validation"
)

// seed inserts a demo profile with one record of every kind. Re-running it is
// harmless: the demo user is unique by link and email, and the rest are only
// added while their collection is empty.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(helpers.LoggerOptions{App: cfg.AppName + "-seed", Env: cfg.Env, Level: cfg.LogLevel})
	validation.Init()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

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
	files := uploads.NewManager(blobs, cfg.UploadMaxBytes, entity.Placeholders()...)

	services := map[string]*application.CatalogService{}
	for _, kind := range entity.Kinds() {
		repo := application.NewRecordRepository(kind, store)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Fatalf("ensure indexes for %s: %v", kind.Name, err)
		}
		services[kind.Name] = application.NewCatalogService(repo, files, nil, logger)
	}

	user, err := services["users"].Create(ctx, application.Input{Fields: map[string]any{
		"firstName": "Demo",
		"lastName":  "User",
		"link":      "demo",
		"email":     "demo@example.com",
		"shortBio":  "Yoga instructor and workshop host",
		"socialLinks": map[string]any{
			"instagram": "https://instagram.com/demo",
		},
	}})
	switch {
	case err == nil:
		fmt.Printf("seeded user: id=%s link=%s\n", user.ID(), user.String("link"))
	case apperr.Is(err, apperr.KindConflict):
		fmt.Println("demo user already present")
	default:
		log.Fatalf("failed to seed user: %v", err)
	}

	demo := []struct {
		kind   string
		fields map[string]any
	}{
		{"services", map[string]any{"name": "Private yoga", "description": "One-on-one session tailored to you", "price": "50"}},
		{"workshops", map[string]any{"name": "Breathwork basics", "description": "Two-hour introduction to breathwork", "price": "25", "strikePrice": "35"}},
		{"products", map[string]any{"name": "Practice guide", "description": "Printable 30-day practice guide", "price": "free"}},
		{"about", map[string]any{"description": "A short story about how it all started."}},
	}
	for _, d := range demo {
		svc := services[d.kind]
		page, err := svc.List(ctx, application.ListQuery{Limit: 1})
		if err != nil {
			log.Fatalf("failed to list %s: %v", d.kind, err)
		}
		if page.Total > 0 {
			fmt.Printf("%s already seeded\n", d.kind)
			continue
		}
		rec, err := svc.Create(ctx, application.Input{Fields: d.fields})
		if err != nil {
			log.Fatalf("failed to seed %s: %v", d.kind, err)
		}
		fmt.Printf("seeded %s: id=%s\n", svc.Kind.Singular, rec.ID())
	}
}
