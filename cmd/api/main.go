package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/database/migration"
	handlers "docflow/internal/http/handler"
	"docflow/internal/http/middleware"
	tracing "docflow/internal/otel"
	"docflow/internal/repository"
	"docflow/internal/repository/localstore"
	"docflow/internal/repository/postgres"
	"docflow/internal/service"
	"docflow/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Wire the persistence backend. If the remote database is unreachable at
	// startup, fall back to the local SQLite store with blob storage disabled.
	var (
		store repository.RecordStore
		blobs storage.Storage
		db    *sql.DB
	)
	db, err = database.NewPostgres(cfg.Database)
	if err != nil {
		logStartupJSON(map[string]any{
			"level": "warn",
			"msg":   "backend_unavailable",
			"error": err.Error(),
			"mode":  "local",
			"path":  cfg.LocalStore.Path,
		})
		local, lerr := localstore.Open(cfg.LocalStore.Path)
		if lerr != nil {
			log.Fatalf("failed to open local fallback store: %v", lerr)
		}
		defer local.Close()
		store = local
		db = nil
	} else {
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		store = postgres.NewRecordPostgres(db)

		// Object storage is only meaningful alongside the remote backend.
		blobs, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	}

	svc := service.NewCaseService(store, blobs)
	if err := svc.Reload(ctx); err != nil {
		log.Fatalf("failed to load record collection: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// OpenTelemetry spans per request
	app.Use(otelfiber.Middleware())

	prom, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}
	app.Use(prom.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, svc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func logStartupJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	data["component"] = "startup"
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal startup log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
