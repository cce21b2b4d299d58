package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/lexpacte/lexpacte/internal/application"
	appanalysis "github.com/lexpacte/lexpacte/internal/application/analysis"
	appchat "github.com/lexpacte/lexpacte/internal/application/chat"
	"github.com/lexpacte/lexpacte/internal/config"
	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
	"github.com/lexpacte/lexpacte/internal/domain/faults"
	"github.com/lexpacte/lexpacte/internal/infra/ai/mistral"
	"github.com/lexpacte/lexpacte/internal/infra/cryptobox"
	mysqlp "github.com/lexpacte/lexpacte/internal/infra/db/mysql"
	postgresp "github.com/lexpacte/lexpacte/internal/infra/db/postgres"
	"github.com/lexpacte/lexpacte/internal/infra/httpserver"
	"github.com/lexpacte/lexpacte/internal/infra/localvault"
	pdfx "github.com/lexpacte/lexpacte/internal/infra/pdf"
	minioStore "github.com/lexpacte/lexpacte/internal/infra/storage"
	"github.com/lexpacte/lexpacte/internal/logger"
	"github.com/lexpacte/lexpacte/internal/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := context.Background()

	box, err := cryptobox.New(cfg.Crypto.Secret)
	if err != nil {
		log.Fatalf("crypto init error: %v", err)
	}

	repo, faultRepo, checkers, closeDB, err := buildRepositories(ctx, cfg, box)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	defer closeDB()

	aiClient, err := mistral.NewClient(
		cfg.Mistral.APIKey,
		cfg.Mistral.BaseURL,
		cfg.Mistral.Model,
		cfg.Mistral.Temperature,
		cfg.MistralTimeout(),
	)
	if err != nil {
		log.Fatalf("mistral init error: %v", err)
	}

	var artifacts domain.ArtifactStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	clock := application.SystemClock{}

	analysisSvc := &appanalysis.Service{
		Runs:          appanalysis.NewRegistry(),
		Repo:          repo,
		Faults:        faultRepo,
		AI:            aiClient,
		Extractor:     pdfx.NewExtractor(),
		Sealer:        box,
		Clock:         clock,
		SecuringDelay: cfg.SecuringDelay(),
	}
	chatSvc := &appchat.Service{
		AI:           aiClient,
		ContextLimit: cfg.Chat.ContextLimit,
	}

	clauses := make([]httpserver.Clause, 0, len(cfg.Clauses))
	for _, c := range cfg.Clauses {
		clauses = append(clauses, httpserver.Clause{
			ID:       c.ID,
			Category: c.Category,
			Title:    c.Title,
			Text:     c.Text,
		})
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	mux.Mount("/", httpserver.NewRouter(analysisSvc, chatSvc, artifacts, clauses, clock, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute, // exports and model-bound calls are slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// buildRepositories wires the history and fault stores for the configured
// driver. The sqlite vault has no fault table; faults are log-only there.
func buildRepositories(ctx context.Context, cfg *config.Config, box *cryptobox.Box) (domain.HistoryRepository, faults.Repository, map[string]middleware.HealthChecker, func(), error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return mysqlp.NewHistoryRepository(db), mysqlp.NewFaultRepository(db), dbCheckers(db), closeFn(db), nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return postgresp.NewHistoryRepository(db), postgresp.NewFaultRepository(db), dbCheckers(db), closeFn(db), nil
	case "sqlite":
		vault, err := localvault.Open(cfg.Database.LocalPath, box)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return vault, nil, nil, func() { vault.Close() }, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
}

func dbCheckers(db *sql.DB) map[string]middleware.HealthChecker {
	return map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
}

func closeFn(db *sql.DB) func() {
	return func() { db.Close() }
}
