package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codex/api/internal/app"
	"codex/api/internal/cache"
	"codex/api/internal/config"
	"codex/api/internal/identity"
	"codex/api/internal/notify"
	"codex/api/internal/render"
	"codex/api/internal/revisions"
	"codex/api/internal/search"
	"codex/api/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: could not load .env: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		log.Fatalf("failed to create revisions dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	revisionService := revisions.New(cfg.RevisionsDir)
	identityProvider := identity.NewProvider(dataStore, cfg.AvailabilityTTL)

	var availabilityCache *cache.AvailabilityCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		availabilityCache, err = cache.New(cfg.RedisURL, cfg.AvailabilityTTL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, availability lookups go straight to postgres: %v", err)
		}
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	var renderer app.Renderer
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		artifacts, err := render.NewArtifactStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("artifact store failed: %v", err)
		}
		if err := artifacts.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: artifact bucket check failed: %v", err)
		}
		renderer = render.NewService(dataStore, artifacts)
	}

	var notifier app.Notifier
	mailer := notify.NewService(notify.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, dataStore)
	if mailer.IsConfigured() {
		notifier = mailer
	}

	deps := app.Deps{
		Store:     dataStore,
		Identity:  identityProvider,
		Revisions: revisionService,
		Renderer:  renderer,
		Notifier:  notifier,
		Search:    searchService,
		Finder:    searchService,
		Browser:   revisionService,
	}
	if availabilityCache != nil {
		deps.Cache = availabilityCache
	}

	service := app.New(cfg, deps)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Codex API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
