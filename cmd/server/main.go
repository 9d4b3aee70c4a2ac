package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkweon/asset-tracker/internal/api"
	"github.com/mkweon/asset-tracker/internal/auth"
	"github.com/mkweon/asset-tracker/internal/config"
	"github.com/mkweon/asset-tracker/internal/database"
	"github.com/mkweon/asset-tracker/internal/pricing"
	"github.com/mkweon/asset-tracker/internal/repository"
	"github.com/mkweon/asset-tracker/internal/scheduler"
	"github.com/mkweon/asset-tracker/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply pending migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	totalsRepo := repository.NewTotalsRepository(db)
	settingsRepo, err := repository.NewSettingsRepository(db, cfg.Pricing.FernetKey)
	if err != nil {
		log.Fatalf("Failed to create settings repository: %v", err)
	}

	// Create services
	settingsService := service.NewSettingsService(settingsRepo, cfg.Pricing.FinnhubAPIKey)
	quoter := pricing.NewClient(settingsService.FinnhubKey)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(userRepo, issuer)
	assetService := service.NewAssetService(assetRepo, totalsRepo, quoter)
	totalsService := service.NewTotalsService(assetRepo, totalsRepo, userRepo, quoter)

	// Start recurring jobs
	jobs := scheduler.New(assetService, totalsService)
	if err := jobs.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer jobs.Stop()

	// Create router
	router := api.NewRouter(cfg, db, authService, assetService, totalsService, settingsService, quoter)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
