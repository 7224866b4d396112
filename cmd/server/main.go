// Package main is the entry point for the countdown tracker server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/countdown-tracker/backend/internal/api"
	"github.com/countdown-tracker/backend/internal/cloudsync"
	"github.com/countdown-tracker/backend/internal/config"
	"github.com/countdown-tracker/backend/internal/notify"
	"github.com/countdown-tracker/backend/internal/remote"
	"github.com/countdown-tracker/backend/internal/storage"
	"github.com/countdown-tracker/backend/internal/store"
	"github.com/countdown-tracker/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	addr := flag.String("addr", "", "HTTP server address (overrides config)")
	dataDir := flag.String("data", "", "Data directory for SQLite database (overrides config)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides config)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting Countdown Tracker (version: %s)...", version)

	// Initialize database
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %q: %v", cfg.DataDir, err)
	}
	dbPath := cfg.DataDir + "/countdown-tracker.db"
	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	broadcaster := websocket.NewEventBroadcaster(hub)

	// Initialize cloud backend
	client := remote.NewClient(remote.Config{
		BaseURL:     cfg.Cloud.URL,
		APIKey:      cfg.Cloud.APIKey,
		AccessToken: cfg.Cloud.AccessToken,
		Timeout:     30 * time.Second,
	})
	auth := remote.NewAuth(client)
	if cfg.CloudEnabled() {
		log.Println("Cloud sync enabled")
		auth.Refresh(context.Background())
	} else {
		log.Println("Cloud sync not configured, running local-only")
	}

	// Initialize sync queue
	queue := cloudsync.NewQueue(remote.NewSyncWriter(client, auth), cloudsync.Config{
		Debounce:          cfg.SyncDebounce(),
		MaxRetries:        cfg.Sync.MaxRetries,
		RetryDelay:        cfg.SyncRetryDelay(),
		BackoffMultiplier: cfg.Sync.BackoffMultiplier,
	})

	// Initialize reminder scheduler
	reminders := notify.NewScheduler(broadcaster)

	// Initialize the event store coordinator
	coordinator := store.NewCoordinator(store.Options{
		Local:            storage.NewEventRepository(db),
		Cloud:            remote.NewLoader(client),
		Queue:            queue,
		Reminders:        reminders,
		Identity:         auth,
		Feed:             remote.NewRealtime(client),
		Broadcaster:      broadcaster,
		CloudEnabled:     cfg.CloudEnabled(),
		SyncCooldown:     cfg.SyncCooldown(),
		SweepSchedule:    cfg.Recurrence.SweepSchedule,
		AuthPollInterval: cfg.AuthPollInterval(),
	})
	if err := coordinator.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start event store: %v", err)
	}

	// Initialize HTTP router
	router := api.NewRouter(db, hub, cfg.StaticDir, coordinator)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Push any unsynced changes before tearing down. Failure here only
	// costs a later re-sync, so the shutdown continues either way.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := coordinator.ForceSyncNow(flushCtx); err != nil {
		log.Printf("Final sync failed: %v", err)
	}
	flushCancel()

	coordinator.Close()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
