/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the trash schedule server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load config (YAML + TRASH_* env)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wire the comparator client and reminder publisher when configured
  5. Create API handler, scheduler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (optional)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides server.db
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reminder scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Drain NATS, close database connection
  5. Exit

EXAMPLES:
  ./server -config=./trash.yaml
  TRASH_COMPARATOR_URL=http://localhost:9000 ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Settings and precedence
  - api/server.go: Router configuration
  - api/scheduler.go: Reminder planning
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/trash-schedule/api"
	"github.com/warp/trash-schedule/compare"
	"github.com/warp/trash-schedule/config"
	"github.com/warp/trash-schedule/logging"
	"github.com/warp/trash-schedule/notify"
	"github.com/warp/trash-schedule/store/sqlite"
	"github.com/warp/trash-schedule/trash"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Server.DB = *dbPath
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.Server.DB)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	metrics := api.NewMetrics()

	// Comparator
	var comparator trash.Comparator
	if cfg.Comparator.URL != "" {
		client, err := compare.NewClient(compare.Config{
			BaseURL:   cfg.Comparator.URL,
			APIKey:    cfg.Comparator.APIKey,
			Timeout:   cfg.Comparator.Timeout,
			RateLimit: cfg.Comparator.RateLimit,
			Burst:     cfg.Comparator.Burst,
		}, logger.Named("compare"))
		if err != nil {
			return err
		}
		comparator = client
	} else {
		logger.Warn("no comparator configured, free-text lookups will fail")
	}

	// Reminder publisher
	var publisher notify.Publisher = notify.LogPublisher{Logger: logger.Named("notify")}
	if cfg.NATS.URL != "" {
		nc, err := notify.Connect(cfg.NATS.URL, logger.Named("nats"))
		if err != nil {
			return err
		}
		defer nc.Drain()
		publisher = notify.NewNATSPublisher(nc, logger.Named("notify"))
	}

	// Handler and scheduler
	resolver := trash.NewResolver(comparator, logger.Named("resolver"), metrics)
	handler := api.NewHandler(store, store, resolver, logger.Named("api"))
	handler.Metrics = metrics
	handler.Health = store
	handler.DefaultTimezone = cfg.Calendar.DefaultTimezone
	handler.DefaultLocale = cfg.Calendar.Locale
	handler.AllowedOrigins = cfg.Server.AllowedOrigins

	scheduler := api.NewReminderScheduler(store, store, publisher, logger.Named("scheduler"))
	scheduler.Metrics = metrics
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	handler.Scheduler = scheduler

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	scheduler.Start()

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.Server.DB),
			zap.String("timezone", cfg.Calendar.DefaultTimezone))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		scheduler.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
