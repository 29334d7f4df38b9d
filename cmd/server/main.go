/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the compliance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Create API handler with services
  5. Start the expiry sweeper
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port        HTTP server port (PORT, default: 8080)
  -db          SQLite database path (DB_PATH, default: compliance.db)
               Use ":memory:" for in-memory database
  -log-level   debug, info, warn, error (LOG_LEVEL, default: info)
  -log-format  json or console (LOG_FORMAT, default: json)
  -sweep       Expiry sweep interval, 0 disables (EXPIRY_SWEEP_INTERVAL, default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the expiry sweeper
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/compliance.db"

  # Run with in-memory database and readable logs
  ./server -db=":memory:" -log-format=console

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
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

	"github.com/kaytana/compliance-engine/api"
	"github.com/kaytana/compliance-engine/config"
	"github.com/kaytana/compliance-engine/logging"
	"github.com/kaytana/compliance-engine/store/sqlite"
)

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	flag.DurationVar(&cfg.ExpirySweepInterval, "sweep", cfg.ExpirySweepInterval, "Expiry sweep interval (0 disables)")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envLoaded {
		logger.Info("loaded .env file")
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("db", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	sweeper := api.NewExpirySweeper(handler.Documents, logger)
	sweeper.CheckInterval = cfg.ExpirySweepInterval
	sweeper.Enabled = cfg.ExpirySweepInterval > 0
	sweeper.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr()), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	sweeper.Stop()

	logger.Info("server stopped")
}
