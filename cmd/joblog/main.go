// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anvilworks/joblog/internal/config"
	"github.com/anvilworks/joblog/internal/logging"
	"github.com/anvilworks/joblog/internal/scheduler"
	"github.com/anvilworks/joblog/internal/server"
	"github.com/anvilworks/joblog/internal/version"
	"github.com/anvilworks/joblog/pkg/joblog"
	"github.com/anvilworks/joblog/pkg/sqlstore"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "joblog - Structured event logging service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_DB_DRIVER        Database driver: sqlite|postgres|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_DB_DSN           Database DSN (default: ./data/joblog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_SERVER_HOST      Server host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_LOG_LEVEL        Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_BRIDGE_LEVEL     Minimum level copied into the event log (default: warn)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_CORS_ORIGINS     Allowed CORS origins, comma-separated (default: none)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_RATE_LIMIT_RPS   API requests per second per client (default: 10)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_RATE_LIMIT_BURST API burst allowance per client (default: 20)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JOBLOG_MAINTENANCE_SCHEDULE  Store maintenance cron schedule (default: 0 * * * *)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Printf("joblog %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// parseLevel maps a config level name to a slog.Level.
func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Create version info from build-time injected values
	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure the data directory exists for SQLite
	if cfg.DBDriver == sqlstore.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	// Initialize database
	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := sqlstore.Migrate(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	st := sqlstore.New(db, cfg.DBDriver)
	recorder := joblog.New(st)

	// Upgrade logger to copy bridge-level logs into the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventBridgeWithLevel(textHandler, recorder, parseLevel(cfg.BridgeLevel)))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", cfg.BridgeLevel)

	ctx := context.Background()

	// Record service start in the event log
	if _, err := recorder.Info(ctx, joblog.Entry{
		EventType: "SERVICE_START",
		Message:   "joblog service starting",
		Context:   fmt.Sprintf("version=%s driver=%s", versionInfo.Version, cfg.DBDriver),
	}); err != nil {
		slog.Warn("failed to record service start", "error", err)
	}

	// Start store maintenance scheduler
	sched := scheduler.New(db, cfg.DBDriver, cfg.MaintenanceSchedule, recorder, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Assemble the API
	h := server.New(db, st, versionInfo, cfg)

	limiterCtx, limiterCancel := context.WithCancel(ctx)
	defer limiterCancel()
	go h.StartLimiterCleanup(limiterCtx)

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           h.Router(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second, // mitigates slowloris attacks
		MaxHeaderBytes:    1 << 20,          // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Record service stop while the store is still open
	if _, err := recorder.Info(context.Background(), joblog.Entry{
		EventType: "SERVICE_STOP",
		Message:   "joblog service stopping",
	}); err != nil {
		slog.Warn("failed to record service stop", "error", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
