// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/anvilworks/joblog/pkg/sqlstore"
)

// Config holds the service configuration loaded from environment variables.
type Config struct {
	DBDriver   string `env:"JOBLOG_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"JOBLOG_DB_DSN" envDefault:"./data/joblog.db"`
	ServerHost string `env:"JOBLOG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"JOBLOG_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"JOBLOG_ENV" envDefault:"development"`
	LogLevel   string `env:"JOBLOG_LOG_LEVEL" envDefault:"info"`

	// Bridge configuration
	BridgeLevel string `env:"JOBLOG_BRIDGE_LEVEL" envDefault:"warn"` // minimum slog level copied into the event log

	// Store maintenance schedule in cron format
	MaintenanceSchedule string `env:"JOBLOG_MAINTENANCE_SCHEDULE" envDefault:"0 * * * *"`

	// Viewer API configuration
	CORSOrigins    []string `env:"JOBLOG_CORS_ORIGINS"`                     // allowed origins, comma-separated; empty disables CORS
	RateLimitRPS   float64  `env:"JOBLOG_RATE_LIMIT_RPS" envDefault:"10"`   // sustained requests per second per client
	RateLimitBurst int      `env:"JOBLOG_RATE_LIMIT_BURST" envDefault:"20"` // burst allowance per client
}

// IsDevelopment returns true if the service is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// CORSEnabled returns true if any cross-origin requests are allowed.
func (c Config) CORSEnabled() bool {
	return len(c.CORSOrigins) > 0
}

// validLogLevels are the accepted JOBLOG_LOG_LEVEL / JOBLOG_BRIDGE_LEVEL values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.DBDriver {
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres, sqlstore.DriverMySQL:
	default:
		return nil, fmt.Errorf("JOBLOG_DB_DRIVER must be one of sqlite, postgres, mysql; got %q", cfg.DBDriver)
	}

	if !validLogLevels[cfg.LogLevel] {
		return nil, fmt.Errorf("JOBLOG_LOG_LEVEL must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	if !validLogLevels[cfg.BridgeLevel] {
		return nil, fmt.Errorf("JOBLOG_BRIDGE_LEVEL must be one of debug, info, warn, error; got %q", cfg.BridgeLevel)
	}

	if cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("JOBLOG_RATE_LIMIT_RPS must be positive, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("JOBLOG_RATE_LIMIT_BURST must be at least 1, got %d", cfg.RateLimitBurst)
	}

	return cfg, nil
}
