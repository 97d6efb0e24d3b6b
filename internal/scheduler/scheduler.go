// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance on the record store.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/anvilworks/joblog/pkg/joblog"
	"github.com/anvilworks/joblog/pkg/sqlstore"
)

// Scheduler handles scheduled store maintenance. Maintenance compacts the
// SQLite WAL and refreshes query planner statistics; it never deletes
// log records.
type Scheduler struct {
	db       *sql.DB
	driver   string
	schedule string
	cron     *cron.Cron
	recorder *joblog.Recorder
	logger   *slog.Logger
}

// New creates a new scheduler instance.
func New(db *sql.DB, driver, schedule string, recorder *joblog.Recorder, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		driver:   driver,
		schedule: schedule,
		cron:     cron.New(),
		recorder: recorder,
		logger:   logger,
	}
}

// Start begins the scheduler with the configured maintenance job.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx := context.Background()
		if err := s.RunMaintenance(ctx); err != nil {
			s.logger.Error("store maintenance failed", "error", err)
			if _, rerr := s.recorder.Error(ctx, joblog.ErrorEntry{
				Entry: joblog.Entry{
					EventType: "MAINTENANCE_FAILED",
					Message:   "Store maintenance failed",
				},
				Fault: joblog.Capture(err),
			}); rerr != nil {
				s.logger.Warn("failed to record maintenance failure", "error", rerr)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling maintenance: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule, "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunMaintenance compacts the WAL and refreshes planner statistics, then
// records the outcome through the event log. Drivers other than SQLite
// maintain themselves, so the run is a no-op for them.
func (s *Scheduler) RunMaintenance(ctx context.Context) error {
	if s.driver != sqlstore.DriverSQLite {
		return nil
	}

	start := time.Now()

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	s.logger.Info("store maintenance completed", "duration", elapsed)

	if _, err := s.recorder.Info(ctx, joblog.Entry{
		EventType: "MAINTENANCE_COMPLETED",
		Message:   "Store maintenance completed",
		Context:   fmt.Sprintf("checkpoint=TRUNCATE duration=%s", elapsed),
	}); err != nil {
		s.logger.Warn("failed to record maintenance event", "error", err)
	}

	return nil
}
