// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sqlstore persists log records in a SQL database. It implements
// joblog.Store on SQLite, PostgreSQL and MySQL, with the append path kept
// to a single statement so record identifiers always come from the writer's
// own insertion.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anvilworks/joblog/pkg/joblog"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("record not found")

// List pagination bounds.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// DBTX is the database handle the store runs its statements on, satisfied
// by *sql.DB and *sql.Tx. With a *sql.DB records are durable independently
// of any caller transaction; WithTx joins the caller's transaction instead.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads and appends log records.
type Store struct {
	db     DBTX
	driver string
}

// New creates a Store for the given driver (one of the Driver constants).
func New(db DBTX, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// WithTx returns a Store that runs inside tx, so the log records commit and
// roll back together with the caller's own writes.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: tx, driver: s.driver}
}

// rebind rewrites ? placeholders to the $n form PostgreSQL expects.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const insertColumns = "created_at, caller_name, event_type, severity, message, actor, context"

// Insert appends rec in a single statement and returns the assigned id.
// The id comes from the statement itself (RETURNING on PostgreSQL, the
// statement result elsewhere), never from a separate last-insert lookup.
func (s *Store) Insert(ctx context.Context, rec *joblog.Record) (int64, error) {
	query := "INSERT INTO log_records (" + insertColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	args := []any{rec.CreatedAt, rec.Caller, rec.EventType, string(rec.Severity), rec.Message, rec.Actor, rec.Context}

	if s.driver == DriverPostgres {
		var id int64
		err := s.db.QueryRowContext(ctx, s.rebind(query)+" RETURNING id", args...).Scan(&id)
		if err != nil {
			writeFailures.Inc()
			return 0, fmt.Errorf("inserting record: %w", err)
		}
		recordsWritten.WithLabelValues(string(rec.Severity)).Inc()
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		writeFailures.Inc()
		return 0, fmt.Errorf("inserting record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		writeFailures.Inc()
		return 0, fmt.Errorf("reading insert id: %w", err)
	}
	recordsWritten.WithLabelValues(string(rec.Severity)).Inc()
	return id, nil
}

const selectColumns = "id, created_at, caller_name, event_type, severity, message, actor, context"

// GetByID fetches a single record or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*joblog.Record, error) {
	query := s.rebind("SELECT " + selectColumns + " FROM log_records WHERE id = ?")
	var rec joblog.Record
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.CreatedAt, &rec.Caller, &rec.EventType,
		&rec.Severity, &rec.Message, &rec.Actor, &rec.Context,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %d: %w", id, err)
	}
	return &rec, nil
}

// Filter narrows List and Count. Zero fields match everything; Limit is
// clamped to the pagination bounds.
type Filter struct {
	Severity string
	Caller   string
	Limit    int
	Offset   int
}

// where builds the filter conditions shared by List and Count.
func (f Filter) where() (string, []any) {
	clause := " WHERE 1=1"
	var args []any
	if f.Severity != "" {
		clause += " AND severity = ?"
		args = append(args, f.Severity)
	}
	if f.Caller != "" {
		clause += " AND caller_name = ?"
		args = append(args, f.Caller)
	}
	return clause, args
}

// List returns records matching f, most recent first. Recency follows the
// insert order, so the sort key is the monotonic id, covered by the
// severity and caller indexes.
func (s *Store) List(ctx context.Context, f Filter) ([]joblog.Record, error) {
	clause, args := f.where()
	query := "SELECT " + selectColumns + " FROM log_records" + clause + " ORDER BY id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []joblog.Record
	for rows.Next() {
		var rec joblog.Record
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Caller, &rec.EventType,
			&rec.Severity, &rec.Message, &rec.Actor, &rec.Context,
		); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Count returns the number of records matching f, ignoring pagination.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	clause, args := f.where()
	query := s.rebind("SELECT COUNT(*) FROM log_records" + clause)

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}
