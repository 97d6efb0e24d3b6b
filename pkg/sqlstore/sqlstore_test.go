package sqlstore

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/anvilworks/joblog/pkg/joblog"
)

// testDB creates a temporary migrated SQLite database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "joblog-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := Open(DriverSQLite, dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("Open: %v", err)
	}

	if err := Migrate(db, DriverSQLite); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func insertRecord(t *testing.T, s *Store, sev joblog.Severity, caller string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), &joblog.Record{
		CreatedAt: time.Now().UTC(),
		Caller:    caller,
		EventType: "TEST_EVENT",
		Severity:  sev,
		Message:   "step finished",
		Actor:     "etl@test-host",
		Context:   "Caller Info: auto-detected via call stack (depth 2)",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)

	var last int64
	for i := 0; i < 5; i++ {
		id := insertRecord(t, s, joblog.SeverityInfo, "jobs.Import")
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)
	ctx := context.Background()

	want := &joblog.Record{
		CreatedAt: time.Now().UTC(),
		Caller:    "jobs.(*Importer).Run",
		EventType: "PROCESS_START",
		Severity:  joblog.SeverityInfo,
		Message:   "Starting import",
		Actor:     "etl@batch-03",
		Context:   "batch 7\nCaller Info: auto-detected via call stack (depth 4)",
	}
	id, err := s.Insert(ctx, want)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID = %d, want %d", got.ID, id)
	}
	if got.Caller != want.Caller {
		t.Errorf("Caller = %q, want %q", got.Caller, want.Caller)
	}
	if got.EventType != want.EventType {
		t.Errorf("EventType = %q, want %q", got.EventType, want.EventType)
	}
	if got.Severity != want.Severity {
		t.Errorf("Severity = %q, want %q", got.Severity, want.Severity)
	}
	if got.Message != want.Message {
		t.Errorf("Message = %q, want %q", got.Message, want.Message)
	}
	if got.Actor != want.Actor {
		t.Errorf("Actor = %q, want %q", got.Actor, want.Actor)
	}
	if got.Context != want.Context {
		t.Errorf("Context = %q, want %q", got.Context, want.Context)
	}
	if d := got.CreatedAt.Sub(want.CreatedAt); d < -time.Second || d > time.Second {
		t.Errorf("CreatedAt = %v, want close to %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)

	if _, err := s.GetByID(context.Background(), 999); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListBySeverity(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)

	insertRecord(t, s, joblog.SeverityInfo, "jobs.Import")
	errFirst := insertRecord(t, s, joblog.SeverityError, "jobs.Import")
	insertRecord(t, s, joblog.SeverityWarn, "jobs.Export")
	errSecond := insertRecord(t, s, joblog.SeverityError, "jobs.Export")

	records, err := s.List(context.Background(), Filter{Severity: "ERROR"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].ID != errSecond || records[1].ID != errFirst {
		t.Errorf("ids = [%d %d], want most recent first [%d %d]",
			records[0].ID, records[1].ID, errSecond, errFirst)
	}
}

func TestListByCaller(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)

	insertRecord(t, s, joblog.SeverityInfo, "jobs.Import")
	insertRecord(t, s, joblog.SeverityInfo, "jobs.Export")
	insertRecord(t, s, joblog.SeverityWarn, "jobs.Import")

	records, err := s.List(context.Background(), Filter{Caller: "jobs.Import"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.Caller != "jobs.Import" {
			t.Errorf("Caller = %q, want %q", r.Caller, "jobs.Import")
		}
	}
}

func TestListPagination(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, insertRecord(t, s, joblog.SeverityInfo, "jobs.Import"))
	}

	records, err := s.List(context.Background(), Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	// Descending from the newest: offset 2 of [5 4 3 2 1] is [3 2].
	if records[0].ID != ids[2] || records[1].ID != ids[1] {
		t.Errorf("ids = [%d %d], want [%d %d]", records[0].ID, records[1].ID, ids[2], ids[1])
	}
}

func TestCount(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)
	ctx := context.Background()

	insertRecord(t, s, joblog.SeverityInfo, "jobs.Import")
	insertRecord(t, s, joblog.SeverityError, "jobs.Import")
	insertRecord(t, s, joblog.SeverityError, "jobs.Export")

	total, err := s.Count(ctx, Filter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 3 {
		t.Errorf("Count = %d, want 3", total)
	}

	errs, err := s.Count(ctx, Filter{Severity: "ERROR"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if errs != 2 {
		t.Errorf("Count(ERROR) = %d, want 2", errs)
	}

	one, err := s.Count(ctx, Filter{Severity: "ERROR", Caller: "jobs.Export"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if one != 1 {
		t.Errorf("Count(ERROR, jobs.Export) = %d, want 1", one)
	}
}

func TestWithTxRollback(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)
	ctx := context.Background()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	id := insertRecordTx(t, s.WithTx(tx))
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if _, err := s.GetByID(ctx, id); err != ErrNotFound {
		t.Errorf("after rollback error = %v, want ErrNotFound", err)
	}
}

func TestWithTxCommit(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	s := New(db, DriverSQLite)
	ctx := context.Background()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	id := insertRecordTx(t, s.WithTx(tx))
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		t.Errorf("after commit GetByID: %v", err)
	}
}

func insertRecordTx(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), &joblog.Record{
		CreatedAt: time.Now().UTC(),
		Caller:    "jobs.Import",
		EventType: "STEP_DONE",
		Severity:  joblog.SeverityInfo,
	})
	if err != nil {
		t.Fatalf("Insert in tx: %v", err)
	}
	return id
}

func TestMigrateIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	if err := Migrate(db, DriverSQLite); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("oracle", "dsn"); err == nil {
		t.Error("Open accepted an unsupported driver")
	}
	if err := Migrate(nil, "oracle"); err == nil {
		t.Error("Migrate accepted an unsupported driver")
	}
}
