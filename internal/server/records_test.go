// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anvilworks/joblog/pkg/joblog"
)

func TestListRecordsEmpty(t *testing.T) {
	_, h := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rr := httptest.NewRecorder()
	h.ListRecords(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusOK)
	}

	records, meta := decodeRecordList(t, rr.Body.Bytes())
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
	if meta == nil || meta.Total != 0 {
		t.Errorf("meta = %+v, want total 0", meta)
	}
}

func TestListRecordsNewestFirst(t *testing.T) {
	st, h := testSetup(t)

	first := insertTestRecord(t, st, joblog.SeverityInfo, "jobs.LoadOrders", "PROCESS_START")
	second := insertTestRecord(t, st, joblog.SeverityInfo, "jobs.LoadOrders", "PROCESS_END")
	third := insertTestRecord(t, st, joblog.SeverityInfo, "jobs.LoadOrders", "PROCESS_START")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rr := httptest.NewRecorder()
	h.ListRecords(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusOK)
	}

	records, meta := decodeRecordList(t, rr.Body.Bytes())
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0].ID != third || records[1].ID != second || records[2].ID != first {
		t.Errorf("order = [%d %d %d], want [%d %d %d]",
			records[0].ID, records[1].ID, records[2].ID, third, second, first)
	}
	if meta.Total != 3 {
		t.Errorf("meta.Total = %d, want 3", meta.Total)
	}
}

func TestListRecordsSeverityFilter(t *testing.T) {
	st, h := testSetup(t)

	insertTestRecord(t, st, joblog.SeverityInfo, "jobs.LoadOrders", "PROCESS_START")
	errID := insertTestRecord(t, st, joblog.SeverityError, "jobs.LoadOrders", "PROCESS_ABORT")
	insertTestRecord(t, st, joblog.SeverityWarn, "jobs.LoadOrders", "ROW_SKIPPED")

	// lowercase severity is normalized before filtering
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?severity=error", nil)
	rr := httptest.NewRecorder()
	h.ListRecords(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusOK)
	}

	records, meta := decodeRecordList(t, rr.Body.Bytes())
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ID != errID {
		t.Errorf("ID = %d, want %d", records[0].ID, errID)
	}
	if records[0].Severity != "ERROR" {
		t.Errorf("Severity = %q, want %q", records[0].Severity, "ERROR")
	}
	if meta.Total != 1 {
		t.Errorf("meta.Total = %d, want 1", meta.Total)
	}
}

func TestListRecordsInvalidSeverity(t *testing.T) {
	_, h := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?severity=FATAL", nil)
	rr := httptest.NewRecorder()
	h.ListRecords(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	detail := decodeError(t, rr.Body.Bytes())
	if detail.Code != "bad_request" {
		t.Errorf("code = %q, want %q", detail.Code, "bad_request")
	}
	if detail.Details["severity"] == "" {
		t.Error("details should name the severity field")
	}
}

func TestListRecordsCallerFilter(t *testing.T) {
	st, h := testSetup(t)

	wantID := insertTestRecord(t, st, joblog.SeverityInfo, "etl.SyncInventory", "PROCESS_START")
	insertTestRecord(t, st, joblog.SeverityInfo, "jobs.LoadOrders", "PROCESS_START")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?caller=etl.SyncInventory", nil)
	rr := httptest.NewRecorder()
	h.ListRecords(rr, req)

	records, _ := decodeRecordList(t, rr.Body.Bytes())
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ID != wantID {
		t.Errorf("ID = %d, want %d", records[0].ID, wantID)
	}
}

func TestListRecordsPagination(t *testing.T) {
	st, h := testSetup(t)

	var ids []int64
	for i := 0; i < 4; i++ {
		ids = append(ids, insertTestRecord(t, st, joblog.SeverityInfo, "jobs.LoadOrders", "PROCESS_START"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?limit=1&offset=1", nil)
	rr := httptest.NewRecorder()
	h.ListRecords(rr, req)

	records, meta := decodeRecordList(t, rr.Body.Bytes())
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	// Second newest record
	if records[0].ID != ids[2] {
		t.Errorf("ID = %d, want %d", records[0].ID, ids[2])
	}
	if meta.Total != 4 {
		t.Errorf("meta.Total = %d, want 4", meta.Total)
	}
	if meta.Limit != 1 || meta.Offset != 1 {
		t.Errorf("meta limit/offset = %d/%d, want 1/1", meta.Limit, meta.Offset)
	}
}

func TestGetRecord(t *testing.T) {
	st, h := testSetup(t)

	id := insertTestRecord(t, st, joblog.SeverityWarn, "jobs.LoadOrders", "ROW_SKIPPED")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/1", nil)
	req = requestWithURLParams(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.GetRecord(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusOK)
	}

	rec := decodeRecord(t, rr.Body.Bytes())
	if rec.ID != id {
		t.Errorf("ID = %d, want %d", rec.ID, id)
	}
	if rec.Caller != "jobs.LoadOrders" {
		t.Errorf("Caller = %q, want %q", rec.Caller, "jobs.LoadOrders")
	}
	if rec.EventType != "ROW_SKIPPED" {
		t.Errorf("EventType = %q, want %q", rec.EventType, "ROW_SKIPPED")
	}
	if rec.Severity != "WARN" {
		t.Errorf("Severity = %q, want %q", rec.Severity, "WARN")
	}
	if rec.Actor != "tester@host" {
		t.Errorf("Actor = %q, want %q", rec.Actor, "tester@host")
	}
}

func TestGetRecordNotFound(t *testing.T) {
	_, h := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/99", nil)
	req = requestWithURLParams(req, map[string]string{"id": "99"})
	rr := httptest.NewRecorder()
	h.GetRecord(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	detail := decodeError(t, rr.Body.Bytes())
	if detail.Code != "not_found" {
		t.Errorf("code = %q, want %q", detail.Code, "not_found")
	}
}

func TestGetRecordInvalidID(t *testing.T) {
	_, h := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/abc", nil)
	req = requestWithURLParams(req, map[string]string{"id": "abc"})
	rr := httptest.NewRecorder()
	h.GetRecord(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
