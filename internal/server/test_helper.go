// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anvilworks/joblog/internal/config"
	"github.com/anvilworks/joblog/internal/testutil"
	"github.com/anvilworks/joblog/internal/version"
	"github.com/anvilworks/joblog/pkg/joblog"
	"github.com/anvilworks/joblog/pkg/sqlstore"
)

// testSetup creates a SQLite-backed store and API handler for testing.
// Rate limits are set high so tests never trip the limiter.
func testSetup(t *testing.T) (*sqlstore.Store, *Handler) {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	st := sqlstore.New(db, sqlstore.DriverSQLite)
	cfg := &config.Config{
		Env:            "development",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}

	return st, New(db, st, version.Info{Version: "test", GitCommit: "abc1234", BuildTime: "2026-01-01T00:00:00Z"}, cfg)
}

// insertTestRecord inserts a record directly through the store and returns its ID.
func insertTestRecord(t *testing.T, st *sqlstore.Store, severity joblog.Severity, caller, eventType string) int64 {
	t.Helper()

	id, err := st.Insert(context.Background(), &joblog.Record{
		CreatedAt: time.Now().UTC(),
		Caller:    caller,
		EventType: eventType,
		Severity:  severity,
		Message:   "test message",
		Actor:     "tester@host",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeRecordList decodes a list response envelope into record responses.
func decodeRecordList(t *testing.T, body []byte) ([]RecordResponse, *Meta) {
	t.Helper()

	var resp struct {
		Data []RecordResponse `json:"data"`
		Meta *Meta            `json:"meta"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decoding list response: %v", err)
	}
	return resp.Data, resp.Meta
}

// decodeRecord decodes a single-record response envelope.
func decodeRecord(t *testing.T, body []byte) RecordResponse {
	t.Helper()

	var resp struct {
		Data RecordResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decoding record response: %v", err)
	}
	return resp.Data
}

// decodeError decodes an error response envelope.
func decodeError(t *testing.T, body []byte) ErrorDetail {
	t.Helper()

	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp.Error
}

// decodeBody decodes an HTTP response body as JSON.
func decodeBody(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

// readBody reads an HTTP response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(body)
}
