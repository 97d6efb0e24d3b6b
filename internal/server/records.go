// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/anvilworks/joblog/pkg/joblog"
	"github.com/anvilworks/joblog/pkg/sqlstore"
)

// RecordResponse represents a log record in API responses.
type RecordResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Caller    string    `json:"caller"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message,omitempty"`
	Actor     string    `json:"actor"`
	Context   string    `json:"context,omitempty"`
}

// recordToResponse converts a joblog.Record to RecordResponse.
func recordToResponse(rec joblog.Record) RecordResponse {
	return RecordResponse{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Caller:    rec.Caller,
		EventType: rec.EventType,
		Severity:  string(rec.Severity),
		Message:   rec.Message,
		Actor:     rec.Actor,
		Context:   rec.Context,
	}
}

// ListRecords handles GET /api/v1/records.
// Supports severity and caller filters plus limit/offset pagination.
// Records are returned newest first.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := sqlstore.Filter{
		Caller: r.URL.Query().Get("caller"),
		Limit:  parseIntParam(r, "limit", 50, 1, 500),
		Offset: parseIntParam(r, "offset", 0, 0, 0),
	}

	if raw := r.URL.Query().Get("severity"); raw != "" {
		sev, err := joblog.ParseSeverity(raw)
		if err != nil {
			WriteBadRequest(w, "Invalid severity", map[string]string{
				"severity": "Severity must be one of TRACE, INFO, WARN, ERROR",
			})
			return
		}
		filter.Severity = string(sev)
	}

	records, err := h.store.List(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list records")
		return
	}

	total, err := h.store.Count(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to count records")
		return
	}

	responses := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, recordToResponse(rec))
	}

	WriteSuccess(w, responses, &Meta{
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetRecord handles GET /api/v1/records/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid record ID", nil)
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlstore.ErrNotFound) {
			WriteNotFound(w, "Record not found")
		} else {
			WriteInternalError(w, "Failed to retrieve record")
		}
		return
	}

	WriteSuccess(w, recordToResponse(*rec), nil)
}
