// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// StatusResponse contains service status information.
type StatusResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	Uptime    string `json:"uptime"`
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:    "ok",
		Version:   h.version.Version,
		GitCommit: h.version.GitCommit,
		BuildTime: h.version.BuildTime,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}, nil)
}

// Healthz handles GET /healthz. It pings the database and reports 503
// when the store is unreachable.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		slog.Error("health check database ping failed", "error", err)
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
