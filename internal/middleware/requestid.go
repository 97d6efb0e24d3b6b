// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

// ContextKeyRequestID is the context key for the request ID.
const ContextKeyRequestID ContextKey = "request_id"

// HeaderRequestID is the header carrying the request ID.
const HeaderRequestID = "X-Request-ID"

// RequestID attaches a request ID to every request. An ID supplied by the
// client in X-Request-ID is kept, otherwise a new one is generated. The ID
// is stored in the request context and echoed in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from the request context, or ""
// when the RequestID middleware did not run.
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyRequestID).(string)
	return id
}
