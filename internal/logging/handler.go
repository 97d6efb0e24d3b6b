// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that feeds the event log. It
// forwards every record to a wrapped handler and additionally records WARN
// level and above through the joblog recorder, so ad-hoc service logging
// and structured job events end up in the same durable store.
package logging

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/anvilworks/joblog/pkg/joblog"
)

// EventBridge is a slog.Handler that wraps another handler and also writes
// records at or above a threshold level into the event log.
type EventBridge struct {
	inner    slog.Handler
	recorder *joblog.Recorder
	level    slog.Level // minimum level copied into the event log
}

// NewEventBridge creates a bridge that records WARN and above.
func NewEventBridge(inner slog.Handler, rec *joblog.Recorder) *EventBridge {
	return NewEventBridgeWithLevel(inner, rec, slog.LevelWarn)
}

// NewEventBridgeWithLevel creates a bridge with a custom minimum level.
func NewEventBridgeWithLevel(inner slog.Handler, rec *joblog.Recorder, level slog.Level) *EventBridge {
	return &EventBridge{
		inner:    inner,
		recorder: rec,
		level:    level,
	}
}

// Enabled implements slog.Handler.
func (h *EventBridge) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventBridge) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventBridge{
		inner:    h.inner.WithAttrs(attrs),
		recorder: h.recorder,
		level:    h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *EventBridge) WithGroup(name string) slog.Handler {
	return &EventBridge{
		inner:    h.inner.WithGroup(name),
		recorder: h.recorder,
		level:    h.level,
	}
}

// writeToLog records a slog record as an event. Failures are dropped: the
// bridge is a best-effort observer and the primary handler has already seen
// the record.
func (h *EventBridge) writeToLog(r slog.Record) {
	entry := joblog.Entry{
		EventType: extractEventType(r),
		Message:   r.Message,
		Context:   attrsText(r),
	}

	// The caller comes from the record's program counter, not from the
	// stack: by the time the recorder runs, the stack shows this bridge
	// and slog internals instead of the logging site.
	if caller := callerFromPC(r.PC); caller != "" {
		entry.Caller = caller
	} else {
		entry.NoAutoDetect = true
	}

	// Background context so the event is recorded even if the request
	// context is already cancelled.
	_, _ = h.recorder.Record(context.Background(), severityFor(r.Level), entry)
}

// defaultEventType is used when a record carries no event_type attribute.
const defaultEventType = "LOG_MESSAGE"

// severityFor converts a slog.Level to an event severity.
func severityFor(level slog.Level) joblog.Severity {
	switch {
	case level >= slog.LevelError:
		return joblog.SeverityError
	case level >= slog.LevelWarn:
		return joblog.SeverityWarn
	case level >= slog.LevelInfo:
		return joblog.SeverityInfo
	default:
		return joblog.SeverityTrace
	}
}

// extractEventType reads the event_type attribute, if present.
func extractEventType(r slog.Record) string {
	eventType := defaultEventType
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "event_type" {
			eventType = a.Value.String()
			return false
		}
		return true
	})
	return eventType
}

// callerFromPC resolves the logging site recorded by slog into the
// qualified unit name stored on the record.
func callerFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.Function == "" {
		return ""
	}
	name := frame.Function
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// attrsText renders the record's attributes as "key=value" pairs for the
// record context, skipping the event_type attribute already extracted.
func attrsText(r slog.Record) string {
	if r.NumAttrs() == 0 {
		return ""
	}

	var sb strings.Builder
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "event_type" {
			return true
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(a.Key)
		sb.WriteString("=")
		sb.WriteString(a.Value.String())
		return true
	})
	return sb.String()
}
