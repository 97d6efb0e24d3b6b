// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

// Package joblog records structured, attributed events from procedural job
// code into a durable store. Each event becomes an immutable Record with a
// store-assigned monotonic identifier; the caller that produced the event is
// resolved automatically from the call stack unless named explicitly.
package joblog

import (
	"errors"
	"strings"
	"time"
)

// Severity classifies a recorded event. The set is closed: values outside
// the four constants are rejected at the API boundary.
type Severity string

// Severity levels, ordered from least to most severe.
const (
	SeverityTrace Severity = "TRACE"
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// UnknownCaller is stored when caller attribution was attempted but no
// strategy produced a usable name.
const UnknownCaller = "Unknown"

var (
	// ErrInvalidSeverity is returned when a severity outside the closed
	// set reaches the recorder.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrMissingEventType is returned when an entry carries no event type.
	ErrMissingEventType = errors.New("missing event type")
)

// ParseSeverity normalizes s (trimming space, uppercasing) and validates it
// against the closed severity set.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	switch sev {
	case SeverityTrace, SeverityInfo, SeverityWarn, SeverityError:
		return sev, nil
	}
	return "", ErrInvalidSeverity
}

// Record is a single logged event. Records are append-only: once inserted
// they are never updated, and identifiers are never reused.
type Record struct {
	ID        int64     // store-assigned, strictly increasing
	CreatedAt time.Time // recorder-assigned, UTC
	Caller    string    // qualified unit name, e.g. "jobs.ImportCustomers"
	EventType string    // caller-defined category, e.g. "PROCESS_START"
	Severity  Severity
	Message   string
	Actor     string // executing principal, e.g. "etl@batch-03"
	Context   string // labeled context sections, newline-separated
}

// Entry holds the caller-supplied parts of an event. The zero value is
// usable: attribution runs automatically unless NoAutoDetect is set or
// Caller names the unit explicitly.
type Entry struct {
	Caller       string
	EventType    string
	Message      string
	Context      string
	NoAutoDetect bool

	// fault is attached by the Error facade so the fault block is
	// serialized together with the rest of the context.
	fault *Fault
}

// ErrorEntry extends Entry for the Error facade. Fault details are included
// by default: the explicit Fault if set, otherwise the fault carried by the
// context (see NewContext). ExcludeFault suppresses both.
type ErrorEntry struct {
	Entry
	Fault        *Fault
	ExcludeFault bool
}
