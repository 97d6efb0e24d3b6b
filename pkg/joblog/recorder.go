// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package joblog

import (
	"context"
	"fmt"
	"time"
)

// Recorder writes events to a Store, one durable append per call. It never
// retries, buffers, or batches: a storage failure is the caller's to handle.
type Recorder struct {
	store     Store
	identity  IdentityProvider
	resolvers []CallerResolver
}

// Config carries optional recorder collaborators. Zero fields fall back to
// the defaults: SystemIdentity and the stack-then-unit resolver chain.
type Config struct {
	Identity  IdentityProvider
	Resolvers []CallerResolver
}

// New creates a Recorder with default attribution and identity.
func New(store Store) *Recorder {
	return NewWithConfig(store, Config{})
}

// NewWithConfig creates a Recorder with injected collaborators.
func NewWithConfig(store Store, cfg Config) *Recorder {
	r := &Recorder{
		store:     store,
		identity:  cfg.Identity,
		resolvers: cfg.Resolvers,
	}
	if r.identity == nil {
		r.identity = SystemIdentity()
	}
	if r.resolvers == nil {
		r.resolvers = defaultResolvers()
	}
	return r
}

// Record validates the entry, resolves caller attribution, composes the
// context sections, and appends exactly one record, returning its
// store-assigned identifier.
func (r *Recorder) Record(ctx context.Context, severity Severity, e Entry) (int64, error) {
	sev, err := ParseSeverity(string(severity))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, string(severity))
	}
	if e.EventType == "" {
		return 0, ErrMissingEventType
	}

	caller, note := r.resolveCaller(e)

	var doc document
	doc.add("", e.Context)
	if e.fault != nil {
		doc.add(errorInfoLabel, e.fault.Format())
	}
	doc.add(callerInfoLabel, note)

	rec := &Record{
		CreatedAt: time.Now().UTC(),
		Caller:    caller,
		EventType: e.EventType,
		Severity:  sev,
		Message:   e.Message,
		Actor:     r.identity.Actor(),
		Context:   doc.String(),
	}

	id, err := r.store.Insert(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("inserting log record: %w", err)
	}
	return id, nil
}

// resolveCaller applies the attribution rules: an explicit name (or
// disabled detection) passes through untouched with no note; otherwise the
// strategies run in order and the first usable result wins. When every
// strategy fails the record is attributed to UnknownCaller, still without
// a note.
func (r *Recorder) resolveCaller(e Entry) (caller, note string) {
	if e.Caller != "" || e.NoAutoDetect {
		return e.Caller, ""
	}
	for _, res := range r.resolvers {
		if name, n, ok := res.Resolve(); ok {
			return name, n
		}
	}
	return UnknownCaller, ""
}

// Trace records an event at TRACE severity.
func (r *Recorder) Trace(ctx context.Context, e Entry) (int64, error) {
	return r.Record(ctx, SeverityTrace, e)
}

// Info records an event at INFO severity.
func (r *Recorder) Info(ctx context.Context, e Entry) (int64, error) {
	return r.Record(ctx, SeverityInfo, e)
}

// Warn records an event at WARN severity.
func (r *Recorder) Warn(ctx context.Context, e Entry) (int64, error) {
	return r.Record(ctx, SeverityWarn, e)
}

// Error records an event at ERROR severity. Unless ExcludeFault is set, the
// fault being handled is folded into the record's context as a structured
// block: the explicit Fault when provided, otherwise the one carried by ctx.
// With no active fault the output matches Record exactly.
func (r *Recorder) Error(ctx context.Context, e ErrorEntry) (int64, error) {
	if !e.ExcludeFault {
		f := e.Fault
		if f == nil {
			f, _ = FromContext(ctx)
		}
		e.Entry.fault = f
	}
	return r.Record(ctx, SeverityError, e.Entry)
}
