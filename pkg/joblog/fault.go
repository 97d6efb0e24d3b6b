// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package joblog

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// Fault describes the failure being handled when an error event is
// recorded. It is an explicit value captured at the start of an
// error-handling block and passed along, not ambient global state.
type Fault struct {
	Code      int // application fault code, 0 when the error carries none
	Severity  int
	State     int
	Procedure string // qualified name of the unit handling the failure
	Line      int
	Message   string
}

// Defaults applied by Capture when the error carries no metadata of its own.
const (
	defaultFaultSeverity = 16
	defaultFaultState    = 1
)

// Coder is implemented by errors that carry an application fault code.
type Coder interface {
	FaultCode() int
}

// Capture builds a Fault for err at the point of call, recording the
// handling unit and source line. It returns nil for a nil error, so it is
// safe to call unconditionally at the top of a handling block.
func Capture(err error) *Fault {
	if err == nil {
		return nil
	}
	f := &Fault{
		Severity: defaultFaultSeverity,
		State:    defaultFaultState,
		Message:  err.Error(),
	}
	var c Coder
	if errors.As(err, &c) {
		f.Code = c.FaultCode()
	}
	if pc, _, line, ok := runtime.Caller(1); ok {
		f.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			f.Procedure = unitName(fn.Name())
		}
	}
	return f
}

// Format renders the fault as the single structured block stored in a
// record's context.
func (f *Fault) Format() string {
	proc := f.Procedure
	if proc == "" {
		proc = UnknownCaller
	}
	return fmt.Sprintf("error %d (severity %d, state %d) at %s:%d: %s",
		f.Code, f.Severity, f.State, proc, f.Line, f.Message)
}

type faultKey struct{}

// NewContext returns a copy of ctx carrying f, making the fault queryable
// by the Error facade further down the call chain.
func NewContext(ctx context.Context, f *Fault) context.Context {
	return context.WithValue(ctx, faultKey{}, f)
}

// FromContext reports the fault carried by ctx, if any.
func FromContext(ctx context.Context) (*Fault, bool) {
	f, ok := ctx.Value(faultKey{}).(*Fault)
	return f, ok && f != nil
}
