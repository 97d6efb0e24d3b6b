// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package joblog

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// CallerResolver determines the identity of the unit of work that invoked a
// logging entry point. Implementations must be pure: no I/O and no stored
// state, so a speculative invocation is always safe.
//
// Resolve reports the qualified unit name, a note describing how the name
// was determined, and whether the result is usable. A malformed name must be
// reported as not ok, never returned for storage.
type CallerResolver interface {
	Resolve() (name, note string, ok bool)
}

// noteExecutingUnit marks records attributed by the fallback strategy.
const noteExecutingUnit = "auto-detected via executing unit"

func stackNote(depth int) string {
	return fmt.Sprintf("auto-detected via call stack (depth %d)", depth)
}

type pkgMarker struct{}

// facilityPrefix matches function symbols belonging to this package, so the
// resolvers can tell their own frames from caller frames regardless of how
// deep inside the facility they were invoked.
var facilityPrefix = reflect.TypeOf(pkgMarker{}).PkgPath() + "."

func facilityFrame(fn string) bool {
	return strings.HasPrefix(fn, facilityPrefix) || strings.HasPrefix(fn, "runtime.")
}

// unitName trims a function symbol to its final path element, yielding the
// qualified package.object form: "jobs.(*Importer).Run" from
// "github.com/acme/etl/internal/jobs.(*Importer).Run".
func unitName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		return fn[i+1:]
	}
	return fn
}

// usableUnitName rejects names lacking the two-part package.object form,
// including a bare "." separator with either side empty.
func usableUnitName(name string) bool {
	i := strings.Index(name, ".")
	return i > 0 && i < len(name)-1
}

// StackResolver is the primary attribution strategy. It walks the call
// stack and selects the entry immediately below the logging entry point:
// the direct caller, not the entry point itself.
type StackResolver struct{}

// Resolve walks the captured stack past the facility's own frames and
// reports the first caller frame. The note carries the depth at which the
// frame was found.
func (StackResolver) Resolve() (string, string, bool) {
	var pcs [32]uintptr
	n := runtime.Callers(1, pcs[:])
	if n == 0 {
		return "", "", false
	}
	frames := runtime.CallersFrames(pcs[:n])
	depth := 0
	for {
		frame, more := frames.Next()
		depth++
		if frame.Function != "" && !facilityFrame(frame.Function) {
			name := unitName(frame.Function)
			if !usableUnitName(name) {
				return "", "", false
			}
			return name, stackNote(depth), true
		}
		if !more {
			return "", "", false
		}
	}
}

// UnitResolver is the fallback attribution strategy. When the direct caller
// cannot be read from the stack, it reports the identity of the currently
// executing compiled unit: the facility entry point itself.
type UnitResolver struct{}

// Resolve reports the outermost facility frame on the stack, which is the
// entry point the caller invoked.
func (UnitResolver) Resolve() (string, string, bool) {
	var pcs [32]uintptr
	n := runtime.Callers(1, pcs[:])
	if n == 0 {
		return "", "", false
	}
	frames := runtime.CallersFrames(pcs[:n])
	entry := ""
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			if strings.HasPrefix(frame.Function, facilityPrefix) {
				entry = frame.Function
			} else if !strings.HasPrefix(frame.Function, "runtime.") && entry != "" {
				break
			}
		}
		if !more {
			break
		}
	}
	if entry == "" {
		return "", "", false
	}
	name := unitName(entry)
	if !usableUnitName(name) {
		return "", "", false
	}
	return name, noteExecutingUnit, true
}

// defaultResolvers orders the strategies: the stack walk always runs first,
// the executing-unit fallback only when it fails.
func defaultResolvers() []CallerResolver {
	return []CallerResolver{StackResolver{}, UnitResolver{}}
}
