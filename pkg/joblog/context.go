// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package joblog

import "strings"

// Section labels for recorder-synthesized context.
const (
	callerInfoLabel = "Caller Info"
	errorInfoLabel  = "Error Info"
)

// document orders labeled context sections. Sections are kept structured
// until the record is handed to the store, where String renders them.
type document struct {
	sections []section
}

type section struct {
	label string // empty for caller-supplied text
	text  string
}

// add appends a section, dropping empty text.
func (d *document) add(label, text string) {
	if text == "" {
		return
	}
	d.sections = append(d.sections, section{label: label, text: text})
}

// String renders the sections in order, one per line. Labeled sections read
// "Label: text"; the caller-supplied section is rendered verbatim.
func (d *document) String() string {
	parts := make([]string, 0, len(d.sections))
	for _, s := range d.sections {
		if s.label == "" {
			parts = append(parts, s.text)
			continue
		}
		parts = append(parts, s.label+": "+s.text)
	}
	return strings.Join(parts, "\n")
}
