// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package progress implements a status-line progress meter for the packing pipeline, in the style
// of a terminal-aware status line printer: it overwrites a single line of output, falls back to
// silence when standard output isn't a terminal, and reports humanized file counts.
package progress

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// A Meter tracks progress through a known-size sequence of files.
type Meter struct {
	// Enabled controls whether Step actually prints anything. Disabled Meters are cheap no-ops,
	// so callers can construct one unconditionally and let New decide.
	enabled bool

	total int
	done  int
}

// New constructs a Meter for a sequence of `total` files. Progress is only printed when verbose is
// true AND standard output is a terminal (a non-terminal standard output, e.g. when piping envpack's
// output, gets no status line noise mixed into it).
func New(total int, verbose bool) *Meter {
	return &Meter{
		enabled: verbose && isatty.IsTerminal(os.Stdout.Fd()),
		total:   total,
	}
}

// Step advances the meter by one file and, if enabled, rewrites the status line to reflect the
// new position and the file just processed.
func (m *Meter) Step(target string) {
	m.done++
	if !m.enabled {
		return
	}
	fmt.Fprintf(os.Stdout, "\r%s %s",
		color.CyanString("[%s/%s]", humanize.Comma(int64(m.done)), humanize.Comma(int64(m.total))),
		truncate(target, 60))
}

// Done finishes the meter, clearing the status line (if one was ever printed).
func (m *Meter) Done() {
	if !m.enabled {
		return
	}
	fmt.Fprint(os.Stdout, "\r\033[K")
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s + spaces(width-len(s))
	}
	return "..." + s[len(s)-width+3:]
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
