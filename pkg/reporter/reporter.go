// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package reporter provides an explicit reporter interface for surfacing warnings and log lines
// from the env/pack pipeline, instead of a process-wide singleton that branches on whether a CLI
// is driving.
package reporter

import (
	"context"

	"github.com/datawire/dlib/dlog"
)

// A Reporter receives warnings and informational log lines from the loader and packer.
//
// Implementations must be safe to call from the single goroutine that drives a pack (the core is
// single-threaded per §5 of the specification), so no internal locking is required.
type Reporter interface {
	// Warn reports a non-fatal problem: an uncached package, a shebang that couldn't be fully
	// rewritten, and so on.
	Warn(msg string)

	// Log reports routine progress information. The CLI reporter only emits it when verbose; the
	// library reporter always passes it to structured logging.
	Log(msg string)
}

// Library returns a Reporter that routes both warnings and log lines through structured logging,
// for use when envpack is imported as a library rather than driven from the CLI.
func Library(ctx context.Context) Reporter {
	return &libraryReporter{ctx: ctx}
}

type libraryReporter struct {
	ctx context.Context
}

func (r *libraryReporter) Warn(msg string) {
	dlog.Warn(r.ctx, msg)
}

func (r *libraryReporter) Log(msg string) {
	dlog.Info(r.ctx, msg)
}

// Discard is a Reporter that drops everything. Useful in tests that don't want to assert on
// warnings.
func Discard() Reporter {
	return discardReporter{}
}

type discardReporter struct{}

func (discardReporter) Warn(string) {}
func (discardReporter) Log(string)  {}
