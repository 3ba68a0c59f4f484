// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package reporter

import (
	"fmt"

	"github.com/fatih/color"
)

// CLI returns a Reporter that writes colorized output to standard error (warnings) and, if verbose
// is true, standard output (log lines) -- the shape of reporting a real terminal user expects from
// a packaging tool.
func CLI(verbose bool) Reporter {
	return &cliReporter{verbose: verbose}
}

type cliReporter struct {
	verbose bool
}

func (r *cliReporter) Warn(msg string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), msg)
}

func (r *cliReporter) Log(msg string) {
	if !r.verbose {
		return
	}
	fmt.Fprintln(color.Output, msg)
}
