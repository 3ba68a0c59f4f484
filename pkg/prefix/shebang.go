// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package prefix

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/datawire/envpack/pkg/reporter"
)

// shebangRegex matches a `#!` line: an optional run of whitespace, the interpreter executable (no
// whitespace), an optional run of whitespace followed by any remaining options, then a newline.
//
// Only the first line is considered (regexp.Regexp.Find always starts at data[0], and the pattern
// itself is anchored at the start).
var shebangRegex = regexp.MustCompile(`^#!([ \t]*)(\S+)(([ \t]+[^\n]*)?)\n`)

// RewriteShebang rewrites the `#!` line of an executable so that it no longer refers to thePrefix,
// replacing it with a `/usr/bin/env` lookup of the interpreter's basename.
//
// target is the file's archive-relative path, used only for the warning message in the
// more-than-one-occurrence case. thePrefix is the string to look for in the shebang's executable
// field -- the placeholder declared in package metadata for `text`-mode files (which haven't been
// scanned), or the placeholder that prefix.Scan just substituted for `unknown`-mode files.
//
// Returns the (possibly rewritten) bytes, and whether the file is now fully relocatable: true when
// a shebang line is present, whether or not it needed a rewrite; false when data has no shebang
// line, or when thePrefix occurs more than once in data (a warning is reported in that case).
func RewriteShebang(rep reporter.Reporter, data []byte, target, thePrefix string) ([]byte, bool) {
	loc := shebangRegex.FindSubmatchIndex(data)
	if loc == nil {
		return data, false
	}

	prefixBytes := []byte(thePrefix)
	if bytes.Count(data, prefixBytes) > 1 {
		rep.Warn("Executable " + target + " not fully relocatable without running prefix cleanup script.")
		return data, false
	}

	fullShebang := data[loc[0]:loc[1]]
	executable := data[loc[4]:loc[5]]
	options := data[loc[6]:loc[7]]

	if !bytes.HasPrefix(executable, prefixBytes) {
		// The shebang exists but doesn't point inside the prefix; nothing to rewrite, and
		// nothing left for the manifest to fix up.
		return data, true
	}

	parts := strings.Split(string(executable), "/")
	executableName := parts[len(parts)-1]
	newShebang := "#!/usr/bin/env " + executableName + string(options) + "\n"

	rewritten := bytes.Replace(data, fullShebang, []byte(newShebang), 1)
	return rewritten, true
}
