// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package prefix implements the prefix-scanning and shebang-rewriting transforms that let a packed
// file be moved from one installation prefix to another.
package prefix

import (
	"strings"
	"unicode/utf8"
)

// Placeholder is the fixed ASCII string substituted for the real installation prefix in files
// rewritten at pack time. It's chosen to be a valid absolute path, and unlikely to occur by
// accident in an unrelated file.
//
// Split across two literals so that the token doesn't appear whole in this source file -- it's
// meant to be a marker planted into *other* programs' files. The split is source-level only: Go
// folds the constant expression at compile time, so the compiled binary holds the whole token.
const Placeholder = "/opt/anaconda1anaconda2" + "anaconda3"

// Scan looks for thePrefix in data (which must be valid UTF-8 for this to have any effect; binary
// content is left untouched) and, if found, replaces every occurrence with Placeholder.
//
// It returns the (possibly rewritten) bytes, and the placeholder that was substituted -- or the
// zero value and ok=false if data wasn't valid UTF-8, or thePrefix didn't occur in it.
//
// Binary files are never rewritten here: rewriting would change the file's byte length unless
// Placeholder happens to be exactly as long as thePrefix, which in general corrupts structures
// (symbol tables, offsets) that assume a fixed layout. The length-insensitive rewrite is only safe
// for text.
func Scan(data []byte, thePrefix string) (rewritten []byte, placeholder string, ok bool) {
	if !utf8.Valid(data) {
		return data, "", false
	}
	s := string(data)
	if !strings.Contains(s, thePrefix) {
		return data, "", false
	}
	return []byte(strings.ReplaceAll(s, thePrefix, Placeholder)), Placeholder, true
}
