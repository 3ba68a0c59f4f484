// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package env discovers what constitutes an installed conda-style environment on disk: which files
// belong to which package, which files are unmanaged, and where the interpreter's library directory
// lives.
package env

import "fmt"

// Mode describes how (if at all) a file's bytes depend on the installation prefix.
type Mode int

const (
	// ModeNone means the file's bytes don't depend on the prefix; it's copied verbatim.
	ModeNone Mode = iota
	// ModeText means the prefix appears in the file as text, as declared by package metadata.
	ModeText
	// ModeBinary means the prefix is embedded in a compiled object or similar, as declared by
	// package metadata; rewriting must happen at extraction time, not pack time.
	ModeBinary
	// ModeUnknown means the file is unmanaged, or its owning package's cache entry is missing;
	// the packer must scan its bytes itself to decide how to handle it.
	ModeUnknown
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeText:
		return "text"
	case ModeBinary:
		return "binary"
	case ModeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// File is a single archive record: one file (or symlink, or directory) that will end up in the
// packed archive.
//
// File is immutable after construction; Environment.FilterGlob/FilterFunc/Remove build new slices
// rather than mutating existing File values.
type File struct {
	// Source is the absolute path to the file on the originating filesystem.
	Source string
	// Target is the file's path inside the archive, relative to the archive-root directory.
	// Always a POSIX-style relative path (forward slashes, no leading slash).
	Target string
	// IsConda reports whether the file was declared by a package's metadata (true) or found by
	// the unmanaged-file scan (false).
	IsConda bool
	// FileMode says how the file's bytes relate to the installation prefix.
	FileMode Mode
	// PrefixPlaceholder is the exact byte string the package metadata says is embedded in the
	// file. Only meaningful (and required to be non-empty) when FileMode is ModeText or
	// ModeBinary.
	PrefixPlaceholder string
	// Data holds the file's content directly, for records that don't come from a real path on
	// the originating filesystem (the embedded activation/deactivation scripts, see §4.7). Nil
	// for every other record, which the packer instead reads from Source.
	Data []byte
}
