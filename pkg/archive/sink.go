// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package archive implements the four archive sink backends the packer streams file records into:
// zip, tar, gzip-compressed tar, and bzip2-compressed tar, all behind one Sink interface.
package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// binDirName is the archive-relative directory the manifest is nested under, mirroring the
// environment's own bin/ layout (§4.8).
const binDirName = "bin"

// Sink is the contract every archive backend implements (§6). Add streams a file from disk;
// AddBytes streams already-in-memory bytes while still consulting sourcePath's mode bits (the
// packer uses this for rewritten text files, where the bytes differ from what's on disk but the
// permissions don't). Close seals the manifest into the archive and finalizes the underlying
// writer.
type Sink interface {
	Add(sourcePath, archiveTarget string) error
	AddBytes(sourcePath string, data []byte, archiveTarget string) error
	Close(manifest []ManifestRow) error
}

// Format identifies one of the four supported archive encodings.
type Format int

const (
	FormatZip Format = iota
	FormatTar
	FormatGzipTar
	FormatBzip2Tar
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatGzipTar:
		return "tar.gz"
	case FormatBzip2Tar:
		return "tar.bz2"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps an explicit `--format` flag value to a Format. Unlike InferFormat, an unknown
// value is an error rather than a fallback.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "zip":
		return FormatZip, nil
	case "tar":
		return FormatTar, nil
	case "tar.gz", "tgz":
		return FormatGzipTar, nil
	case "tar.bz2", "tbz2":
		return FormatBzip2Tar, nil
	default:
		return 0, fmt.Errorf("unknown archive format %q (want zip, tar, tar.gz, or tar.bz2)", s)
	}
}

// InferFormat derives a Format from an output path's suffix, per §4.6: unrecognized or absent
// suffixes fall back to zip rather than erroring, since inference only runs when the caller didn't
// ask for a specific format.
func InferFormat(outputPath string) Format {
	name := filepath.Base(outputPath)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatGzipTar
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return FormatBzip2Tar
	case strings.HasSuffix(name, ".tar"):
		return FormatTar
	default:
		return FormatZip
	}
}

// New constructs the Sink backend for format, writing into w. arcroot is the archive-root
// directory every entry is nested under; zipSymlinks only affects the zip backend (§4.8).
func New(format Format, w io.Writer, arcroot string, zipSymlinks bool) (Sink, error) {
	switch format {
	case FormatZip:
		return newZipSink(w, arcroot, zipSymlinks), nil
	case FormatTar:
		return newTarSink(w, arcroot), nil
	case FormatGzipTar:
		return newGzipTarSink(w, arcroot), nil
	case FormatBzip2Tar:
		return newBzip2TarSink(w, arcroot), nil
	default:
		return nil, fmt.Errorf("unsupported archive format %v", format)
	}
}
