// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pack drives an env.Environment's file records through classification, transformation,
// and an archive.Sink, accumulating the relocation manifest and writing the final archive
// atomically.
package pack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/datawire/envpack/pkg/archive"
	"github.com/datawire/envpack/pkg/env"
	"github.com/datawire/envpack/pkg/prefix"
	"github.com/datawire/envpack/pkg/progress"
	"github.com/datawire/envpack/pkg/reporter"
)

// binDir is the archive-relative directory the packer treats specially: files there get shebang
// rewriting instead of a flat manifest row. Kept as its own unexported constant rather than
// imported from pkg/env, since it names a convention of the archive layout this package owns, not
// a detail of environment discovery.
const binDir = "bin"

// Error is the domain error kind for everything that can go wrong selecting an output path/format
// or writing the archive.
type Error struct{ msg string }

func (e *Error) Error() string { return e.msg }

func errorf(format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Options configures Pack.
type Options struct {
	// Format is an explicit `--format` value ("zip", "tar", "tar.gz", "tar.bz2"), or "" to infer
	// from Output's suffix.
	Format string
	// Output is the archive path to write, or "" to default to "<env-name>.<format>".
	Output string
	// ArcRoot is the directory every archive entry is nested under, or "" to default to the
	// environment's base name.
	ArcRoot string
	// Record, if non-empty, additionally writes the relocation manifest to this path on disk.
	Record string
	// ZipSymlinks, for the zip backend only, stores symlinks as symlink entries instead of
	// dereferencing them.
	ZipSymlinks bool
	// Verbose enables the progress meter.
	Verbose bool
}

// Pack streams e's files into a freshly written archive, per §4.6.
func Pack(e env.Environment, rep reporter.Reporter, opts Options) error {
	format, err := resolveFormat(opts.Format, opts.Output)
	if err != nil {
		return err
	}

	outputPath := opts.Output
	if outputPath == "" {
		outputPath = e.Name() + "." + format.String()
	}
	if _, err := os.Stat(outputPath); err == nil {
		return errorf("refusing to overwrite existing output path %q", outputPath)
	}
	if opts.Record != "" {
		if _, err := os.Stat(opts.Record); err == nil {
			return errorf("refusing to overwrite existing record path %q", opts.Record)
		}
	}

	arcroot := opts.ArcRoot
	if arcroot == "" {
		arcroot = e.Name()
	}
	arcroot = strings.TrimLeft(arcroot, "/")

	dir := filepath.Dir(outputPath)
	if dir == "" {
		dir = "."
	}
	tmp, err := renameio.TempFile(dir, outputPath)
	if err != nil {
		return errorf("creating temporary output file: %v", err)
	}
	defer tmp.Cleanup()

	sink, err := archive.New(format, tmp, arcroot, opts.ZipSymlinks)
	if err != nil {
		return err
	}

	meter := progress.New(len(e.Files), opts.Verbose)
	var manifest []archive.ManifestRow
	for _, f := range e.Files {
		meter.Step(f.Target)
		rows, err := addFile(sink, rep, e.Prefix, f)
		if err != nil {
			return errorf("packing %s: %v", f.Target, err)
		}
		manifest = append(manifest, rows...)
	}
	meter.Done()

	if err := sink.Close(manifest); err != nil {
		return errorf("closing archive: %v", err)
	}
	if err := tmp.CloseAtomicallyReplace(); err != nil {
		return errorf("writing %s: %v", outputPath, err)
	}

	if opts.Record != "" {
		if err := os.WriteFile(opts.Record, archive.RenderManifest(manifest), 0o644); err != nil {
			return errorf("writing record file %s: %v", opts.Record, err)
		}
	}

	return nil
}

func resolveFormat(explicit, output string) (archive.Format, error) {
	if explicit != "" {
		return archive.ParseFormat(explicit)
	}
	if output != "" {
		return archive.InferFormat(output), nil
	}
	return archive.FormatZip, nil
}

// addFile dispatches one file record through classification per §4.6, returning any manifest rows
// it produces.
func addFile(sink archive.Sink, rep reporter.Reporter, envPrefix string, f env.File) ([]archive.ManifestRow, error) {
	switch f.FileMode {
	case env.ModeNone:
		return nil, addVerbatim(sink, f)

	case env.ModeBinary:
		if f.PrefixPlaceholder == "" {
			return nil, errorf("file record %s has file_mode=binary but no prefix_placeholder", f.Target)
		}
		if err := sink.Add(f.Source, f.Target); err != nil {
			return nil, err
		}
		return []archive.ManifestRow{{Target: f.Target, Placeholder: f.PrefixPlaceholder, Mode: archive.ManifestBinary}}, nil

	case env.ModeText:
		if f.PrefixPlaceholder == "" {
			return nil, errorf("file record %s has file_mode=text but no prefix_placeholder", f.Target)
		}
		return addTextMode(sink, rep, f)

	case env.ModeUnknown:
		return addUnknownMode(sink, rep, envPrefix, f)

	default:
		return nil, errorf("file record %s has unrecognized file_mode %v", f.Target, f.FileMode)
	}
}

func addVerbatim(sink archive.Sink, f env.File) error {
	if f.Data != nil {
		return sink.AddBytes(f.Source, f.Data, f.Target)
	}
	return sink.Add(f.Source, f.Target)
}

// isDirOrSymlink reports whether source names a directory or a symlink, per the pre-dispatch guard
// core.py's addfile applies before ever looking at file_mode: a directory or symlink has no bytes
// to scan or rewrite, so it's always added to the archive by path regardless of the mode a package
// (or the unmanaged scan) declared for it.
func isDirOrSymlink(source string) (bool, error) {
	info, err := os.Lstat(source)
	if err != nil {
		return false, err
	}
	return info.IsDir() || info.Mode()&os.ModeSymlink != 0, nil
}

func addTextMode(sink archive.Sink, rep reporter.Reporter, f env.File) ([]archive.ManifestRow, error) {
	if dirOrLink, err := isDirOrSymlink(f.Source); err != nil {
		return nil, err
	} else if dirOrLink {
		return nil, sink.Add(f.Source, f.Target)
	}

	if !strings.HasPrefix(f.Target, binDir+"/") {
		if err := sink.Add(f.Source, f.Target); err != nil {
			return nil, err
		}
		return []archive.ManifestRow{{Target: f.Target, Placeholder: f.PrefixPlaceholder, Mode: archive.ManifestText}}, nil
	}

	data, err := os.ReadFile(f.Source)
	if err != nil {
		return nil, err
	}
	data, fixed := prefix.RewriteShebang(rep, data, f.Target, f.PrefixPlaceholder)
	if err := sink.AddBytes(f.Source, data, f.Target); err != nil {
		return nil, err
	}
	if fixed {
		return nil, nil
	}
	return []archive.ManifestRow{{Target: f.Target, Placeholder: f.PrefixPlaceholder, Mode: archive.ManifestText}}, nil
}

func addUnknownMode(sink archive.Sink, rep reporter.Reporter, envPrefix string, f env.File) ([]archive.ManifestRow, error) {
	if dirOrLink, err := isDirOrSymlink(f.Source); err != nil {
		return nil, err
	} else if dirOrLink {
		return nil, sink.Add(f.Source, f.Target)
	}

	data, err := os.ReadFile(f.Source)
	if err != nil {
		return nil, err
	}

	rewritten, placeholder, found := prefix.Scan(data, envPrefix)
	if !found {
		if err := sink.AddBytes(f.Source, data, f.Target); err != nil {
			return nil, err
		}
		return nil, nil
	}

	fixed := false
	if strings.HasPrefix(f.Target, binDir+"/") {
		rewritten, fixed = prefix.RewriteShebang(rep, rewritten, f.Target, placeholder)
	}

	if err := sink.AddBytes(f.Source, rewritten, f.Target); err != nil {
		return nil, err
	}
	if fixed {
		return nil, nil
	}
	return []archive.ManifestRow{{Target: f.Target, Placeholder: placeholder, Mode: archive.ManifestText}}, nil
}
