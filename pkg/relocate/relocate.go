// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package relocate is the extraction-time companion to pkg/pack: it reads the relocation manifest
// a packed archive shipped and performs the placeholder-to-destination substitution the manifest
// describes, the reverse of pkg/prefix's pack-time scan.
package relocate

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/datawire/envpack/pkg/archive"
)

// Apply reads manifest rows from manifestReader and, for each row, rewrites `<root>/<target>` in
// place: text rows get an unconstrained substring substitution of placeholder for root; binary
// rows get the same substitution but root must not be longer than placeholder (the replacement is
// NUL-padded on the right if shorter), since a binary file has no slack to grow into.
func Apply(root string, manifestReader io.Reader) error {
	data, err := io.ReadAll(manifestReader)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	rows, err := archive.ParseManifest(data)
	if err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}

	for _, row := range rows {
		path := filepath.Join(root, filepath.FromSlash(row.Target))
		if err := applyRow(path, root, row); err != nil {
			return fmt.Errorf("relocating %s: %w", row.Target, err)
		}
	}
	return nil
}

func applyRow(path, root string, row archive.ManifestRow) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	placeholder := []byte(row.Placeholder)
	var replacement []byte

	switch row.Mode {
	case archive.ManifestText:
		replacement = []byte(root)
	case archive.ManifestBinary:
		if len(root) > len(row.Placeholder) {
			return fmt.Errorf("destination path %q (%d bytes) is longer than the original "+
				"placeholder %q (%d bytes); binary files cannot be relocated there",
				root, len(root), row.Placeholder, len(row.Placeholder))
		}
		replacement = make([]byte, len(placeholder))
		copy(replacement, root)
	default:
		return fmt.Errorf("unknown manifest row mode %v", row.Mode)
	}

	rewritten := bytes.ReplaceAll(content, placeholder, replacement)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, rewritten, info.Mode().Perm())
}
