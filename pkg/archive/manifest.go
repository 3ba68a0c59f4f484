// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ManifestMode is the relocation mode recorded for one manifest row: whether the placeholder needs
// a length-unconstrained text substitution, or a length-preserving binary one.
type ManifestMode int

const (
	// ManifestText rows are rewritten by simple string substitution; the replacement may be any
	// length.
	ManifestText ManifestMode = iota
	// ManifestBinary rows are rewritten in place; the replacement must not be longer than the
	// placeholder.
	ManifestBinary
)

func (m ManifestMode) String() string {
	if m == ManifestBinary {
		return "binary"
	}
	return "text"
}

// ManifestRow is one entry of the relocation manifest (§3): a file whose embedded prefix
// placeholder still needs to be rewritten at extraction time.
type ManifestRow struct {
	Target      string
	Placeholder string
	Mode        ManifestMode
}

// ManifestName is the archive-relative path (under the binary directory) the manifest is written
// to.
const ManifestName = ".envpack-manifest"

// RenderManifest serializes rows in insertion order, one `<mode> <target> -> <placeholder>` line
// per row. Exposed for the packer's optional on-disk `--record` copy, in addition to the copy every
// backend embeds in the archive itself on Close.
func RenderManifest(rows []ManifestRow) []byte {
	return renderManifest(rows)
}

func renderManifest(rows []ManifestRow) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		fmt.Fprintf(&buf, "%s %s -> %s\n", row.Mode, row.Target, row.Placeholder)
	}
	return buf.Bytes()
}

// ParseManifest parses the line format renderManifest produces. Used by the relocate package.
func ParseManifest(data []byte) ([]ManifestRow, error) {
	var rows []ManifestRow
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		modeWord, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed manifest line: %q", line)
		}
		target, placeholder, ok := strings.Cut(rest, " -> ")
		if !ok {
			return nil, fmt.Errorf("malformed manifest line: %q", line)
		}
		var mode ManifestMode
		switch modeWord {
		case "text":
			mode = ManifestText
		case "binary":
			mode = ManifestBinary
		default:
			return nil, fmt.Errorf("malformed manifest line: unknown mode %q", modeWord)
		}
		rows = append(rows, ManifestRow{Target: target, Placeholder: placeholder, Mode: mode})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
