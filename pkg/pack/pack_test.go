// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pack_test

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/envpack/pkg/archive"
	"github.com/datawire/envpack/pkg/env"
	"github.com/datawire/envpack/pkg/pack"
	"github.com/datawire/envpack/pkg/prefix"
	"github.com/datawire/envpack/pkg/reporter"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
}

func TestPackEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	prefixDir := filepath.Join(srcDir, "myenv")

	writeFile(t, filepath.Join(prefixDir, "lib", "thing.py"), "print('hello')\n")
	writeFile(t, filepath.Join(prefixDir, "bin", "untouched"), "#!/bin/sh\necho untouched\n")
	writeFile(t, filepath.Join(prefixDir, "bin", "rewritten"),
		"#!"+prefixDir+"/bin/python3\nprint('rewrite me')\n")

	textFile := env.File{
		Source:            filepath.Join(prefixDir, "bin", "rewritten"),
		Target:            "bin/rewritten",
		FileMode:          env.ModeText,
		PrefixPlaceholder: prefixDir,
	}
	plainFile := env.File{
		Source:   filepath.Join(prefixDir, "bin", "untouched"),
		Target:   "bin/untouched",
		FileMode: env.ModeNone,
	}
	unknownFile := env.File{
		Source:   filepath.Join(prefixDir, "lib", "thing.py"),
		Target:   "lib/thing.py",
		FileMode: env.ModeUnknown,
	}

	environment := env.Environment{
		Prefix: prefixDir,
		Files:  []env.File{textFile, plainFile, unknownFile},
	}

	outDir := t.TempDir()
	outputPath := filepath.Join(outDir, "myenv.tar")
	recordPath := filepath.Join(outDir, "myenv.manifest")

	err := pack.Pack(environment, reporter.Discard(), pack.Options{
		Output: outputPath,
		Record: recordPath,
	})
	require.NoError(t, err)

	archiveBytes, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	entries := map[string]string{}
	tr := tar.NewReader(bytes.NewReader(archiveBytes))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if header.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = string(content)
	}

	assert.Equal(t, "#!/usr/bin/env python3\nprint('rewrite me')\n", entries["myenv/bin/rewritten"])
	assert.Equal(t, "#!/bin/sh\necho untouched\n", entries["myenv/bin/untouched"])
	assert.Equal(t, "print('hello')\n", entries["myenv/lib/thing.py"])
	assert.Contains(t, entries, "myenv/bin/"+archive.ManifestName)

	recordBytes, err := os.ReadFile(recordPath)
	require.NoError(t, err)
	rows, err := archive.ParseManifest(recordBytes)
	require.NoError(t, err)
	assert.Empty(t, rows, "the one bin/ text file had a single shebang occurrence, so it fully resolved")
}

func TestPackRefusesToOverwriteExistingOutput(t *testing.T) {
	outDir := t.TempDir()
	outputPath := filepath.Join(outDir, "existing.tar")
	require.NoError(t, os.WriteFile(outputPath, []byte("already here"), 0o644))

	environment := env.Environment{Prefix: "/tmp/myenv", Files: nil}
	err := pack.Pack(environment, reporter.Discard(), pack.Options{Output: outputPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")
}

func TestPackUnknownModeWithExtraPrefixOccurrenceAddsManifestRow(t *testing.T) {
	srcDir := t.TempDir()
	prefixDir := filepath.Join(srcDir, "myenv")

	// Two occurrences of the prefix inside the bin/ file's shebang *and* body -- RewriteShebang
	// should warn and leave the shebang line itself unrewritten, so a manifest row is still needed.
	writeFile(t, filepath.Join(prefixDir, "bin", "multi"),
		"#!"+prefixDir+"/bin/python3\n# also mentions "+prefixDir+" again\n")

	unknownFile := env.File{
		Source:   filepath.Join(prefixDir, "bin", "multi"),
		Target:   "bin/multi",
		FileMode: env.ModeUnknown,
	}
	environment := env.Environment{Prefix: prefixDir, Files: []env.File{unknownFile}}

	outDir := t.TempDir()
	outputPath := filepath.Join(outDir, "myenv.tar")
	require.NoError(t, pack.Pack(environment, reporter.Discard(), pack.Options{Output: outputPath}))

	archiveBytes, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	tr := tar.NewReader(bytes.NewReader(archiveBytes))
	var manifestContent []byte
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if header.Name == "myenv/bin/"+archive.ManifestName {
			manifestContent, err = io.ReadAll(tr)
			require.NoError(t, err)
		}
	}
	rows, err := archive.ParseManifest(manifestContent)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bin/multi", rows[0].Target)
	assert.Equal(t, prefix.Placeholder, rows[0].Placeholder)
}

func TestPackUnknownModeDirectoryAndSymlinkAreAddedByPath(t *testing.T) {
	srcDir := t.TempDir()
	prefixDir := filepath.Join(srcDir, "myenv")

	// Empty leaf directories and symlinks are exactly what collectUnmanaged emits with
	// FileMode: ModeUnknown (pkg/env/unmanaged.go); neither has bytes to scan or rewrite.
	emptyDir := filepath.Join(prefixDir, "share", "empty")
	require.NoError(t, os.MkdirAll(emptyDir, 0o755))

	realFile := filepath.Join(prefixDir, "lib", "real.txt")
	writeFile(t, realFile, "content\n")
	linkPath := filepath.Join(prefixDir, "lib", "link.txt")
	require.NoError(t, os.Symlink("real.txt", linkPath))

	environment := env.Environment{
		Prefix: prefixDir,
		Files: []env.File{
			{Source: emptyDir, Target: "share/empty", FileMode: env.ModeUnknown},
			{Source: realFile, Target: "lib/real.txt", FileMode: env.ModeUnknown},
			{Source: linkPath, Target: "lib/link.txt", FileMode: env.ModeUnknown},
		},
	}

	outDir := t.TempDir()
	outputPath := filepath.Join(outDir, "myenv.tar")
	require.NoError(t, pack.Pack(environment, reporter.Discard(), pack.Options{Output: outputPath}))

	archiveBytes, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	headers := map[string]*tar.Header{}
	tr := tar.NewReader(bytes.NewReader(archiveBytes))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		headers[header.Name] = header
	}

	require.Contains(t, headers, "myenv/share/empty")
	assert.Equal(t, byte(tar.TypeDir), headers["myenv/share/empty"].Typeflag)

	require.Contains(t, headers, "myenv/lib/link.txt")
	assert.Equal(t, byte(tar.TypeSymlink), headers["myenv/lib/link.txt"].Typeflag)
	assert.Equal(t, "real.txt", headers["myenv/lib/link.txt"].Linkname)
}
