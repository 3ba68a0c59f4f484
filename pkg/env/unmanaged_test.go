// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPySourcePycacheForm(t *testing.T) {
	assert.Equal(t, "pkg/mod.py", findPySource("pkg/__pycache__/mod.cpython-311.pyc"))
}

func TestFindPySourceLegacyFlatForm(t *testing.T) {
	assert.Equal(t, "pkg/mod.py", findPySource("pkg/mod.pyc"))
}

func TestFindPySourceNonPycIgnored(t *testing.T) {
	assert.Equal(t, "", findPySource("pkg/mod.py"))
}

func TestCollectUnmanagedFindsExtraFiles(t *testing.T) {
	prefix := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "bin", "conda"), []byte(""), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "bin", "extra-tool"), []byte("extra"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "conda-meta"), 0o755))

	files, err := collectUnmanaged(prefix, nil)
	require.NoError(t, err)

	var targets []string
	for _, f := range files {
		targets = append(targets, f.Target)
	}
	assert.Contains(t, targets, "bin/extra-tool")
	assert.NotContains(t, targets, "bin/conda", "bin/conda is always excluded as conda's own bookkeeping")
}

func TestCollectUnmanagedSkipsManagedFiles(t *testing.T) {
	prefix := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "lib", "managed.py"), []byte(""), 0o644))

	managed := []File{{Target: "lib/managed.py"}}
	files, err := collectUnmanaged(prefix, managed)
	require.NoError(t, err)
	for _, f := range files {
		assert.NotEqual(t, "lib/managed.py", f.Target)
	}
}

func TestCollectUnmanagedSkipsCompiledArtifactOfManagedSource(t *testing.T) {
	prefix := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "lib", "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "lib", "__pycache__", "managed.cpython-311.pyc"),
		[]byte(""), 0o644))

	managed := []File{{Target: "lib/managed.py"}}
	files, err := collectUnmanaged(prefix, managed)
	require.NoError(t, err)
	for _, f := range files {
		assert.NotEqual(t, "lib/__pycache__/managed.cpython-311.pyc", f.Target,
			"the compiled artifact of a managed .py source should not be shipped separately")
	}
}
