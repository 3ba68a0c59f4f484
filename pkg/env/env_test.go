// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datawire/envpack/pkg/env"
)

func fixtureEnvironment() env.Environment {
	return env.Environment{
		Prefix: "/opt/conda/envs/myenv",
		Files: []env.File{
			{Target: "bin/tool", FileMode: env.ModeNone},
			{Target: "lib/python3.11/site-packages/foo/__init__.py", FileMode: env.ModeNone},
			{Target: "lib/python3.11/site-packages/foo/data.bin", FileMode: env.ModeBinary},
			{Target: "share/doc/readme.txt", FileMode: env.ModeNone},
		},
	}
}

func TestEnvironmentName(t *testing.T) {
	assert.Equal(t, "myenv", fixtureEnvironment().Name())
}

func TestFilterGlob(t *testing.T) {
	filtered := fixtureEnvironment().FilterGlob("lib/**/*.py")
	require := assert.New(t)
	require.Len(filtered.Files, 1)
	require.Equal("lib/python3.11/site-packages/foo/__init__.py", filtered.Files[0].Target)
}

func TestFilterFunc(t *testing.T) {
	filtered := fixtureEnvironment().FilterFunc(func(f env.File) bool {
		return f.FileMode == env.ModeBinary
	})
	assert := assert.New(t)
	assert.Len(filtered.Files, 1)
	assert.Equal("lib/python3.11/site-packages/foo/data.bin", filtered.Files[0].Target)
}

func TestRemove(t *testing.T) {
	removed := fixtureEnvironment().Remove(func(f env.File) bool {
		return f.Target == "share/doc/readme.txt"
	})
	assert.Len(t, removed.Files, 3)
	for _, f := range removed.Files {
		assert.NotEqual(t, "share/doc/readme.txt", f.Target)
	}
}

func TestFilterPreservesPrefix(t *testing.T) {
	filtered := fixtureEnvironment().FilterFunc(func(env.File) bool { return true })
	assert.Equal(t, "/opt/conda/envs/myenv", filtered.Prefix)
}
