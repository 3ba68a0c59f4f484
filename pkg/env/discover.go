// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dexec"
)

type condaInfo struct {
	Envs          []string `json:"envs"`
	DefaultPrefix string   `json:"default_prefix"`
}

// nameToPrefix resolves an environment name to its installation prefix by shelling out to the
// package manager's own `info --json` query, the way the original tool does (it has no other
// reliable source of truth for where environments live). An empty name resolves the
// currently-active/default environment.
func nameToPrefix(name string) (string, error) {
	exe, err := dexec.LookPath("conda")
	if err != nil {
		return "", errorf("could not find the `conda` executable on PATH: %v", err)
	}

	ctx := context.Background()
	cmd := dexec.CommandContext(ctx, exe, "info", "--json")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *dexec.ExitError
		if errors.As(err, &exitErr) {
			return "", errorf("running `conda info --json`: %v:\n%s", err, string(exitErr.Stderr))
		}
		return "", errorf("running `conda info --json`: %v", err)
	}

	var info condaInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return "", errorf("parsing `conda info --json` output: %v", err)
	}

	if name == "" {
		return info.DefaultPrefix, nil
	}

	for _, e := range info.Envs {
		if filepath.Base(e) == name {
			return e, nil
		}
	}
	return "", errorf("environment name %q doesn't exist (known environments: %s)",
		name, strings.Join(info.Envs, ", "))
}
