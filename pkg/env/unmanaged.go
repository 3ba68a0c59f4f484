// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"os"
	"path/filepath"
	"strings"
)

// ignoreTopLevel lists the top-level prefix entries the unmanaged scan never descends into: conda's
// own bookkeeping directories, plus a handful of platform/installer artifacts that are never part
// of a relocatable environment.
var ignoreTopLevel = map[string]struct{}{
	"pkgs": {}, "envs": {}, "conda-bld": {}, "conda-meta": {}, ".conda_lock": {},
	"users": {}, "LICENSE.txt": {}, "info": {}, "conda-recipes": {}, ".index": {},
	".unionfs": {}, ".nonadmin": {}, "python.app": {}, "Launcher.app": {},
}

// collectUnmanaged walks the environment tree and returns every file not already claimed by a
// managed File record, per §4.4.
func collectUnmanaged(prefix string, managed []File) ([]File, error) {
	claimed := make(map[string]struct{}, len(managed))
	for _, f := range managed {
		claimed[f.Target] = struct{}{}
	}

	remove := map[string]struct{}{
		filepath.Join(binDir, "conda"):      {},
		filepath.Join(binDir, "activate"):   {},
		filepath.Join(binDir, "deactivate"): {},
	}

	found := map[string]struct{}{}

	topEntries, err := os.ReadDir(prefix)
	if err != nil {
		return nil, errorf("reading %s: %v", prefix, err)
	}

	for _, top := range topEntries {
		name := top.Name()
		if _, skip := ignoreTopLevel[name]; skip {
			continue
		}

		topPath := filepath.Join(prefix, name)
		info, err := top.Info()
		if err != nil {
			return nil, errorf("statting %s: %v", topPath, err)
		}

		if !info.IsDir() || info.Mode()&os.ModeSymlink != 0 {
			found[name] = struct{}{}
			continue
		}

		if err := walkUnmanagedDir(prefix, topPath, found); err != nil {
			return nil, err
		}
	}

	for target := range claimed {
		delete(found, target)
	}
	for target := range remove {
		delete(found, target)
	}

	out := make([]File, 0, len(found))
	for rel := range found {
		if strings.HasSuffix(rel, "~") || strings.HasSuffix(rel, ".DS_Store") {
			continue
		}
		if src := findPySource(rel); src != "" {
			if _, ok := claimed[src]; ok {
				// The compiled artifact's source is managed; don't ship the compiled
				// form separately.
				continue
			}
		}
		out = append(out, File{
			Source:   filepath.Join(prefix, rel),
			Target:   filepath.ToSlash(rel),
			IsConda:  false,
			FileMode: ModeUnknown,
		})
	}
	return out, nil
}

func walkUnmanagedDir(prefix, dir string, found map[string]struct{}) error {
	return filepath.Walk(dir, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if walkPath == dir {
			return nil
		}

		rel, err := filepath.Rel(prefix, walkPath)
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0 && info.IsDir():
			// A symlinked directory is recorded as the link itself and not descended.
			found[rel] = struct{}{}
			return filepath.SkipDir
		case info.IsDir():
			entries, err := os.ReadDir(walkPath)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				// An empty leaf directory is still a thing the archive needs to
				// recreate.
				found[rel] = struct{}{}
			}
			return nil
		default:
			found[rel] = struct{}{}
			return nil
		}
	})
}

// findPySource returns the `.py` source path that corresponds to a compiled `.pyc`/`.pyo` artifact,
// or "" if rel doesn't name one.
//
// Interpreter-generated caches live either alongside their source (`foo.pyc` next to `foo.py`, on
// older interpreters) or inside a `__pycache__` directory with a version tag baked into the
// filename (`__pycache__/foo.cpython-311.pyc`, on modern interpreters); both forms are handled.
func findPySource(rel string) string {
	if !strings.HasSuffix(rel, ".pyc") && !strings.HasSuffix(rel, ".pyo") {
		return ""
	}

	dir, base := filepath.Split(rel)
	if filepath.Base(filepath.Clean(dir)) == "__pycache__" {
		parentDir := filepath.Dir(filepath.Clean(dir))
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if i := strings.LastIndexByte(stem, '.'); i >= 0 {
			stem = stem[:i]
		}
		return filepath.ToSlash(filepath.Join(parentDir, stem+".py"))
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.ToSlash(filepath.Join(filepath.Clean(dir), stem+".py"))
}
