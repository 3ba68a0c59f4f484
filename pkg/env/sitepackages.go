// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// findSitePackages discovers the interpreter's library directory by scanning conda-meta/ for
// exactly one `python` package record, and deriving `lib/python<major.minor>/site-packages` from
// its version.
//
// Windows (`Lib/site-packages`, no version component) is explicitly out of scope; see the
// Non-goals in the specification.
func findSitePackages(prefix string) (string, error) {
	condaMeta := filepath.Join(prefix, "conda-meta")
	entries, err := os.ReadDir(condaMeta)
	if err != nil {
		return "", errorf("reading %s: %v", condaMeta, err)
	}

	var versions []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "python-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		meta, err := readPackageMeta(filepath.Join(condaMeta, name))
		if err != nil {
			return "", err
		}
		if meta.Name == "python" {
			versions = append(versions, meta.Version)
		}
	}

	switch len(versions) {
	case 0:
		return "", errorf("no version of python found in prefix %q", prefix)
	case 1:
		// ok
	default:
		return "", errorf("multiple versions of python found in prefix %q", prefix)
	}

	majorMinor := versions[0]
	if i := strings.IndexByte(majorMinor, '.'); i >= 0 {
		if j := strings.IndexByte(majorMinor[i+1:], '.'); j >= 0 {
			majorMinor = majorMinor[:i+1+j]
		}
	}

	return filepath.ToSlash(filepath.Join("lib", "python"+majorMinor, "site-packages")), nil
}

// checkNoEditablePackages rejects environments with editable ("develop"/`pip install -e`) packages
// installed: their `.pth` files point outside the prefix, and an archive can't make those paths
// meaningful on another machine.
func checkNoEditablePackages(prefix, sitePackages string) error {
	pattern := filepath.Join(prefix, sitePackages, "*.pth")
	pthFiles, err := filepath.Glob(pattern)
	if err != nil {
		return errorf("globbing %s: %v", pattern, err)
	}

	editable := map[string]struct{}{}
	for _, pthFile := range pthFiles {
		dir := filepath.Dir(pthFile)
		if err := scanPthFile(pthFile, dir, prefix, editable); err != nil {
			return err
		}
	}

	if len(editable) == 0 {
		return nil
	}

	lines := make([]string, 0, len(editable))
	for line := range editable {
		lines = append(lines, line)
	}
	sort.Strings(lines)

	return errorf("cannot pack an environment with editable packages installed "+
		"(e.g. from `python setup.py develop` or `pip install -e`). Editable packages found:\n\n- %s",
		strings.Join(lines, "\n- "))
}

func scanPthFile(pthFile, dir, prefix string, editable map[string]struct{}) error {
	f, err := os.Open(pthFile)
	if err != nil {
		return errorf("reading %s: %v", pthFile, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		// Unlike filepath.Join, Python's os.path.join discards dir entirely when line is
		// itself absolute -- match that so absolute .pth entries are checked as-is.
		var location string
		if filepath.IsAbs(line) {
			location = filepath.Clean(line)
		} else {
			location = filepath.Clean(filepath.Join(dir, line))
		}
		if !strings.HasPrefix(location, prefix) {
			editable[line] = struct{}{}
		}
	}
	return scanner.Err()
}

type packageMeta struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	URL     string      `json:"url"`
	Files   []string    `json:"files"`
	Link    packageLink `json:"link"`
}

type packageLink struct {
	Source string `json:"source"`
}

func readPackageMeta(path string) (*packageMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorf("reading %s: %v", path, err)
	}
	var meta packageMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errorf("parsing %s: %v", path, err)
	}
	return &meta, nil
}
