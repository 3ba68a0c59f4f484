// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/datawire/envpack/pkg/prefix"
)

// binDir is the archive-relative directory that holds executables and the activation scripts.
// The original tool also has a `Scripts` variant for Windows; per the Non-goals, this
// reimplementation only targets POSIX layouts.
const binDir = "bin"

type noarchInfo struct {
	NoArch struct {
		Type string `json:"type"`
	} `json:"noarch"`
}

// readNoarchType reads a package's `info/link.json` or `info/package_metadata.json` (whichever is
// present) and returns its declared noarch type, or "" if neither file declares one.
func readNoarchType(pkg string) (string, error) {
	for _, name := range []string{"link.json", "package_metadata.json"} {
		p := filepath.Join(pkg, "info", name)
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", errorf("reading %s: %v", p, err)
		}
		var info noarchInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return "", errorf("parsing %s: %v", p, err)
		}
		return info.NoArch.Type, nil
	}
	return "", nil
}

// pathsJSON mirrors `info/paths.json`.
type pathsJSON struct {
	Paths []pathEntry `json:"paths"`
}

type pathEntry struct {
	Path              string `json:"_path"`
	PrefixPlaceholder string `json:"prefix_placeholder"`
	FileMode          string `json:"file_mode"`
}

// hasPrefixEntry is one resolved row of an `info/has_prefix` file: either a bare single-token line
// (which implies the fixed placeholder token and text mode), or a fully specified
// placeholder/mode/path triple.
type hasPrefixEntry struct {
	Placeholder string
	Mode        string
}

// readHasPrefix parses `info/has_prefix`, whose lines are shell-quoted the way a POSIX shell would
// tokenize them, per the design note on has_prefix parsing: a shell-style tokenizer that strips
// matched outer quotes, rejecting any line whose token count isn't 1 or 3.
func readHasPrefix(hasPrefixPath string) (map[string]hasPrefixEntry, error) {
	f, err := os.Open(hasPrefixPath)
	if err != nil {
		return nil, errorf("reading %s: %v", hasPrefixPath, err)
	}
	defer f.Close()

	out := map[string]hasPrefixEntry{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			return nil, errorf("parsing %s: %v", hasPrefixPath, err)
		}
		switch len(tokens) {
		case 1:
			out[tokens[0]] = hasPrefixEntry{Placeholder: prefix.Placeholder, Mode: "text"}
		case 3:
			out[tokens[2]] = hasPrefixEntry{Placeholder: tokens[0], Mode: tokens[1]}
		default:
			return nil, errorf("failed to parse has_prefix file %s: line %q has %d tokens, want 1 or 3",
				hasPrefixPath, line, len(tokens))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errorf("reading %s: %v", hasPrefixPath, err)
	}
	return out, nil
}

// managedFile builds one File record for a single path entry declared by a package, applying the
// noarch-python target remap (site-packages/, python-scripts/) from §4.3 step 4.
func managedFile(isNoarch bool, sitePackages, pkg, p string, placeholder, mode string) File {
	target := p
	if isNoarch {
		switch {
		case strings.HasPrefix(p, "site-packages/"):
			target = sitePackages + strings.TrimPrefix(p, "site-packages")
		case strings.HasPrefix(p, "python-scripts/"):
			target = binDir + strings.TrimPrefix(p, "python-scripts")
		}
	}

	var fileMode Mode
	switch mode {
	case "text":
		fileMode = ModeText
	case "binary":
		fileMode = ModeBinary
	case "unknown":
		fileMode = ModeUnknown
	case "":
		fileMode = ModeNone
	default:
		fileMode = ModeNone
	}

	return File{
		Source:            filepath.Join(pkg, p),
		Target:            filepath.ToSlash(target),
		IsConda:           true,
		FileMode:          fileMode,
		PrefixPlaceholder: placeholder,
	}
}

// loadManagedPackage expands one package's metadata into its full list of File records, per §4.3.
func loadManagedPackage(meta *packageMeta, prefix, sitePackages string) ([]File, error) {
	pkg := meta.Link.Source

	noarchType, err := readNoarchType(pkg)
	if err != nil {
		return nil, err
	}
	isNoarch := noarchType == "python"

	pathsJSONPath := filepath.Join(pkg, "info", "paths.json")
	var files []File
	if data, err := os.ReadFile(pathsJSONPath); err == nil {
		var parsed pathsJSON
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, errorf("parsing %s: %v", pathsJSONPath, err)
		}
		files = make([]File, 0, len(parsed.Paths))
		for _, entry := range parsed.Paths {
			files = append(files, managedFile(isNoarch, sitePackages, pkg, entry.Path,
				entry.PrefixPlaceholder, entry.FileMode))
		}
	} else if os.IsNotExist(err) {
		files, err = loadFromInfoFiles(pkg, isNoarch, sitePackages)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, errorf("reading %s: %v", pathsJSONPath, err)
	}

	if noarchType == "python" {
		seen := make(map[string]struct{}, len(files))
		for _, f := range files {
			seen[f.Target] = struct{}{}
		}
		for _, rel := range meta.Files {
			if _, ok := seen[rel]; ok {
				continue
			}
			fileMode := ModeNone
			if strings.HasPrefix(rel, binDir) {
				fileMode = ModeUnknown
			}
			files = append(files, File{
				Source:   filepath.Join(prefix, rel),
				Target:   filepath.ToSlash(rel),
				IsConda:  true,
				FileMode: fileMode,
			})
		}
	}

	return files, nil
}

func loadFromInfoFiles(pkg string, isNoarch bool, sitePackages string) ([]File, error) {
	filesPath := filepath.Join(pkg, "info", "files")
	data, err := os.ReadFile(filesPath)
	if err != nil {
		return nil, errorf("reading %s: %v", filesPath, err)
	}

	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}

	hasPrefixPath := filepath.Join(pkg, "info", "has_prefix")
	prefixes := map[string]hasPrefixEntry{}
	if _, err := os.Stat(hasPrefixPath); err == nil {
		prefixes, err = readHasPrefix(hasPrefixPath)
		if err != nil {
			return nil, err
		}
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		entry := prefixes[p]
		files = append(files, managedFile(isNoarch, sitePackages, pkg, p, entry.Placeholder, entry.Mode))
	}
	return files, nil
}
