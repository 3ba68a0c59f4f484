// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/envpack/pkg/reporter"
)

// MissingCachePolicy controls what loadEnvironment does when a package's cache entry (the
// directory `link.source` points at) no longer exists, per the *Uncached packages* rule in §4.3.
type MissingCachePolicy int

const (
	// OnMissingCacheWarn includes the package's files as unknown-mode records and reports a
	// warning through the active reporter. This is the default.
	OnMissingCacheWarn MissingCachePolicy = iota
	// OnMissingCacheRaise fails the load outright, listing the affected packages.
	OnMissingCacheRaise
	// OnMissingCacheIgnore includes the package's files silently.
	OnMissingCacheIgnore
)

// ParseMissingCachePolicy parses the `--on-missing-cache` flag value.
func ParseMissingCachePolicy(s string) (MissingCachePolicy, error) {
	switch s {
	case "warn":
		return OnMissingCacheWarn, nil
	case "raise":
		return OnMissingCacheRaise, nil
	case "ignore":
		return OnMissingCacheIgnore, nil
	default:
		return 0, errorf("invalid --on-missing-cache value %q (want warn, raise, or ignore)", s)
	}
}

// LoadOptions configures loadEnvironment.
type LoadOptions struct {
	// Unmanaged enables the unmanaged-file scan (§4.4).
	Unmanaged bool
	// OnMissingCache selects how to react to packages whose cache entry is gone.
	OnMissingCache MissingCachePolicy
}

//go:embed scripts/activate
var activateScript []byte

//go:embed scripts/deactivate
var deactivateScript []byte

type uncachedPackage struct {
	Name, Version, URL string
}

// loadEnvironment implements the environment-loader algorithm of §4.5: discover site-packages,
// reject editable installs, expand every conda-meta record into file records, optionally scan for
// unmanaged files, append the fixed activation scripts, and apply the uncached-package policy.
func loadEnvironment(prefix string, rep reporter.Reporter, opts LoadOptions) ([]File, error) {
	condaMeta := filepath.Join(prefix, "conda-meta")
	if info, err := os.Stat(condaMeta); err != nil || !info.IsDir() {
		return nil, errorf("%q does not look like a conda environment prefix (no conda-meta/ directory)", prefix)
	}

	sitePackages, err := findSitePackages(prefix)
	if err != nil {
		return nil, err
	}
	if err := checkNoEditablePackages(prefix, sitePackages); err != nil {
		return nil, err
	}

	metaEntries, err := os.ReadDir(condaMeta)
	if err != nil {
		return nil, errorf("reading %s: %v", condaMeta, err)
	}

	var files []File
	var uncached []uncachedPackage
	for _, entry := range metaEntries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		meta, err := readPackageMeta(filepath.Join(condaMeta, name))
		if err != nil {
			return nil, err
		}

		if _, err := os.Stat(meta.Link.Source); err != nil {
			uncached = append(uncached, uncachedPackage{Name: meta.Name, Version: meta.Version, URL: meta.URL})
			// The package's cache entry is gone, so there's no metadata left to say which of
			// its files embed the prefix and how -- every one of them has to be scanned at
			// pack time, per the uncached-package rule (unlike the noarch-extra-files case
			// in loadManagedPackage, which only promotes bin/ paths to unknown).
			for _, rel := range meta.Files {
				files = append(files, File{
					Source:   filepath.Join(prefix, rel),
					Target:   filepath.ToSlash(rel),
					IsConda:  true,
					FileMode: ModeUnknown,
				})
			}
			continue
		}

		pkgFiles, err := loadManagedPackage(meta, prefix, sitePackages)
		if err != nil {
			return nil, err
		}
		files = append(files, pkgFiles...)
	}

	if opts.Unmanaged {
		unmanaged, err := collectUnmanaged(prefix, files)
		if err != nil {
			return nil, err
		}
		files = append(files, unmanaged...)
	}

	files = append(files,
		File{Target: filepath.ToSlash(filepath.Join(binDir, "activate")), FileMode: ModeNone, Data: activateScript},
		File{Target: filepath.ToSlash(filepath.Join(binDir, "deactivate")), FileMode: ModeNone, Data: deactivateScript},
	)

	if len(uncached) > 0 {
		if err := reportUncached(rep, uncached, opts.OnMissingCache); err != nil {
			return nil, err
		}
	}

	return files, nil
}

func reportUncached(rep reporter.Reporter, uncached []uncachedPackage, policy MissingCachePolicy) error {
	names := make([]string, 0, len(uncached))
	for _, u := range uncached {
		names = append(names, fmt.Sprintf("%s=%s (%s)", u.Name, u.Version, u.URL))
	}
	sort.Strings(names)
	list := strings.Join(names, "\n- ")

	switch policy {
	case OnMissingCacheRaise:
		return errorf("the following packages are not in the package cache "+
			"(the environment cannot be packed unless their cache entries are restored, "+
			"or --on-missing-cache is set to warn or ignore):\n\n- %s", list)
	case OnMissingCacheWarn:
		rep.Warn(fmt.Sprintf("the following packages are not in the package cache; "+
			"their files will be scanned and included as unknown-mode:\n\n- %s", list))
		return nil
	default:
		return nil
	}
}
