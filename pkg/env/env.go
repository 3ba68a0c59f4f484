// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/datawire/envpack/pkg/reporter"
)

// Environment is a value object holding an absolute installation prefix and the ordered sequence of
// files that make it up. It's immutable from the caller's perspective: FilterGlob, FilterFunc, and
// Remove all return a new Environment rather than mutating the receiver.
type Environment struct {
	Prefix string
	Files  []File
}

// Name returns the base name of the environment's prefix, used as the default archive name and
// archive-root directory.
func (e Environment) Name() string {
	return filepath.Base(e.Prefix)
}

// FromPrefix loads an Environment rooted at an explicit filesystem path.
func FromPrefix(prefix string, rep reporter.Reporter, opts LoadOptions) (Environment, error) {
	files, err := loadEnvironment(prefix, rep, opts)
	if err != nil {
		return Environment{}, err
	}
	return Environment{Prefix: prefix, Files: files}, nil
}

// FromName loads an Environment by looking up a named environment via the package manager's own
// `info --json` query.
func FromName(name string, rep reporter.Reporter, opts LoadOptions) (Environment, error) {
	prefix, err := nameToPrefix(name)
	if err != nil {
		return Environment{}, err
	}
	return FromPrefix(prefix, rep, opts)
}

// FromDefault loads whichever environment the package manager considers active/default.
func FromDefault(rep reporter.Reporter, opts LoadOptions) (Environment, error) {
	prefix, err := nameToPrefix("")
	if err != nil {
		return Environment{}, err
	}
	return FromPrefix(prefix, rep, opts)
}

// FilterGlob keeps every file whose Target matches the doublestar glob pattern.
//
// Exposed as a dedicated method (rather than a filter argument that's "a glob string, or a
// callable") per the design note on filter-predicate polymorphism: a statically typed
// reimplementation should offer two methods instead of one argument that changes meaning based on
// its dynamic type.
func (e Environment) FilterGlob(pattern string) Environment {
	return e.filter(func(f File) bool {
		ok, _ := doublestar.Match(pattern, f.Target)
		return ok
	}, false)
}

// FilterFunc keeps every file for which pred returns true.
func (e Environment) FilterFunc(pred func(File) bool) Environment {
	return e.filter(pred, false)
}

// Remove drops every file for which pred returns true.
func (e Environment) Remove(pred func(File) bool) Environment {
	return e.filter(pred, true)
}

func (e Environment) filter(pred func(File) bool, inverse bool) Environment {
	out := make([]File, 0, len(e.Files))
	for _, f := range e.Files {
		if pred(f) != inverse {
			out = append(out, f)
		}
	}
	return Environment{Prefix: e.Prefix, Files: out}
}
