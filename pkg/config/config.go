// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the small set of envpack options worth defaulting persistently: the
// uncached-package policy, whether to run the unmanaged-file scan, whether the zip backend stores
// symlinks, and verbosity. Layering, low to high precedence: built-in defaults, a YAML file,
// environment variables, then whatever the CLI flags explicitly set (handled by the caller, which
// only consults this package's values for flags the user didn't pass).
package config

import (
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// Config is the layered configuration surface.
type Config struct {
	Unmanaged      bool   `json:"unmanaged"`
	OnMissingCache string `json:"on_missing_cache"`
	ZipSymlinks    bool   `json:"zip_symlinks"`
	Verbose        bool   `json:"verbose"`
}

// Default returns the built-in defaults, used when no file or environment override applies.
func Default() Config {
	return Config{
		Unmanaged:      true,
		OnMissingCache: "warn",
		ZipSymlinks:    false,
		Verbose:        false,
	}
}

// Path resolves the configuration file location: $ENVPACK_CONFIG if set, else
// ~/.config/envpack/config.yaml.
func Path() string {
	if p := os.Getenv("ENVPACK_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "envpack", "config.yaml")
}

// Load builds the effective configuration: defaults, overlaid with the YAML file at Path() if it
// exists, overlaid with environment variable overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := Path(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		case os.IsNotExist(err):
			// no config file; defaults stand
		default:
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("ENVPACK_UNMANAGED"); ok {
		cfg.Unmanaged = v != "" && v != "0" && v != "false"
	}
	if v, ok := os.LookupEnv("ENVPACK_ON_MISSING_CACHE"); ok {
		cfg.OnMissingCache = v
	}
	if v, ok := os.LookupEnv("ENVPACK_ZIP_SYMLINKS"); ok {
		cfg.ZipSymlinks = v != "" && v != "0" && v != "false"
	}
	if v, ok := os.LookupEnv("ENVPACK_VERBOSE"); ok {
		cfg.Verbose = v != "" && v != "0" && v != "false"
	}
}
