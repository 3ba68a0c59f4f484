// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datawire/envpack/pkg/cliutil"
	"github.com/datawire/envpack/pkg/config"
	"github.com/datawire/envpack/pkg/env"
	"github.com/datawire/envpack/pkg/pack"
	"github.com/datawire/envpack/pkg/reporter"
)

func init() {
	defaults, err := config.Load()
	if err != nil {
		defaults = config.Default()
	}

	var (
		argPrefix        string
		argOutput        string
		argFormat        string
		argArcRoot       string
		argRecord        string
		argZipSymlinks   = defaults.ZipSymlinks
		argUnmanaged     = defaults.Unmanaged
		argOnMissingCache = defaults.OnMissingCache
		argVerbose       = defaults.Verbose
	)

	cmd := &cobra.Command{
		Use:   "pack [flags] [NAME]",
		Short: "Package a conda-style environment into a relocatable archive",
		Args:  cliutil.WrapPositionalArgs(cobra.MaximumNArgs(1)),
		RunE: func(_ *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			if name != "" && argPrefix != "" {
				return fmt.Errorf("cannot supply both NAME and --prefix")
			}

			policy, err := env.ParseMissingCachePolicy(argOnMissingCache)
			if err != nil {
				return err
			}

			rep := reporter.CLI(argVerbose)

			loadOpts := env.LoadOptions{
				Unmanaged:      argUnmanaged,
				OnMissingCache: policy,
			}

			var environment env.Environment
			switch {
			case argPrefix != "":
				environment, err = env.FromPrefix(argPrefix, rep, loadOpts)
			case name != "":
				environment, err = env.FromName(name, rep, loadOpts)
			default:
				environment, err = env.FromDefault(rep, loadOpts)
			}
			if err != nil {
				return err
			}

			return pack.Pack(environment, rep, pack.Options{
				Format:      argFormat,
				Output:      argOutput,
				ArcRoot:     argArcRoot,
				Record:      argRecord,
				ZipSymlinks: argZipSymlinks,
				Verbose:     argVerbose,
			})
		},
	}

	cmd.Flags().StringVar(&argPrefix, "prefix", "", "Pack the environment installed at `PATH` instead of looking one up by name")
	cmd.Flags().StringVarP(&argOutput, "output", "o", "", "Write the archive to `PATH` instead of the default `<name>.<format>`")
	cmd.Flags().StringVarP(&argFormat, "format", "f", "", "Archive format: `zip`, `tar`, `tar.gz`, or `tar.bz2`; inferred from --output's suffix if omitted")
	cmd.Flags().StringVar(&argArcRoot, "arcroot", "", "Directory name every archive entry is nested under; defaults to the environment's name")
	cmd.Flags().StringVar(&argRecord, "record", "", "Additionally write the relocation manifest to `PATH`")
	cmd.Flags().BoolVar(&argZipSymlinks, "zip-symlinks", argZipSymlinks, "Store symlinks as symlink entries in zip archives instead of dereferencing them")
	cmd.Flags().BoolVar(&argUnmanaged, "unmanaged", argUnmanaged, "Include files not owned by any package")
	cmd.Flags().StringVar(&argOnMissingCache, "on-missing-cache", argOnMissingCache, "Policy for packages missing from the package cache: `warn`, `raise`, or `ignore`")
	cmd.Flags().BoolVarP(&argVerbose, "verbose", "v", argVerbose, "Print a progress meter and informational messages")

	argparser.AddCommand(cmd)
}
