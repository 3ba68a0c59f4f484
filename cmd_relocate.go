// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/datawire/envpack/pkg/cliutil"
	"github.com/datawire/envpack/pkg/relocate"
)

func init() {
	var argManifest string
	var argRoot string

	cmd := &cobra.Command{
		Use:   "relocate --manifest PATH --root PATH",
		Short: "Apply a relocation manifest's placeholder substitutions to an extracted environment",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := os.Open(argManifest)
			if err != nil {
				return err
			}
			defer f.Close()
			return relocate.Apply(argRoot, f)
		},
	}

	cmd.Flags().StringVar(&argManifest, "manifest", "", "Path to the `.envpack-manifest` file extracted from the archive")
	cmd.Flags().StringVar(&argRoot, "root", "", "The directory the archive was extracted into")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("root")

	argparser.AddCommand(cmd)
}
