// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: goruntime.Version(),
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return NewJSONResponse("version", data).Write(out, ColorsEnabled())
			}
			fmt.Fprintf(out, "invtui %s\n", data.Version)
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Commit", 12), data.GitCommit)
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Built", 12), data.BuildDate)
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Go", 12), data.GoVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
