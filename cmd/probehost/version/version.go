// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cilium/probehost/pkg/version"
)

const examples = `  # Print the version
  probehost version

  # Get build info
  probehost version --build`

func New() *cobra.Command {
	var build bool
	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version",
		Example: examples,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "version: %s\n", version.Version)
			if build {
				version.ReadBuildInfo().Print(cmd.OutOrStdout())
			}
		},
	}
	cmd.Flags().BoolVarP(&build, "build", "b", false, "Show build information")
	return cmd
}
