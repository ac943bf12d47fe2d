// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package layout

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cilium/probehost/pkg/probectx"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the binary layout of the probe context",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "OFFSET\tFIELD\tALIAS")
			fmt.Fprintf(w, "%d\tkind\t\n", probectx.OffsetKind)
			fmt.Fprintf(w, "%d\taddr\t\n", probectx.OffsetAddr)
			for i := 0; i < probectx.NumRegisters; i++ {
				fmt.Fprintf(w, "%d\tx%d\t%s\n", probectx.RegOffset(i), i, probectx.RegisterName(i))
			}
			fmt.Fprintf(w, "%d\tstatus\t\n", probectx.OffsetStatus)
			fmt.Fprintf(w, "%d\tepc\t\n", probectx.OffsetEPC)
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "size: %d bytes\n", probectx.Size)
		},
	}
}
