// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package helpers

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cilium/probehost/pkg/abi"
)

var signatures = map[abi.HelperID]string{
	abi.MapLookupElem:     "(handle, key *, value *) -> value * | 0",
	abi.MapUpdateElem:     "(handle, key *, value *, flags) -> 0 | -errno",
	abi.KtimeGetNs:        "() -> ns",
	abi.TracePrintk:       "(fmt *, fmt_size, a1, a2, a3) -> bytes",
	abi.GetPrandomU32:     "() -> u32",
	abi.GetSmpProcessorID: "() -> cpu",
	abi.PrintStr:          "(str *, len) -> bytes",
	abi.GetCurrentPidTgid: "() -> tgid << 32 | pid",
	abi.GetCurrentComm:    "(buf *, size) -> len | -errno",
}

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "helpers",
		Short: "List the helpers probe programs can call",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			// tabwriter config imitates kubectl default output, i.e. 3 spaces padding
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIGNATURE")
			for _, id := range abi.DefaultTable().IDs() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", uint32(id), id, signatures[id])
			}
			w.Flush()
		},
	}
}
