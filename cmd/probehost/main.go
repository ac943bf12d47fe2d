// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cilium/probehost/cmd/probehost/common"
	"github.com/cilium/probehost/cmd/probehost/decode"
	"github.com/cilium/probehost/cmd/probehost/helpers"
	"github.com/cilium/probehost/cmd/probehost/layout"
	"github.com/cilium/probehost/cmd/probehost/run"
	"github.com/cilium/probehost/cmd/probehost/version"
	"github.com/cilium/probehost/pkg/option"
)

func main() {
	if err := New().Execute(); err != nil {
		os.Exit(1)
	}
}

func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "probehost",
		Short:        "Run dynamic instrumentation probes against a simulated target",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Help()
		},
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return common.Setup()
		},
	}
	// by default, it fallbacks to stderr
	rootCmd.SetOut(os.Stdout)

	rootCmd.AddCommand(run.New())
	rootCmd.AddCommand(decode.New())
	rootCmd.AddCommand(helpers.New())
	rootCmd.AddCommand(layout.New())
	rootCmd.AddCommand(version.New())

	flags := rootCmd.PersistentFlags()
	option.AddFlags(flags)
	viper.BindPFlags(flags)
	return rootCmd
}
