// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cilium/probehost/pkg/ktime"
	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/option"
	"github.com/cilium/probehost/pkg/probectx"
	"github.com/cilium/probehost/pkg/strutils"
	"github.com/cilium/probehost/pkg/trace"
)

const examples = `  # Decode a trace stream
  probehost run | probehost decode

  # Decode a file written with checksums, without colors
  probehost decode --trailer=mod256 --color=never /tmp/trace.log

  # Show when user-space records were taken, on the host that ran the probes
  probehost run --probes=user-regs | probehost decode --wall-clock`

const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// Options tunes how records are printed.
type Options struct {
	// WallClock converts M record stamps, taken from CLOCK_MONOTONIC, to
	// wall-clock time. It only makes sense on the host that wrote them.
	WallClock bool
}

func New() *cobra.Command {
	var (
		colorMode string
		opts      Options
	)
	cmd := &cobra.Command{
		Use:     "decode [FILE]",
		Short:   "Decode framed trace records",
		Example: examples,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch colorMode {
			case colorAlways:
				color.NoColor = false
			case colorNever:
				color.NoColor = true
			case colorAuto:
			default:
				return fmt.Errorf("invalid color mode %q", colorMode)
			}

			trailer, err := trace.ParseTrailer(option.Config.Trailer)
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return Decode(in, cmd.OutOrStdout(), trailer, opts)
		},
	}
	cmd.Flags().StringVar(&colorMode, "color", colorAuto, "Colorize output: auto, always or never")
	cmd.Flags().BoolVar(&opts.WallClock, "wall-clock", false, "Print M record stamps as wall-clock time")
	return cmd
}

// Decode prints every packet of in. Packets with a bad trailer are shown
// and counted; a truncated last packet ends decoding with an error.
func Decode(in io.Reader, out io.Writer, trailer trace.Trailer, opts Options) error {
	var (
		dec     = trace.NewDecoder(in, trailer)
		bad     = color.New(color.FgRed)
		regName = color.New(color.FgCyan)
		marker  = color.New(color.FgGreen, color.Bold)
		corrupt int
	)
	for {
		p, err := dec.Next()
		switch {
		case errors.Is(err, io.EOF):
			if corrupt > 0 {
				logger.GetLogger().WithField("packets", corrupt).Warn("Packets with bad trailer")
			}
			return nil
		case errors.Is(err, trace.ErrBadTrailer):
			corrupt++
			bad.Fprintf(out, "[bad trailer %s] ", p.Trailer)
		case err != nil:
			return err
		}
		printPayload(out, p.Payload, opts, marker, regName)
	}
}

func printPayload(out io.Writer, payload []byte, opts Options, marker, regName *color.Color) {
	if regs, err := trace.ParseRegisterRecord(payload); err == nil {
		marker.Fprint(out, "R")
		printRegisters(out, &regs, regName)
		fmt.Fprintln(out)
		return
	}
	if rec, err := trace.ParseUserRecord(payload); err == nil {
		marker.Fprint(out, "M")
		fmt.Fprintf(out, " time=%d", rec.Time)
		if opts.WallClock {
			printWallClock(out, rec.Time)
		}
		fmt.Fprintf(out, " cpu=%d addr=%#x pid=%d", rec.CPU, rec.Addr, rec.PID)
		printRegisters(out, &rec.Regs, regName)
		fmt.Fprintln(out)
		return
	}
	fmt.Fprint(out, strutils.UTF8FromCBytes(payload))
	if n := len(payload); n == 0 || payload[n-1] != '\n' {
		fmt.Fprintln(out)
	}
}

func printRegisters(out io.Writer, regs *probectx.Registers, regName *color.Color) {
	for i, v := range regs {
		fmt.Fprint(out, " ")
		regName.Fprint(out, probectx.RegisterName(i))
		fmt.Fprintf(out, "=%#x", v)
	}
}

func printWallClock(out io.Writer, stamp uint64) {
	wall, err := ktime.DecodeKtime(int64(stamp), true)
	if err != nil {
		logger.GetLogger().WithError(err).Debug("Failed to convert record time")
		return
	}
	age, err := ktime.NanoTimeSince(int64(stamp))
	if err != nil {
		logger.GetLogger().WithError(err).Debug("Failed to convert record time")
		return
	}
	fmt.Fprintf(out, " (%s, %s ago)", wall.Format(time.RFC3339Nano), age.Round(time.Microsecond))
}
