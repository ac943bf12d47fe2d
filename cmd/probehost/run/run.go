// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/bench"
	"github.com/cilium/probehost/pkg/countermap"
	"github.com/cilium/probehost/pkg/host"
	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/logger/logfields"
	"github.com/cilium/probehost/pkg/metrics"
	"github.com/cilium/probehost/pkg/metrics/metricsconfig"
	"github.com/cilium/probehost/pkg/option"
	"github.com/cilium/probehost/pkg/probes"
	"github.com/cilium/probehost/pkg/ratelimit"
	"github.com/cilium/probehost/pkg/trace"
)

const examples = `  # Run the default probes once on one CPU
  probehost run

  # Measure latency on 4 CPUs, framing records with a checksum
  probehost run --probes=latency,map-inc --cpus=4 --iterations=1000 --trailer=mod256

  # Keep trace records in a rotated file and print the summary as JSON
  probehost run --export-filename=/tmp/trace.log --summary=json`

// Attachment addresses are handed out from here, one slot per probe.
const (
	attachBase   = 0x80200000
	attachStride = 0x10
)

const (
	summaryText = "text"
	summaryJSON = "json"
	summaryNone = "none"
)

func New() *cobra.Command {
	var summary string
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Attach probe programs and fire synthetic triggers",
		Example: examples,
		Args:    cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			switch summary {
			case summaryText, summaryJSON, summaryNone:
				return nil
			}
			return fmt.Errorf("invalid summary format %q", summary)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
			defer cancel()
			return Run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), summary)
		},
	}
	cmd.Flags().StringVar(&summary, "summary", summaryText, "Summary format on stderr: text, json or none")
	return cmd
}

func newSink(ctx context.Context, out io.Writer) (trace.Sink, error) {
	trailer, err := trace.ParseTrailer(option.Config.Trailer)
	if err != nil {
		return nil, err
	}
	enc := trace.Encoder{Trailer: trailer, Newline: true}

	var sink trace.Sink
	if option.Config.ExportFilename != "" {
		sink = trace.NewFileSink(trace.FileConfig{
			Filename:   option.Config.ExportFilename,
			MaxSizeMB:  option.Config.ExportFileMaxSizeMB,
			MaxBackups: option.Config.ExportFileMaxBackups,
			Compress:   option.Config.ExportFileCompress,
		}, enc)
	} else {
		// hide any Close method, out is owned by the caller
		sink = trace.NewStreamSink(struct{ io.Writer }{out}, enc)
	}
	if limiter := ratelimit.NewRateLimiter(ctx, time.Minute, option.Config.ExportRateLimit); limiter != nil {
		sink = trace.NewRateLimitedSink(sink, limiter)
	}
	return sink, nil
}

func baseStoreSpec() (*countermap.Spec, error) {
	typ, err := countermap.ParseType(option.Config.MapType)
	if err != nil {
		return nil, err
	}
	return countermap.NewSpec("counters", typ,
		uint32(option.Config.MapKeySize),
		uint32(option.Config.MapValueSize),
		uint32(option.Config.MapMaxEntries)), nil
}

func attach(rt *host.Runtime, base *countermap.Spec, names []string) error {
	log := logger.GetLogger()
	for i, name := range names {
		def, err := probes.Lookup(name)
		if err != nil {
			return err
		}
		var h abi.Handle
		if def.Store != nil {
			spec := def.Store(*base)
			spec.Name = name
			if h, err = rt.CreateStore(spec); err != nil {
				return fmt.Errorf("probe %s: %w", name, err)
			}
		}
		point := host.Point{Type: def.Point, Addr: attachBase + uint64(i)*attachStride}
		if _, err := rt.Attach(point, def.Build(h)); err != nil {
			return fmt.Errorf("probe %s: %w", name, err)
		}
		log.WithFields(logrus.Fields{
			logfields.Program: name,
			logfields.Point:   point,
			logfields.Store:   h,
		}).Debug("Probe ready")
	}
	return nil
}

// Run attaches the configured probes, fires them and reports the result.
// Trace records go to out unless a file export is configured.
func Run(ctx context.Context, out, summaryOut io.Writer, summaryFormat string) error {
	log := logger.GetLogger()

	base, err := baseStoreSpec()
	if err != nil {
		return err
	}
	sink, err := newSink(ctx, out)
	if err != nil {
		return err
	}
	stores := countermap.NewRegistry()

	if option.Config.MetricsServer != "" {
		registry := metrics.GetRegistry()
		metricsconfig.InitAllMetrics(registry)
		registry.MustRegister(stores.Collector())
		go func() {
			if err := metrics.EnableMetrics(ctx, option.Config.MetricsServer); err != nil {
				log.WithError(err).Warn("Metrics server stopped")
			}
		}()
	}

	rt := host.New(host.Options{
		Stores: stores,
		Sink:   sink,
		Tasks:  host.NewOSTasks(option.Config.ProcFS),
		Debug:  option.Config.Debug,
	})
	defer func() {
		if err := rt.Close(); err != nil {
			log.WithError(err).Warn("Failed to close runtime")
		}
	}()

	if err := attach(rt, base, option.Config.Probes); err != nil {
		return err
	}

	summary, err := bench.Run(ctx, rt, &bench.Arguments{
		CPUs:       option.Config.CPUs,
		Iterations: option.Config.Iterations,
	})
	if err != nil {
		return err
	}
	summary.AddStores(stores)
	if limited, ok := sink.(*trace.RateLimitedSink); ok && limited.Dropped() > 0 {
		log.WithField("dropped", limited.Dropped()).Warn("Trace records dropped by rate limiter")
	}

	switch summaryFormat {
	case summaryJSON:
		return summary.Dump(summaryOut)
	case summaryText:
		summary.PrettyPrint(summaryOut)
	}
	return nil
}
