// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package version

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cilium/probehost/pkg/metrics/consts"
)

// NewBuildInfoCollector exports the build information as a constant gauge.
func NewBuildInfoCollector() prometheus.Collector {
	info := ReadBuildInfo()
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "build_info",
		Help:      "Build information about the probe host",
		ConstLabels: prometheus.Labels{
			"version":    Version,
			"go_version": info.GoVersion,
			"commit":     info.Commit,
			"time":       info.Time,
			"modified":   info.Modified,
		},
	}, func() float64 { return 1 })
}
