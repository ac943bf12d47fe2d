// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package metricsconfig

import (
	"github.com/cilium/probehost/pkg/metrics/helpermetrics"
	"github.com/cilium/probehost/pkg/metrics/mapmetrics"
	"github.com/cilium/probehost/pkg/metrics/tracemetrics"
	"github.com/cilium/probehost/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func InitAllMetrics(registry *prometheus.Registry) {
	helpermetrics.InitMetrics(registry)
	mapmetrics.InitMetrics(registry)
	tracemetrics.InitMetrics(registry)
	registry.MustRegister(version.NewBuildInfoCollector())

	// register common third-party collectors
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
