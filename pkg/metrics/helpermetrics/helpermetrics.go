// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package helpermetrics

import (
	"github.com/cilium/probehost/pkg/metrics/consts"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HelperCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "helper_calls_total",
		Help:      "The total number of helper calls made by probe programs.",
	}, []string{"helper"})
	HelperErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "helper_errors_total",
		Help:      "The total number of helper calls that returned an error.",
	}, []string{"helper", "errno"})
	ProgramRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "program_runs_total",
		Help:      "The total number of probe program invocations.",
	}, []string{"program", "kind"})
	ProgramFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "program_failures_total",
		Help:      "The total number of probe program invocations that returned an error.",
	}, []string{"program"})
)

func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(HelperCalls)
	registry.MustRegister(HelperErrors)
	registry.MustRegister(ProgramRuns)
	registry.MustRegister(ProgramFailures)
}

func HelperCallInc(helper string) {
	HelperCalls.WithLabelValues(helper).Inc()
}

func HelperErrorInc(helper, errno string) {
	HelperErrors.WithLabelValues(helper, errno).Inc()
}

func ProgramRunInc(program, kind string) {
	ProgramRuns.WithLabelValues(program, kind).Inc()
}

func ProgramFailureInc(program string) {
	ProgramFailures.WithLabelValues(program).Inc()
}
