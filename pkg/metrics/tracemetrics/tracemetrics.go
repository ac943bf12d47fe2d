// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package tracemetrics

import (
	"github.com/cilium/probehost/pkg/metrics/consts"
	"github.com/prometheus/client_golang/prometheus"
)

type DropReason string

const (
	RateLimited DropReason = "rate_limited"
	WriteFailed DropReason = "write_failed"
)

var (
	RecordsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "trace_records_total",
		Help:      "The total number of trace records written.",
	})
	BytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "trace_bytes_total",
		Help:      "The total number of trace bytes written, framing included.",
	})
	RecordsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "trace_records_dropped_total",
		Help:      "The total number of trace records that were not written.",
	}, []string{"reason"})
)

func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(RecordsWritten)
	registry.MustRegister(BytesWritten)
	registry.MustRegister(RecordsDropped)

	for _, r := range []DropReason{RateLimited, WriteFailed} {
		RecordsDropped.WithLabelValues(string(r))
	}
}

func RecordWritten(n int) {
	RecordsWritten.Inc()
	BytesWritten.Add(float64(n))
}

func RecordDropped(reason DropReason) {
	RecordsDropped.WithLabelValues(string(reason)).Inc()
}
