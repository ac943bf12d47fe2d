// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package mapmetrics

import (
	"errors"

	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/metrics/consts"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MapOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "map_ops_total",
		Help:      "The total number of counter store operations.",
	}, []string{"map", "op", "outcome"})
	MapEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "map_evictions_total",
		Help:      "The total number of entries evicted per LRU store.",
	}, []string{"map"})
	mapSize = prometheus.NewDesc(
		prometheus.BuildFQName(consts.MetricsNamespace, "", "map_entries"),
		"The number of in-use entries per counter store.",
		[]string{"map"}, nil,
	)
	mapCapacity = prometheus.NewDesc(
		prometheus.BuildFQName(consts.MetricsNamespace, "", "map_capacity"),
		"The maximum number of entries per counter store.",
		[]string{"map"}, nil,
	)
)

func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(MapOps)
	registry.MustRegister(MapEvictions)
	// the size collector is registered by whoever owns the stores
}

// MapOpInc counts one store operation. A missing key is a "miss", not an
// error.
func MapOpInc(mapName, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, abi.ErrKeyNotExist):
		outcome = "miss"
	default:
		outcome = "error"
	}
	MapOps.WithLabelValues(mapName, op, outcome).Inc()
}

func MapEvictionInc(mapName string) {
	MapEvictions.WithLabelValues(mapName).Inc()
}

// MapStat is a point-in-time size reading of one store.
type MapStat struct {
	Name     string
	InUse    int
	Capacity int
}

// sizeCollector implements prometheus.Collector. It reads store sizes at
// scrape time instead of tracking them on every update.
type sizeCollector struct {
	stats func() []MapStat
}

func NewSizeCollector(stats func() []MapStat) prometheus.Collector {
	return &sizeCollector{stats: stats}
}

func (c *sizeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- mapSize
	ch <- mapCapacity
}

func (c *sizeCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stats() {
		ch <- prometheus.MustNewConstMetric(mapSize, prometheus.GaugeValue, float64(s.InUse), s.Name)
		ch <- prometheus.MustNewConstMetric(mapCapacity, prometheus.GaugeValue, float64(s.Capacity), s.Name)
	}
}
