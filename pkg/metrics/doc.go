// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// The metrics package holds the prometheus registry of the probe host and the
// HTTP endpoint serving it. Metric definitions live in sub-packages, one per
// area (helpers, counter stores, trace output), and are registered together
// by metricsconfig.InitAllMetrics.
package metrics
