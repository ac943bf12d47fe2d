// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package option

// Config contains all the configuration used by the probe host.
var Config = config{
	// Initialize global defaults below.

	// ProcFS defaults to /proc.
	ProcFS: "/proc",

	CPUs:       1,
	Iterations: 1,
	Trailer:    "placeholder",

	MapType:       "hash",
	MapMaxEntries: 1024,
	MapKeySize:    4,
	MapValueSize:  8,

	ExportRateLimit: -1,

	// LogOpts contains logger parameters
	LogOpts: make(map[string]string),
}

type config struct {
	Debug  bool
	ProcFS string

	CPUs       int
	Iterations int
	Probes     []string
	Trailer    string

	MapType       string
	MapMaxEntries int
	MapKeySize    int
	MapValueSize  int

	ExportFilename       string
	ExportFileMaxSizeMB  int
	ExportFileMaxBackups int
	ExportFileCompress   bool
	ExportRateLimit      int

	MetricsServer string

	LogOpts map[string]string
}
