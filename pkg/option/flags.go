// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package option

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/strutils"
)

const (
	KeyConfigFile = "config-file"
	KeyDebug      = "debug"
	KeyProcFS     = "procfs"
	KeyLogLevel   = "log-level"
	KeyLogFormat  = "log-format"

	KeyCPUs       = "cpus"
	KeyIterations = "iterations"
	KeyProbes     = "probes"
	KeyTrailer    = "trailer"

	KeyMapType       = "map-type"
	KeyMapMaxEntries = "map-max-entries"
	KeyMapKeySize    = "map-key-size"
	KeyMapValueSize  = "map-value-size"

	KeyExportFilename       = "export-filename"
	KeyExportFileMaxSizeMB  = "export-file-max-size-mb"
	KeyExportFileMaxBackups = "export-file-max-backups"
	KeyExportFileCompress   = "export-file-compress"
	KeyExportRateLimit      = "export-rate-limit"

	KeyMetricsServer = "metrics-server"
)

// DefaultProbes is the probe set run when none is configured.
var DefaultProbes = []string{"context", "regs", "map-inc"}

func ReadAndSetFlags() error {
	var err error

	Config.Debug = viper.GetBool(KeyDebug)
	Config.ProcFS = viper.GetString(KeyProcFS)

	Config.CPUs = viper.GetInt(KeyCPUs)
	if Config.CPUs <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyCPUs, Config.CPUs)
	}
	Config.Iterations = viper.GetInt(KeyIterations)
	if Config.Iterations < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyIterations, Config.Iterations)
	}
	if err = viper.UnmarshalKey(KeyProbes, &Config.Probes, viper.DecodeHook(stringToSliceHookFunc(","))); err != nil {
		return fmt.Errorf("failed to parse %s value (%s): %w", KeyProbes, viper.GetString(KeyProbes), err)
	}
	Config.Trailer = viper.GetString(KeyTrailer)

	Config.MapType = viper.GetString(KeyMapType)
	if Config.MapMaxEntries, err = strutils.ParseSize(viper.GetString(KeyMapMaxEntries)); err != nil {
		return fmt.Errorf("failed to parse %s value: %w", KeyMapMaxEntries, err)
	}
	if Config.MapMaxEntries <= 0 || uint64(Config.MapMaxEntries) > math.MaxUint32 {
		return fmt.Errorf("%s must be in 1..%d, got %d", KeyMapMaxEntries, uint32(math.MaxUint32), Config.MapMaxEntries)
	}
	Config.MapKeySize = viper.GetInt(KeyMapKeySize)
	Config.MapValueSize = viper.GetInt(KeyMapValueSize)

	Config.ExportFilename = viper.GetString(KeyExportFilename)
	Config.ExportFileMaxSizeMB = viper.GetInt(KeyExportFileMaxSizeMB)
	Config.ExportFileMaxBackups = viper.GetInt(KeyExportFileMaxBackups)
	Config.ExportFileCompress = viper.GetBool(KeyExportFileCompress)
	Config.ExportRateLimit = viper.GetInt(KeyExportRateLimit)

	Config.MetricsServer = viper.GetString(KeyMetricsServer)

	logLevel := viper.GetString(KeyLogLevel)
	logFormat := viper.GetString(KeyLogFormat)
	logger.PopulateLogOpts(Config.LogOpts, logLevel, logFormat)

	return nil
}

// stringToSliceHookFunc returns a DecodeHookFunc that converts string to []string
// by splitting on the given sep and removing all leading and trailing white spaces.
func stringToSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.SliceOf(f) {
			return data, nil
		}

		outSlice := []string{}
		for _, s := range strings.Split(data.(string), sep) {
			s = strings.TrimSpace(s)
			if s != "" {
				outSlice = append(outSlice, s)
			}
		}
		return outSlice, nil
	}
}

func AddFlags(flags *pflag.FlagSet) {
	flags.String(KeyConfigFile, "", "Configuration file (yaml, json or toml) read before flags are applied")
	flags.BoolP(KeyDebug, "d", false, "Enable debug messages. Equivalent to '--log-level=debug'")
	flags.String(KeyProcFS, "/proc/", "Location of procfs used to resolve task names")
	flags.String(KeyLogLevel, "info", "Set log level")
	flags.String(KeyLogFormat, "text", "Set log format")

	flags.Int(KeyCPUs, 1, "Number of CPUs to fire probes from concurrently")
	flags.Int(KeyIterations, 1, "Number of times each CPU fires every attachment point")
	flags.StringSlice(KeyProbes, DefaultProbes, "Comma-separated list of bundled probe programs to attach")
	flags.String(KeyTrailer, "placeholder", "Trace record trailer: placeholder, mod256 or none")

	flags.String(KeyMapType, "hash", "Counter store type: array, hash or lru_hash")
	flags.String(KeyMapMaxEntries, "1024", "Counter store capacity; accepts K, M and G suffixes")
	flags.Int(KeyMapKeySize, 4, "Counter store key size in bytes (4 or 8)")
	flags.Int(KeyMapValueSize, 8, "Counter store value size in bytes (4 or 8)")

	flags.String(KeyExportFilename, "", "Filename for trace export. Records go to stdout when empty")
	flags.Int(KeyExportFileMaxSizeMB, 10, "Size in MB for rotating trace export files")
	flags.Int(KeyExportFileMaxBackups, 5, "Number of rotated trace export files to retain")
	flags.Bool(KeyExportFileCompress, false, "Compress rotated trace export files")
	flags.Int(KeyExportRateLimit, -1, "Rate limit (per minute) for trace records. Set to -1 to disable")

	flags.String(KeyMetricsServer, "", "Metrics server address (e.g. ':2112'). Disabled by default")
}
