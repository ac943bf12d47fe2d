// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package option

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFlags(t *testing.T, args ...string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse(args))
	require.NoError(t, viper.BindPFlags(flags))
}

func TestReadAndSetFlagsDefaults(t *testing.T) {
	setupFlags(t)
	require.NoError(t, ReadAndSetFlags())

	assert.Equal(t, 1, Config.CPUs)
	assert.Equal(t, DefaultProbes, Config.Probes)
	assert.Equal(t, "placeholder", Config.Trailer)
	assert.Equal(t, "hash", Config.MapType)
	assert.Equal(t, 1024, Config.MapMaxEntries)
	assert.Equal(t, -1, Config.ExportRateLimit)
}

func TestReadAndSetFlags(t *testing.T) {
	setupFlags(t,
		"--cpus=4",
		"--iterations=10",
		"--probes=regs,latency",
		"--map-max-entries=4K",
		"--trailer=mod256",
		"--log-level=debug",
	)
	require.NoError(t, ReadAndSetFlags())

	assert.Equal(t, 4, Config.CPUs)
	assert.Equal(t, 10, Config.Iterations)
	assert.Equal(t, []string{"regs", "latency"}, Config.Probes)
	assert.Equal(t, 4096, Config.MapMaxEntries)
	assert.Equal(t, "mod256", Config.Trailer)
	assert.Equal(t, "debug", Config.LogOpts["level"])
}

func TestReadAndSetFlagsErrors(t *testing.T) {
	setupFlags(t, "--cpus=0")
	assert.Error(t, ReadAndSetFlags())

	setupFlags(t, "--map-max-entries=lots")
	assert.Error(t, ReadAndSetFlags())

	// values that do not fit a uint32 capacity
	for _, v := range []string{"-1", "0", "4G", "5G"} {
		setupFlags(t, "--map-max-entries="+v)
		err := ReadAndSetFlags()
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), KeyMapMaxEntries)
	}

	setupFlags(t, "--map-max-entries=4095M")
	require.NoError(t, ReadAndSetFlags())
	assert.Equal(t, 4095<<20, Config.MapMaxEntries)
}
