// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package common

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/option"
)

const envPrefix = "probehost"

// Setup merges the config file and the environment into viper, fills
// option.Config and configures logging. Flags take precedence.
func Setup() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if file := viper.GetString(option.KeyConfigFile); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %q: %w", file, err)
		}
	}

	if err := option.ReadAndSetFlags(); err != nil {
		return err
	}
	if err := logger.SetupLogging(option.Config.LogOpts, option.Config.Debug); err != nil {
		return err
	}
	if file := viper.ConfigFileUsed(); file != "" {
		logger.GetLogger().WithField(option.KeyConfigFile, file).Info("Loaded config from file")
	}
	logger.GetLogger().WithField("config", viper.AllSettings()).Debug("config settings")
	return nil
}
