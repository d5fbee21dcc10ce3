/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timesync/timesync/config"
	"github.com/timesync/timesync/source"
)

// RootCmd is a main entry point. It's exported so timesync could be easily extended without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "timesync",
	Short: "Reference clock widget synced over HTTP time sources",
}

// flags
var (
	rootVerboseFlag        bool
	rootConfigFlag         string
	rootSettingsFlag       string
	rootTimeoutFlag        time.Duration
	rootMonitoringPortFlag int
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVarP(&rootConfigFlag, "config", "c", "", "path to config. Flag values are ignored when config is used")
	RootCmd.PersistentFlags().StringVarP(&rootSettingsFlag, "settings", "s", config.DefaultSettingsPath(), "path to settings shared between running widgets")
	RootCmd.PersistentFlags().DurationVarP(&rootTimeoutFlag, "timeout", "t", source.DefaultTimeout, "timeout of a single source attempt")
	RootCmd.PersistentFlags().IntVar(&rootMonitoringPortFlag, "monitoringport", 0, "port to serve stats on, 0 means disabled")
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Needs to be called by any subcommand.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// prepareConfig builds config either from file or from flags
func prepareConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if rootConfigFlag != "" {
		log.Debugf("using config from %s, flag values are ignored", rootConfigFlag)
		cfg, err = config.ReadConfig(rootConfigFlag)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
		cfg.SettingsPath = rootSettingsFlag
		cfg.Timeout = rootTimeoutFlag
		cfg.MonitoringPort = rootMonitoringPortFlag
	}
	if err := cfg.EvalAndValidate(); err != nil {
		return nil, err
	}
	log.Debugf("Config: %+v", *cfg)
	return cfg, nil
}

// Execute is the main entry point for CLI interface
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
