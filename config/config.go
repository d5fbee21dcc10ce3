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

package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/timesync/timesync/source"
	"github.com/timesync/timesync/syncer"
)

// DefaultUncertainty is uncertainty expression used unless configured otherwise
const DefaultUncertainty = "abs(mean(offset, 10)) + 2.0 * stddev(offset, 10)"

// Config represents configuration we expect to read from file
type Config struct {
	SettingsPath   string        `yaml:"settings_path"`   // where ntpServer and syncInterval are persisted
	Timeout        time.Duration `yaml:"timeout"`         // per source attempt
	MonitoringPort int           `yaml:"monitoring_port"` // 0 disables stats endpoints
	History        int           `yaml:"history"`         // how many samples we keep for statistics
	Uncertainty    string        `yaml:"uncertainty"`     // expression over recent offsets
	Sources        []source.Spec `yaml:"sources"`         // tried in this order
}

// DefaultConfig returns Config with all defaults filled in
func DefaultConfig() *Config {
	return &Config{
		SettingsPath: DefaultSettingsPath(),
		Timeout:      source.DefaultTimeout,
		History:      syncer.DefaultHistory,
		Uncertainty:  DefaultUncertainty,
		Sources:      append([]source.Spec{}, source.DefaultSpecs...),
	}
}

// EvalAndValidate makes sure config is valid
func (c *Config) EvalAndValidate() error {
	if c.SettingsPath == "" {
		return fmt.Errorf("bad config: 'settings_path' must be specified")
	}
	if c.Timeout <= 0 || c.Timeout > time.Minute {
		return fmt.Errorf("bad config: 'timeout' must be between 0 and 1 minute")
	}
	if c.MonitoringPort < 0 || c.MonitoringPort > 65535 {
		return fmt.Errorf("bad config: 'monitoring_port' must be between 0 and 65535")
	}
	if c.History <= 0 {
		return fmt.Errorf("bad config: 'history' must be >0")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("bad config: at least one source must be specified")
	}
	names := map[string]bool{}
	for i := range c.Sources {
		if err := c.Sources[i].Validate(); err != nil {
			return fmt.Errorf("bad config: source %d: %w", i, err)
		}
		if names[c.Sources[i].Name] {
			return fmt.Errorf("bad config: duplicate source %q", c.Sources[i].Name)
		}
		names[c.Sources[i].Name] = true
	}
	return nil
}

// ReadConfig reads config and unmarshals it from yaml into Config.
// Values missing in the file are taken from DefaultConfig.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := DefaultConfig()
	c.Sources = nil
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, err
	}
	if len(c.Sources) == 0 {
		c.Sources = append([]source.Spec{}, source.DefaultSpecs...)
	}
	return c, nil
}
