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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// settings defaults
const (
	DefaultReferenceServer = "pool.ntp.org"
	DefaultSyncInterval    = 60
	MinSyncInterval        = 10
)

// Settings are user-facing knobs shared between all running surfaces
type Settings struct {
	ReferenceServer string `yaml:"ntpServer"`
	SyncInterval    int    `yaml:"syncInterval"` // seconds
}

// DefaultSettings returns settings used before anything was saved
func DefaultSettings() Settings {
	return Settings{
		ReferenceServer: DefaultReferenceServer,
		SyncInterval:    DefaultSyncInterval,
	}
}

// normalize fills in missing values and enforces minimal interval.
// Zero interval means unset, negative ones are just too small.
func (s Settings) normalize() Settings {
	if s.ReferenceServer == "" {
		s.ReferenceServer = DefaultReferenceServer
	}
	if s.SyncInterval == 0 {
		s.SyncInterval = DefaultSyncInterval
	}
	if s.SyncInterval < MinSyncInterval {
		s.SyncInterval = MinSyncInterval
	}
	return s
}

// ParseSyncInterval turns user input into interval. Garbage and zero become default,
// anything below minimum, negative values included, becomes minimum.
func ParseSyncInterval(in string) int {
	v, err := strconv.Atoi(strings.TrimSpace(in))
	if err != nil {
		v = 0
	}
	return Settings{SyncInterval: v}.normalize().SyncInterval
}

// DefaultSettingsPath is where settings are kept unless configured otherwise
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "timesync", "settings.yaml")
}

// Store persists Settings in a yaml file and notifies subscribers about changes
type Store struct {
	path string

	mu          sync.Mutex
	settings    Settings
	modTime     time.Time
	subscribers []func(old, cur Settings)
}

// NewStore returns Store backed by file at path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		settings: DefaultSettings(),
	}
}

// Path returns path of the settings file
func (s *Store) Path() string {
	return s.path
}

// Load reads settings from disk. Missing file means defaults, which are written right away.
func (s *Store) Load() (Settings, error) {
	cur, modTime, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		log.Infof("no settings at %s, saving defaults", s.path)
		def := DefaultSettings()
		return def, s.Save(def)
	}
	if err != nil {
		return s.Get(), err
	}
	s.mu.Lock()
	s.settings = cur
	s.modTime = modTime
	s.mu.Unlock()
	return cur, nil
}

func (s *Store) read() (Settings, time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return Settings{}, time.Time{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, time.Time{}, err
	}
	cur := Settings{}
	if err := yaml.UnmarshalStrict(data, &cur); err != nil {
		return Settings{}, time.Time{}, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return cur.normalize(), info.ModTime(), nil
}

// Get returns current settings
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Save writes settings to disk and notifies subscribers if anything changed
func (s *Store) Save(next Settings) error {
	next = next.normalize()
	data, err := yaml.Marshal(next)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return err
	}
	var modTime time.Time
	if info, err := os.Stat(s.path); err == nil {
		modTime = info.ModTime()
	}
	s.update(next, modTime)
	return nil
}

// SetReferenceServer saves new reference server label
func (s *Store) SetReferenceServer(server string) error {
	cur := s.Get()
	cur.ReferenceServer = strings.TrimSpace(server)
	return s.Save(cur)
}

// SetSyncInterval saves new interval, enforcing the minimum
func (s *Store) SetSyncInterval(seconds int) error {
	cur := s.Get()
	cur.SyncInterval = seconds
	return s.Save(cur)
}

// OnChange registers function called every time settings change
func (s *Store) OnChange(fn func(old, cur Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Refresh re-reads the file if it was modified by someone else, and notifies subscribers
func (s *Store) Refresh() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	s.mu.Lock()
	unchanged := info.ModTime().Equal(s.modTime)
	s.mu.Unlock()
	if unchanged {
		return nil
	}
	cur, modTime, err := s.read()
	if err != nil {
		return err
	}
	s.update(cur, modTime)
	return nil
}

func (s *Store) update(cur Settings, modTime time.Time) {
	s.mu.Lock()
	old := s.settings
	s.settings = cur
	s.modTime = modTime
	subscribers := append([]func(old, cur Settings){}, s.subscribers...)
	s.mu.Unlock()
	if old == cur {
		return
	}
	log.Debugf("settings changed: %+v -> %+v", old, cur)
	for _, fn := range subscribers {
		fn(old, cur)
	}
}
