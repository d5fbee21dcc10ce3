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

package stats

import (
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// Server is where counters are published
type Server interface {
	Reset()
	SetCounter(key string, val int64)
	UpdateCounterBy(key string, count int64)
}

// Stats keeps counters in memory. Safe for concurrent use.
type Stats struct {
	sync.RWMutex
	counters map[string]int64
}

// NewStats returns empty Stats
func NewStats() *Stats {
	return &Stats{counters: map[string]int64{}}
}

// UpdateCounterBy adds count to the counter
func (s *Stats) UpdateCounterBy(key string, count int64) {
	s.Lock()
	defer s.Unlock()
	s.counters[key] += count
}

// SetCounter sets the counter to val
func (s *Stats) SetCounter(key string, val int64) {
	s.Lock()
	defer s.Unlock()
	s.counters[key] = val
}

// Get returns a copy of all counters
func (s *Stats) Get() map[string]int64 {
	s.RLock()
	defer s.RUnlock()
	return maps.Clone(s.counters)
}

// Keys returns sorted counter names
func (s *Stats) Keys() []string {
	s.RLock()
	keys := maps.Keys(s.counters)
	s.RUnlock()
	sort.Strings(keys)
	return keys
}

// Reset zeroes all counters, keeping their names
func (s *Stats) Reset() {
	s.Lock()
	defer s.Unlock()
	for k := range s.counters {
		s.counters[k] = 0
	}
}
