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

package syncer

import (
	"container/ring"
	"sync"
	"time"
)

// Snapshot is a copy of sync state at some point
type Snapshot struct {
	// OffsetSeconds is reference minus local time at LastSync
	OffsetSeconds float64
	// LastSync is local time at which offset was recorded
	LastSync time.Time
	// Source is the name of the source we synced against
	Source string
	// Synced is false until first successful sync
	Synced bool
}

// Sample is what we remember about each successful sync
type Sample struct {
	At            time.Time
	Source        string
	OffsetSeconds float64
	RTT           time.Duration
}

// state of the orchestrator, guarded by mutex
type state struct {
	sync.Mutex

	current Snapshot
	samples *ring.Ring // last successful syncs
}

func newState(historySize int) *state {
	if historySize < 1 {
		historySize = 1
	}
	s := &state{
		samples: ring.New(historySize),
	}
	// init ring buffer with nils
	for i := 0; i < historySize; i++ {
		s.samples.Value = nil
		s.samples = s.samples.Next()
	}
	return s
}

// record sets all fields at once and remembers the sample
func (s *state) record(sample *Sample) {
	s.Lock()
	defer s.Unlock()
	s.current = Snapshot{
		OffsetSeconds: sample.OffsetSeconds,
		LastSync:      sample.At,
		Source:        sample.Source,
		Synced:        true,
	}
	s.samples.Value = sample
	s.samples = s.samples.Next()
}

func (s *state) snapshot() Snapshot {
	s.Lock()
	defer s.Unlock()
	return s.current
}

// takeSamples returns up to n last samples, most recent first
func (s *state) takeSamples(n int) []Sample {
	s.Lock()
	defer s.Unlock()
	result := []Sample{}
	r := s.samples.Prev()
	for j := 0; j < n && j < s.samples.Len(); j++ {
		if r.Value == nil {
			break
		}
		result = append(result, *r.Value.(*Sample))
		r = r.Prev()
	}
	return result
}
