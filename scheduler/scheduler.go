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

package scheduler

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MinInterval is the smallest allowed auto sync interval, in seconds
const MinInterval = 10

// State of the scheduler
type State int

// possible states
const (
	Disabled State = iota
	Enabled
)

func (s State) String() string {
	if s == Enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// Trigger starts a silent sync. It's up to the caller whether it blocks.
type Trigger func(ctx context.Context)

// Scheduler is a countdown which triggers sync every interval ticks while enabled.
// Tick is expected to be called once a second.
type Scheduler struct {
	mu        sync.Mutex
	state     State
	interval  int
	countdown int
	trigger   Trigger
}

// New returns disabled Scheduler
func New(interval int, trigger Trigger) *Scheduler {
	return &Scheduler{
		interval: clamp(interval),
		trigger:  trigger,
	}
}

func clamp(interval int) int {
	if interval < MinInterval {
		return MinInterval
	}
	return interval
}

// Enable switches auto sync on and triggers sync right away
func (s *Scheduler) Enable(ctx context.Context) {
	s.mu.Lock()
	if s.state == Enabled {
		s.mu.Unlock()
		return
	}
	s.state = Enabled
	s.countdown = s.interval
	s.mu.Unlock()
	log.Infof("auto sync enabled, every %ds", s.Interval())
	s.trigger(ctx)
}

// Disable switches auto sync off
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disabled {
		return
	}
	s.state = Disabled
	s.countdown = 0
	log.Info("auto sync disabled")
}

// Toggle flips the state
func (s *Scheduler) Toggle(ctx context.Context) {
	if s.Enabled() {
		s.Disable()
		return
	}
	s.Enable(ctx)
}

// Tick advances countdown by one second. When countdown runs out sync is triggered
// and countdown starts over, no matter how that sync ends.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.state != Enabled || s.countdown <= 0 {
		s.mu.Unlock()
		return
	}
	s.countdown--
	fire := s.countdown == 0
	if fire {
		s.countdown = s.interval
	}
	s.mu.Unlock()
	if fire {
		log.Debug("auto sync countdown expired")
		s.trigger(ctx)
	}
}

// SetInterval changes interval. It's applied when countdown starts over.
func (s *Scheduler) SetInterval(interval int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = clamp(interval)
}

// Interval returns configured interval in seconds
func (s *Scheduler) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Enabled tells if auto sync is on
func (s *Scheduler) Enabled() bool {
	return s.State() == Enabled
}

// State returns current state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Countdown returns seconds left till next sync, 0 when disabled
func (s *Scheduler) Countdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown
}
