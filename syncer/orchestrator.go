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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/timesync/timesync/source"
)

// DefaultHistory is how many samples we keep by default
const DefaultHistory = 100

// errors returned by Sync
var (
	ErrAllSourcesFailed = errors.New("all sources failed")
	ErrSyncInProgress   = errors.New("sync already in progress")
)

// StatsServer is a stats server interface
type StatsServer interface {
	SetCounter(key string, val int64)
	UpdateCounterBy(key string, count int64)
}

type nopStats struct{}

func (nopStats) SetCounter(string, int64)      {}
func (nopStats) UpdateCounterBy(string, int64) {}

// BusyFunc is called with true when a non-silent sync starts, and with false when it's over
type BusyFunc func(busy bool)

// RecordedFunc is called with every recorded sample while the sync holding it is still in flight,
// so calls never overlap and come in the order samples were taken
type RecordedFunc func(s Sample, outcome Outcome)

// Option configures Orchestrator
type Option func(o *Orchestrator)

// WithClock sets the clock used to capture local time
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithTimeout sets per-source timeout
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithStats sets stats server
func WithStats(s StatsServer) Option {
	return func(o *Orchestrator) { o.stats = s }
}

// WithBusyFunc sets progress callback for non-silent syncs
func WithBusyFunc(f BusyFunc) Option {
	return func(o *Orchestrator) { o.busy = f }
}

// WithRecordedFunc sets callback for successful syncs
func WithRecordedFunc(f RecordedFunc) Option {
	return func(o *Orchestrator) { o.recorded = f }
}

// WithHistory sets how many samples to keep
func WithHistory(n int) Option {
	return func(o *Orchestrator) { o.historySize = n }
}

// Orchestrator tries sources in order until one of them gives us time,
// and keeps the offset we derived from it.
type Orchestrator struct {
	sources     []source.Source
	clock       clockwork.Clock
	timeout     time.Duration
	stats       StatsServer
	busy        BusyFunc
	recorded    RecordedFunc
	historySize int

	inFlight atomic.Bool
	state    *state
}

// New creates new Orchestrator. Order of sources is the order they are tried in.
func New(sources []source.Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sources:     sources,
		clock:       clockwork.NewRealClock(),
		timeout:     source.DefaultTimeout,
		stats:       nopStats{},
		historySize: DefaultHistory,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.state = newState(o.historySize)

	o.stats.SetCounter("sync.success", 0)
	o.stats.SetCounter("sync.failed", 0)
	o.stats.SetCounter("sync.dropped", 0)
	o.stats.SetCounter("sync.offset_ns", 0)
	o.stats.SetCounter("sync.rtt_ns", 0)
	o.stats.SetCounter("sync.synced", 0)
	for _, s := range sources {
		o.stats.SetCounter(sourceKey(s.Name(), "success"), 0)
		o.stats.SetCounter(sourceKey(s.Name(), "failed"), 0)
	}
	return o
}

// Snapshot returns current sync state
func (o *Orchestrator) Snapshot() Snapshot {
	return o.state.snapshot()
}

// History returns up to n last successful samples, most recent first
func (o *Orchestrator) History(n int) []Sample {
	return o.state.takeSamples(n)
}

// InProgress tells if there is a sync running right now
func (o *Orchestrator) InProgress() bool {
	return o.inFlight.Load()
}

// Sync tries all sources in order and records the offset from the first one that works.
// Silent syncs behave exactly the same, they just don't report progress via BusyFunc.
// If all sources fail, state is left untouched.
func (o *Orchestrator) Sync(ctx context.Context, silent bool) (Outcome, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		o.stats.UpdateCounterBy("sync.dropped", 1)
		return Outcome{}, ErrSyncInProgress
	}
	defer o.inFlight.Store(false)

	if !silent && o.busy != nil {
		o.busy(true)
		defer o.busy(false)
	}

	errs := []error{}
	for _, s := range o.sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r := s.Attempt(ctx, o.timeout)
		if !r.Success {
			log.Debugf("source %s failed: %v", s.Name(), r.Err)
			o.stats.UpdateCounterBy(sourceKey(s.Name(), "failed"), 1)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), r.Err))
			continue
		}
		o.stats.UpdateCounterBy(sourceKey(s.Name(), "success"), 1)
		if r.Source == "" {
			r.Source = s.Name()
		}
		return o.record(r), nil
	}

	o.stats.UpdateCounterBy("sync.failed", 1)
	err := ErrAllSourcesFailed
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}
	log.Warning(err)
	return Outcome{Tier: TierFailed}, err
}

func (o *Orchestrator) record(r source.Result) Outcome {
	// local time is captured right before recording
	local := o.clock.Now()
	offset := r.Timestamp.Sub(local).Seconds()
	sample := Sample{
		At:            local,
		Source:        r.Source,
		OffsetSeconds: offset,
		RTT:           r.RTT,
	}
	o.state.record(&sample)

	o.stats.UpdateCounterBy("sync.success", 1)
	o.stats.SetCounter("sync.offset_ns", int64(offset*float64(time.Second)))
	o.stats.SetCounter("sync.rtt_ns", r.RTT.Nanoseconds())
	o.stats.SetCounter("sync.synced", 1)

	outcome := Outcome{
		Tier:          TierFor(offset),
		OffsetSeconds: offset,
		Source:        r.Source,
		At:            local,
	}
	log.Infof("synced via %s: offset %.3fs (%s)", outcome.Source, offset, outcome.Tier)
	if o.recorded != nil {
		o.recorded(sample, outcome)
	}
	return outcome
}

// sourceKey turns source name into something usable as counter name
func sourceKey(name, suffix string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return fmt.Sprintf("source.%s.%s", strings.TrimSuffix(b.String(), "_"), suffix)
}
