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

package widget

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/timesync/timesync/config"
	"github.com/timesync/timesync/display"
	"github.com/timesync/timesync/drift"
	"github.com/timesync/timesync/scheduler"
	"github.com/timesync/timesync/source"
	"github.com/timesync/timesync/stats"
	"github.com/timesync/timesync/syncer"
)

const (
	tickInterval = time.Second
	// delay before sync on startup and after reference server change
	syncDelay = 500 * time.Millisecond
)

// Config is what one widget needs to run
type Config struct {
	Settings    config.Settings
	Timeout     time.Duration
	History     int
	Uncertainty string
	AutoSync    bool // enable auto sync on start
	InitialSync bool // silent sync shortly after start
}

// Option configures Widget
type Option func(w *Widget)

// WithClock sets the clock driving ticks and local time readings
func WithClock(c clockwork.Clock) Option {
	return func(w *Widget) { w.clock = c }
}

// WithStore makes Widget follow settings changes
func WithStore(s *config.Store) Option {
	return func(w *Widget) { w.store = s }
}

type command int

const (
	cmdSync command = iota
	cmdToggleAuto
)

type settingsChange struct {
	old config.Settings
	cur config.Settings
}

// Widget is one surface: it shows local and reference clocks once a second,
// runs syncs on demand or on schedule and follows settings changes.
type Widget struct {
	cfg   *Config
	orch  *syncer.Orchestrator
	sched *scheduler.Scheduler
	clock clockwork.Clock
	store *config.Store
	stats stats.Server
	l     Logger
	r     Renderer
	math  Math

	workers  errgroup.Group
	commands chan command
	changes  chan settingsChange

	mu     sync.Mutex
	status display.Status
	server string
}

// New returns new Widget
func New(cfg *Config, sources []source.Source, st stats.Server, l Logger, r Renderer, opts ...Option) (*Widget, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = source.DefaultTimeout
	}
	if cfg.History <= 0 {
		cfg.History = syncer.DefaultHistory
	}
	if cfg.Uncertainty == "" {
		cfg.Uncertainty = config.DefaultUncertainty
	}
	w := &Widget{
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		stats:    st,
		l:        l,
		r:        r,
		math:     Math{Uncertainty: cfg.Uncertainty},
		commands: make(chan command, 8),
		changes:  make(chan settingsChange, 8),
		status:   display.Idle(),
		server:   cfg.Settings.ReferenceServer,
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.math.Prepare(); err != nil {
		return nil, err
	}
	w.orch = syncer.New(
		sources,
		syncer.WithClock(w.clock),
		syncer.WithTimeout(cfg.Timeout),
		syncer.WithStats(st),
		syncer.WithHistory(cfg.History),
		syncer.WithBusyFunc(w.setBusy),
		syncer.WithRecordedFunc(w.account),
	)
	w.sched = scheduler.New(cfg.Settings.SyncInterval, func(ctx context.Context) {
		w.startSync(ctx, true)
	})
	if w.store != nil {
		w.store.OnChange(w.onSettingsChange)
	}
	w.stats.SetCounter("sync.offset_mean_ns", 0)
	w.stats.SetCounter("sync.offset_stddev_ns", 0)
	w.stats.SetCounter("sync.uncertainty_ns", 0)
	return w, nil
}

// Status returns current status line
func (w *Widget) Status() display.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Server returns reference server label
func (w *Widget) Server() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.server
}

// Snapshot returns current sync state
func (w *Widget) Snapshot() syncer.Snapshot {
	return w.orch.Snapshot()
}

func (w *Widget) setStatus(s display.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
}

func (w *Widget) setBusy(busy bool) {
	if busy {
		w.setStatus(display.Connecting())
	}
}

// SyncNow asks running widget for a manual sync
func (w *Widget) SyncNow(ctx context.Context) error {
	return w.send(ctx, cmdSync)
}

// ToggleAuto asks running widget to flip auto sync
func (w *Widget) ToggleAuto(ctx context.Context) error {
	return w.send(ctx, cmdToggleAuto)
}

func (w *Widget) send(ctx context.Context, c command) error {
	select {
	case w.commands <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync runs one sync and waits for it. Status is updated with the result.
func (w *Widget) Sync(ctx context.Context, silent bool) (syncer.Outcome, error) {
	outcome, err := w.orch.Sync(ctx, silent)
	if errors.Is(err, syncer.ErrSyncInProgress) {
		log.Debug("sync is already running, dropping this one")
		if !silent {
			w.setStatus(display.StatusFromOutcome(outcome, err))
		}
		return outcome, err
	}
	w.setStatus(display.StatusFromOutcome(outcome, err))
	return outcome, err
}

func (w *Widget) startSync(ctx context.Context, silent bool) {
	w.workers.Go(func() error {
		_, _ = w.Sync(ctx, silent)
		return nil
	})
}

// account evaluates statistics over recent samples and logs the latest one.
// Orchestrator calls it before the sync is over, so it never runs concurrently.
func (w *Widget) account(s syncer.Sample, outcome syncer.Outcome) {
	samples := w.orch.History(w.cfg.History)
	sample := &LogSample{
		Time:          s.At,
		Source:        s.Source,
		Tier:          outcome.Tier.String(),
		OffsetSeconds: s.OffsetSeconds,
		RTTSeconds:    s.RTT.Seconds(),
	}
	est, err := w.math.Evaluate(samples)
	if err != nil {
		log.Warningf("evaluating uncertainty: %v", err)
	} else {
		sample.OffsetMean = est.OffsetMean
		sample.OffsetStddev = est.OffsetStddev
		sample.UncertaintySec = est.Uncertainty
		w.stats.SetCounter("sync.offset_mean_ns", toNS(est.OffsetMean))
		w.stats.SetCounter("sync.offset_stddev_ns", toNS(est.OffsetStddev))
		w.stats.SetCounter("sync.uncertainty_ns", toNS(est.Uncertainty))
	}
	if err := w.l.Log(sample); err != nil {
		log.Errorf("logging sample: %v", err)
	}
}

// toNS converts seconds to nanoseconds, NaN and Inf become 0
func toNS(sec float64) int64 {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0
	}
	return int64(sec * float64(time.Second))
}

func (w *Widget) onSettingsChange(old, cur config.Settings) {
	select {
	case w.changes <- settingsChange{old: old, cur: cur}:
	default:
		log.Warning("too many pending settings changes, dropping one")
	}
}

// applySettings returns true if reference server changed and sync is due
func (w *Widget) applySettings(c settingsChange) bool {
	if c.old.SyncInterval != c.cur.SyncInterval {
		log.Infof("sync interval changed to %ds", c.cur.SyncInterval)
		w.sched.SetInterval(c.cur.SyncInterval)
	}
	if c.old.ReferenceServer == c.cur.ReferenceServer {
		return false
	}
	log.Infof("reference server changed to %s, resetting counters", c.cur.ReferenceServer)
	w.stats.Reset()
	w.mu.Lock()
	w.server = c.cur.ReferenceServer
	w.status = display.Referencing(c.cur.ReferenceServer)
	w.mu.Unlock()
	return true
}

func (w *Widget) handle(ctx context.Context, c command) {
	switch c {
	case cmdSync:
		w.startSync(ctx, false)
	case cmdToggleAuto:
		w.sched.Toggle(ctx)
	}
}

func (w *Widget) tick(ctx context.Context) {
	if w.store != nil {
		if err := w.store.Refresh(); err != nil {
			log.Warningf("refreshing settings: %v", err)
		}
	}
	w.sched.Tick(ctx)
	w.render()
}

func (w *Widget) frame() *Frame {
	now := w.clock.Now()
	snap := w.orch.Snapshot()
	ref, ok := drift.Project(snap, now)
	since, synced := drift.Since(snap, now)
	return &Frame{
		Local:     display.FormatLocal(now),
		Reference: display.FormatProjectedUTC(ref, ok),
		LastSync:  display.FormatSince(since, synced),
		Server:    w.Server(),
		Status:    w.Status(),
		Auto:      display.AutoLabel(w.sched.Enabled(), w.sched.Countdown()),
	}
}

func (w *Widget) render() {
	if err := w.r.Render(w.frame()); err != nil {
		log.Errorf("rendering: %v", err)
	}
}

// Run is the main loop. It returns when ctx is cancelled and all syncs are done.
func (w *Widget) Run(ctx context.Context) error {
	var delayed <-chan time.Time
	if w.cfg.InitialSync {
		delayed = w.clock.After(syncDelay)
	}
	ticker := w.clock.NewTicker(tickInterval)
	defer ticker.Stop()

	if w.cfg.AutoSync {
		w.sched.Enable(ctx)
	}
	w.render()
	for {
		select {
		case <-ctx.Done():
			log.Debug("widget is shutting down")
			return w.workers.Wait()
		case <-delayed:
			delayed = nil
			w.startSync(ctx, true)
		case c := <-w.changes:
			if w.applySettings(c) {
				delayed = w.clock.After(syncDelay)
			}
			w.render()
		case c := <-w.commands:
			w.handle(ctx, c)
			w.render()
		case <-ticker.Chan():
			w.tick(ctx)
		}
	}
}
