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
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/timesync/timesync/config"
	"github.com/timesync/timesync/display"
	"github.com/timesync/timesync/source"
	"github.com/timesync/timesync/syncer"
)

var noon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type frames struct {
	sync.Mutex
	all []Frame
}

func (f *frames) Render(fr *Frame) error {
	f.Lock()
	defer f.Unlock()
	f.all = append(f.all, *fr)
	return nil
}

func (f *frames) first() Frame {
	f.Lock()
	defer f.Unlock()
	if len(f.all) == 0 {
		return Frame{}
	}
	return f.all[0]
}

func (f *frames) last() Frame {
	f.Lock()
	defer f.Unlock()
	if len(f.all) == 0 {
		return Frame{}
	}
	return f.all[len(f.all)-1]
}

func mockSource(ctrl *gomock.Controller, name string) *source.MockSource {
	s := source.NewMockSource(ctrl)
	s.EXPECT().Name().Return(name).AnyTimes()
	return s
}

func ok(name string, ts time.Time) source.Result {
	return source.Result{Success: true, Source: name, Timestamp: ts, RTT: 20 * time.Millisecond}
}

func testConfig() *Config {
	return &Config{
		Settings: config.DefaultSettings(),
		Timeout:  time.Second,
	}
}

func TestNewDefaults(t *testing.T) {
	cfg := &Config{Settings: config.DefaultSettings()}
	w, err := New(cfg, nil, newMockStats(), NopLogger{}, &frames{})
	require.NoError(t, err)
	require.Equal(t, source.DefaultTimeout, cfg.Timeout)
	require.Equal(t, syncer.DefaultHistory, cfg.History)
	require.Equal(t, config.DefaultUncertainty, cfg.Uncertainty)
	require.Equal(t, display.Idle(), w.Status())
	require.Equal(t, "pool.ntp.org", w.Server())
	require.False(t, w.Snapshot().Synced)
}

func TestNewBadUncertainty(t *testing.T) {
	cfg := testConfig()
	cfg.Uncertainty = "mean(delay, 10)"
	_, err := New(cfg, nil, newMockStats(), NopLogger{}, &frames{})
	require.Error(t, err)
}

func TestWidgetSyncDrift(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClockAt(noon)
	a := mockSource(ctrl, "WorldTimeAPI")
	a.EXPECT().Attempt(gomock.Any(), time.Second).Return(ok("WorldTimeAPI", noon.Add(2500*time.Millisecond)))

	stats := newMockStats()
	var buf bytes.Buffer
	w, err := New(testConfig(), []source.Source{a}, stats, NewCSVLogger(&buf), &frames{}, WithClock(clock))
	require.NoError(t, err)

	outcome, err := w.Sync(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, syncer.TierSyncedWithDrift, outcome.Tier)
	require.Equal(t, display.Status{Text: "● Time diff: 2.500s via WorldTimeAPI", Severity: display.Warn}, w.Status())

	stats.AssertCalled(t, "SetCounter", "sync.offset_mean_ns", int64(2500000000))
	stats.AssertCalled(t, "SetCounter", "sync.offset_ns", int64(2500000000))
	require.Contains(t, buf.String(), "time,source,tier,offset,rtt,offset_mean,offset_stddev,uncertainty\n")
	require.Contains(t, buf.String(), "2024-03-01T12:00:00Z,WorldTimeAPI,SYNCED_WITH_DRIFT,2.5,0.02,2.5,")
}

func TestWidgetSyncFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mockSource(ctrl, "A")
	a.EXPECT().Attempt(gomock.Any(), gomock.Any()).Return(source.Result{Source: "A", Err: source.ErrTimeout})

	var buf bytes.Buffer
	w, err := New(testConfig(), []source.Source{a}, newMockStats(), NewCSVLogger(&buf), &frames{}, WithClock(clockwork.NewFakeClockAt(noon)))
	require.NoError(t, err)

	_, err = w.Sync(context.Background(), true)
	require.ErrorIs(t, err, syncer.ErrAllSourcesFailed)
	require.Equal(t, display.Status{Text: "● Sync failed", Severity: display.Error}, w.Status())
	require.Empty(t, buf.String())
}

func TestWidgetBusy(t *testing.T) {
	w, err := New(testConfig(), nil, newMockStats(), NopLogger{}, &frames{})
	require.NoError(t, err)
	w.setBusy(true)
	require.Equal(t, display.Connecting(), w.Status())
	w.setBusy(false)
	require.Equal(t, display.Connecting(), w.Status())
}

func TestWidgetAutoSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClockAt(noon)
	a := mockSource(ctrl, "A")
	a.EXPECT().Attempt(gomock.Any(), gomock.Any()).Return(ok("A", noon)).Times(2)

	cfg := testConfig()
	cfg.Settings.SyncInterval = 10
	r := &frames{}
	w, err := New(cfg, []source.Source{a}, newMockStats(), NopLogger{}, r, WithClock(clock))
	require.NoError(t, err)
	ctx := context.Background()

	// enabling syncs right away
	w.handle(ctx, cmdToggleAuto)
	require.NoError(t, w.workers.Wait())
	require.True(t, w.sched.Enabled())

	for i := 0; i < 9; i++ {
		w.tick(ctx)
	}
	require.NoError(t, w.workers.Wait())
	require.Equal(t, "Auto (1s)", r.last().Auto)

	w.tick(ctx)
	require.NoError(t, w.workers.Wait())
	require.Equal(t, "Auto (10s)", r.last().Auto)
	require.Equal(t, display.Status{Text: "● Synced perfectly", Severity: display.OK}, r.last().Status)

	w.handle(ctx, cmdToggleAuto)
	for i := 0; i < 25; i++ {
		w.tick(ctx)
	}
	require.NoError(t, w.workers.Wait())
	require.Equal(t, "Auto Sync", r.last().Auto)
}

func TestWidgetSettingsChange(t *testing.T) {
	store := config.NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	settings, err := store.Load()
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Settings = settings
	stats := newMockStats()
	w, err := New(cfg, nil, stats, NopLogger{}, &frames{}, WithStore(store))
	require.NoError(t, err)

	require.NoError(t, store.SetSyncInterval(30))
	require.False(t, w.applySettings(<-w.changes))
	require.Equal(t, 30, w.sched.Interval())
	stats.AssertNotCalled(t, "Reset")

	require.NoError(t, store.SetReferenceServer("time.google.com"))
	require.True(t, w.applySettings(<-w.changes))
	require.Equal(t, display.Referencing("time.google.com"), w.Status())
	require.Equal(t, "time.google.com", w.Server())
	stats.AssertNumberOfCalls(t, "Reset", 1)
}

func TestWidgetCommands(t *testing.T) {
	w, err := New(testConfig(), nil, newMockStats(), NopLogger{}, &frames{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, w.SyncNow(ctx))
	require.NoError(t, w.ToggleAuto(ctx))
	require.Equal(t, cmdSync, <-w.commands)
	require.Equal(t, cmdToggleAuto, <-w.commands)

	// nobody reads commands, so once the queue is full we give up with ctx
	for i := 0; i < cap(w.commands); i++ {
		require.NoError(t, w.SyncNow(ctx))
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, w.SyncNow(cctx), context.Canceled)
}

func TestWidgetRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClockAt(noon)
	a := mockSource(ctrl, "A")
	// local clock reads noon+500ms when initial sync happens, offset is 2.5s
	a.EXPECT().Attempt(gomock.Any(), gomock.Any()).Return(ok("A", noon.Add(3*time.Second)))

	cfg := testConfig()
	cfg.InitialSync = true
	r := &frames{}
	w, err := New(cfg, []source.Source{a}, newMockStats(), NopLogger{}, r, WithClock(clock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	clock.BlockUntil(2)
	clock.Advance(syncDelay)
	require.Eventually(t, func() bool { return w.Snapshot().Synced }, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, display.NotSynced, r.first().Reference)
	require.Equal(t, display.NeverSynced, r.first().LastSync)

	// first tick at noon+1s, half a second after sync
	clock.Advance(syncDelay)
	require.Eventually(t, func() bool {
		f := r.last()
		return f.Reference == "Friday | March 1, 2024, 12:00:03" && f.LastSync == "last sync 0s ago"
	}, 5*time.Second, 10*time.Millisecond)

	clock.Advance(5 * tickInterval)
	require.Eventually(t, func() bool {
		return r.last().LastSync == "last sync 5s ago"
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return w.Status() == display.Status{Text: "● Time diff: 2.500s via A", Severity: display.Warn}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

// blockingLogger holds the first sample until released and remembers how many Log calls overlapped
type blockingLogger struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	active  atomic.Int32
	peak    atomic.Int32
	logged  atomic.Int32
}

func newBlockingLogger() *blockingLogger {
	return &blockingLogger{entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *blockingLogger) Log(*LogSample) error {
	n := l.active.Add(1)
	defer l.active.Add(-1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	l.once.Do(func() {
		close(l.entered)
		<-l.release
	})
	l.logged.Add(1)
	return nil
}

func TestWidgetAccountingDoesNotOverlap(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClockAt(noon)
	a := mockSource(ctrl, "A")
	a.EXPECT().Attempt(gomock.Any(), gomock.Any()).Return(ok("A", noon.Add(time.Second))).AnyTimes()

	l := newBlockingLogger()
	w, err := New(testConfig(), []source.Source{a}, newMockStats(), l, &frames{}, WithClock(clock))
	require.NoError(t, err)
	ctx := context.Background()

	w.startSync(ctx, false)
	<-l.entered

	// first sync is still logging its sample, so it's still in flight
	_, err = w.Sync(ctx, true)
	require.ErrorIs(t, err, syncer.ErrSyncInProgress)

	close(l.release)
	require.NoError(t, w.workers.Wait())
	require.Equal(t, int32(1), l.peak.Load())
	require.Equal(t, int32(1), l.logged.Load())

	_, err = w.Sync(ctx, true)
	require.NoError(t, err)
	require.Equal(t, int32(2), l.logged.Load())
	require.Equal(t, int32(1), l.peak.Load())
}

func TestToNS(t *testing.T) {
	require.Equal(t, int64(1500000000), toNS(1.5))
	require.Equal(t, int64(-20000000), toNS(-0.02))
	var zero float64
	require.Equal(t, int64(0), toNS(zero/zero))
	require.Equal(t, int64(0), toNS(1/zero))
}

func ExampleDummyLogger() {
	var buf bytes.Buffer
	l := NewDummyLogger(&buf)
	_ = l.Log(&LogSample{OffsetSeconds: -0.25, Source: "A", UncertaintySec: 0.5})
	fmt.Print(buf.String())
	// Output: offset = -0.250s via A, u = 0.500s
}
