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

package display

import (
	"fmt"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/timesync/timesync/syncer"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 6, 500000000, time.UTC)
	require.Equal(t, "Friday | March 1, 2024, 12:00:06", FormatProjectedUTC(ts, true))
	require.Equal(t, NotSynced, FormatProjectedUTC(ts, false))
	require.Equal(t, "--:--:-- | Not synchronized yet", FormatProjectedUTC(time.Time{}, false))

	// projected time is always rendered in UTC
	other := ts.In(time.FixedZone("X", 3*3600))
	require.Equal(t, "Friday | March 1, 2024, 12:00:06", FormatProjectedUTC(other, true))

	require.Equal(t, ts.Local().Format(Layout), FormatLocal(ts))
}

func TestFormatSince(t *testing.T) {
	require.Equal(t, NeverSynced, FormatSince(0, false))
	require.Equal(t, "last sync 0s ago", FormatSince(500*time.Millisecond, true))
	require.Equal(t, "last sync 4s ago", FormatSince(4900*time.Millisecond, true))
	require.Equal(t, "last sync 2m 5s ago", FormatSince(125*time.Second, true))
	require.Equal(t, "last sync 0s ago", FormatSince(-time.Second, true))
}

func TestStatusFromOutcome(t *testing.T) {
	s := StatusFromOutcome(syncer.Outcome{Tier: syncer.TierSynced, OffsetSeconds: 0.2, Source: "A"}, nil)
	require.Equal(t, Status{Text: "● Synced perfectly", Severity: OK}, s)

	s = StatusFromOutcome(syncer.Outcome{Tier: syncer.TierSyncedWithDrift, OffsetSeconds: -2.5, Source: "WorldTimeAPI"}, nil)
	require.Equal(t, Status{Text: "● Time diff: 2.500s via WorldTimeAPI", Severity: Warn}, s)

	s = StatusFromOutcome(syncer.Outcome{Tier: syncer.TierFailed}, fmt.Errorf("%w: everything is down", syncer.ErrAllSourcesFailed))
	require.Equal(t, Status{Text: "● Sync failed", Severity: Error}, s)

	s = StatusFromOutcome(syncer.Outcome{}, syncer.ErrSyncInProgress)
	require.Equal(t, Connecting(), s)
}

func TestSeverity(t *testing.T) {
	require.Equal(t, "#00af7b", OK.Hex())
	require.Equal(t, "#ff9800", Warn.Hex())
	require.Equal(t, "#f44336", Error.Hex())
	require.Equal(t, "#ffc107", Pending.Hex())
	require.Equal(t, "WARN", Warn.String())

	color.NoColor = true
	defer func() { color.NoColor = false }()
	require.Equal(t, "● Sync failed", Status{Text: "● Sync failed", Severity: Error}.String())
}

func TestStatuses(t *testing.T) {
	require.Equal(t, Status{Text: "● Connecting to server...", Severity: Pending}, Connecting())
	require.Equal(t, Status{Text: "● Syncing with reference to time.google.com...", Severity: Pending}, Referencing("time.google.com"))
	require.Equal(t, Pending, Idle().Severity)
}

func TestAutoLabel(t *testing.T) {
	require.Equal(t, "Auto Sync", AutoLabel(false, 0))
	require.Equal(t, "Auto (45s)", AutoLabel(true, 45))
	require.Equal(t, "Auto (1m 5s)", AutoLabel(true, 65))
	require.Equal(t, "Auto (2m 0s)", AutoLabel(true, 120))
	require.Equal(t, "Auto (0s)", AutoLabel(true, 0))
}
