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

/*
Package display turns sync state into strings for whatever surface shows them.
It does no rendering itself.
*/
package display

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/timesync/timesync/syncer"
)

// Layout is how both clocks are formatted
const Layout = "Monday | January 2, 2006, 15:04:05"

// NotSynced is shown in place of reference time before the first successful sync
const NotSynced = "--:--:-- | Not synchronized yet"

// FormatLocal formats local clock reading in local time zone
func FormatLocal(t time.Time) string {
	return t.Local().Format(Layout)
}

// FormatProjectedUTC formats projected reference time in UTC
func FormatProjectedUTC(t time.Time, ok bool) string {
	if !ok {
		return NotSynced
	}
	return t.UTC().Format(Layout)
}

// NeverSynced is shown in place of last sync age before the first successful sync
const NeverSynced = "never synced"

// FormatSince tells how long ago the last sync was, in whole seconds
func FormatSince(d time.Duration, ok bool) string {
	if !ok {
		return NeverSynced
	}
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	if secs >= 60 {
		return fmt.Sprintf("last sync %dm %ds ago", secs/60, secs%60)
	}
	return fmt.Sprintf("last sync %ds ago", secs)
}

// Severity of the status line
type Severity int

// possible severities
const (
	Pending Severity = iota
	OK
	Warn
	Error
)

var severityToHex = map[Severity]string{
	Pending: "#ffc107",
	OK:      "#00af7b",
	Warn:    "#ff9800",
	Error:   "#f44336",
}

var severityToString = map[Severity]string{
	Pending: "PENDING",
	OK:      "OK",
	Warn:    "WARN",
	Error:   "ERROR",
}

func (s Severity) String() string {
	return severityToString[s]
}

// Hex returns color of severity as hex RGB
func (s Severity) Hex() string {
	return severityToHex[s]
}

// Sprint colorizes text for terminal output
func (s Severity) Sprint(text string) string {
	switch s {
	case OK:
		return color.New(color.FgGreen).Sprint(text)
	case Warn:
		return color.New(color.FgYellow).Sprint(text)
	case Error:
		return color.New(color.FgRed).Sprint(text)
	default:
		return color.New(color.FgCyan).Sprint(text)
	}
}

// Status is a status line: text plus its severity
type Status struct {
	Text     string
	Severity Severity
}

// String returns colorized text
func (s Status) String() string {
	return s.Severity.Sprint(s.Text)
}

// Idle is the status before anything happened
func Idle() Status {
	return Status{Text: "● Ready", Severity: Pending}
}

// Connecting is shown while manual sync is running
func Connecting() Status {
	return Status{Text: "● Connecting to server...", Severity: Pending}
}

// Referencing is shown when reference server was changed and sync is about to happen
func Referencing(server string) Status {
	return Status{Text: fmt.Sprintf("● Syncing with reference to %s...", server), Severity: Pending}
}

// StatusFromOutcome maps result of a sync to a status line
func StatusFromOutcome(o syncer.Outcome, err error) Status {
	if err != nil || o.Tier == syncer.TierFailed {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			return Connecting()
		}
		return Status{Text: "● Sync failed", Severity: Error}
	}
	if o.Tier == syncer.TierSynced {
		return Status{Text: "● Synced perfectly", Severity: OK}
	}
	return Status{
		Text:     fmt.Sprintf("● Time diff: %.3fs via %s", o.Magnitude(), o.Source),
		Severity: Warn,
	}
}

// AutoLabel is a label for auto sync toggle with countdown
func AutoLabel(enabled bool, countdown int) string {
	if !enabled {
		return "Auto Sync"
	}
	mins := countdown / 60
	secs := countdown % 60
	if mins > 0 {
		return fmt.Sprintf("Auto (%dm %ds)", mins, secs)
	}
	return fmt.Sprintf("Auto (%ds)", secs)
}
