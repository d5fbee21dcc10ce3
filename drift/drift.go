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
Package drift projects reference time between synchronizations.

Local clock is assumed to run at the correct rate and the offset recorded
at last sync is assumed to stay constant, so the projection is
lastSync + elapsed + offset.
*/
package drift

import (
	"time"

	"github.com/timesync/timesync/syncer"
)

// Project returns estimated reference time at local instant now.
// It returns false if there was no successful sync yet.
func Project(s syncer.Snapshot, now time.Time) (time.Time, bool) {
	if !s.Synced {
		return time.Time{}, false
	}
	elapsed := now.Sub(s.LastSync).Seconds()
	return s.LastSync.Add(seconds(elapsed + s.OffsetSeconds)), true
}

// Since returns how long ago the last successful sync happened
func Since(s syncer.Snapshot, now time.Time) (time.Duration, bool) {
	if !s.Synced {
		return 0, false
	}
	return now.Sub(s.LastSync), true
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
