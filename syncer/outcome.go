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
	"math"
	"time"
)

// PerfectThreshold is the offset magnitude (in seconds) under which we consider clock synced perfectly
const PerfectThreshold = 1.0

// Tier is a coarse classification of sync result
type Tier int

// possible tiers
const (
	TierFailed Tier = iota
	TierSynced
	TierSyncedWithDrift
)

var tierToString = map[Tier]string{
	TierFailed:          "FAILED",
	TierSynced:          "SYNCED",
	TierSyncedWithDrift: "SYNCED_WITH_DRIFT",
}

func (t Tier) String() string {
	return tierToString[t]
}

// TierFor returns tier for successfully measured offset
func TierFor(offsetSeconds float64) Tier {
	if math.Abs(offsetSeconds) < PerfectThreshold {
		return TierSynced
	}
	return TierSyncedWithDrift
}

// Outcome is what Sync reports to the caller
type Outcome struct {
	Tier          Tier
	OffsetSeconds float64
	Source        string
	At            time.Time
}

// Magnitude is the absolute offset in seconds
func (o Outcome) Magnitude() float64 {
	return math.Abs(o.OffsetSeconds)
}

// Offset returns offset as time.Duration
func (o Outcome) Offset() time.Duration {
	return time.Duration(o.OffsetSeconds * float64(time.Second))
}
