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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timesync/timesync/syncer"
)

func samplesOf(offsets ...float64) []syncer.Sample {
	res := make([]syncer.Sample, len(offsets))
	for i, o := range offsets {
		res[i] = syncer.Sample{OffsetSeconds: o, RTT: 100 * time.Millisecond}
	}
	return res
}

func TestMathEvaluate(t *testing.T) {
	m := Math{Uncertainty: "mean(offset, 2)"}
	require.NoError(t, m.Prepare())

	est, err := m.Evaluate(samplesOf(1, 2, 3))
	require.NoError(t, err)
	require.InDelta(t, 1.5, est.Uncertainty, 1e-9)
	require.InDelta(t, 2.0, est.OffsetMean, 1e-9)
	require.Greater(t, est.OffsetStddev, 0.0)
}

func TestMathAbs(t *testing.T) {
	m := Math{Uncertainty: "abs(mean(offset, 10))"}
	require.NoError(t, m.Prepare())

	est, err := m.Evaluate(samplesOf(-2, -4))
	require.NoError(t, err)
	require.InDelta(t, 3.0, est.Uncertainty, 1e-9)
	require.InDelta(t, -3.0, est.OffsetMean, 1e-9)
}

func TestMathRTT(t *testing.T) {
	m := Math{Uncertainty: "mean(rtt, 5) / 2"}
	require.NoError(t, m.Prepare())

	est, err := m.Evaluate(samplesOf(1, 1, 1))
	require.NoError(t, err)
	require.InDelta(t, 0.05, est.Uncertainty, 1e-9)
}

func TestMathDefaultExpression(t *testing.T) {
	m := Math{Uncertainty: "abs(mean(offset, 10)) + 2.0 * stddev(offset, 10)"}
	require.NoError(t, m.Prepare())

	// no spread at all, so uncertainty is just the mean
	est, err := m.Evaluate(samplesOf(0.5, 0.5, 0.5, 0.5))
	require.NoError(t, err)
	require.InDelta(t, 0.5, est.Uncertainty, 1e-9)
	require.InDelta(t, 0.0, est.OffsetStddev, 1e-9)
}

func TestMathPrepareErrors(t *testing.T) {
	cases := []string{
		"mean(delay, 10)",
		"mean(offset, ",
	}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			m := Math{Uncertainty: c}
			require.Error(t, m.Prepare())
		})
	}
}

func TestMathEvaluateErrors(t *testing.T) {
	m := Math{Uncertainty: "mean(offset)"}
	require.NoError(t, m.Prepare())
	_, err := m.Evaluate(samplesOf(1))
	require.Error(t, err)

	m = Math{Uncertainty: "mean(offset, 2)"}
	require.NoError(t, m.Prepare())
	_, err = m.Evaluate(nil)
	require.Error(t, err)
}
