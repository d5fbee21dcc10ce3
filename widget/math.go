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
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/eclesh/welford"

	"github.com/timesync/timesync/syncer"
)

// MathHelp describes what can be used in uncertainty expression
const MathHelp = `Uncertainty is a govaluate expression (https://github.com/Knetic/govaluate/blob/master/MANUAL.md) over recent samples, most recent first.
Variables: offset (reference minus local, seconds), rtt (source round trip, seconds).
Functions: abs(x), and mean/variance/stddev(series, n) over the first n values of a series.`

// Math evaluates uncertainty expression over recent sync samples
type Math struct {
	Uncertainty string
	expr        *govaluate.EvaluableExpression
}

// Prepare parses the expression
func (m *Math) Prepare() error {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(m.Uncertainty, exprFunctions)
	if err != nil {
		return fmt.Errorf("parsing uncertainty %q: %w", m.Uncertainty, err)
	}
	for _, v := range expr.Vars() {
		if _, ok := seriesExtractors[v]; !ok {
			return fmt.Errorf("parsing uncertainty %q: unknown variable %q", m.Uncertainty, v)
		}
	}
	m.expr = expr
	return nil
}

// Estimate is what we know about recent offsets
type Estimate struct {
	OffsetMean   float64
	OffsetStddev float64
	Uncertainty  float64
}

// Evaluate calculates Estimate over samples, most recent first
func (m *Math) Evaluate(samples []syncer.Sample) (*Estimate, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}
	params := make(map[string]interface{}, len(seriesExtractors))
	for name, extract := range seriesExtractors {
		params[name] = series(samples, extract)
	}
	raw, err := m.expr.Evaluate(params)
	if err != nil {
		return nil, fmt.Errorf("evaluating uncertainty: %w", err)
	}
	u, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("evaluating uncertainty: got %T, want number", raw)
	}
	offsets := aggregate(series(samples, offsetOf))
	return &Estimate{
		OffsetMean:   offsets.Mean(),
		OffsetStddev: offsets.Stddev(),
		Uncertainty:  u,
	}, nil
}

func offsetOf(s syncer.Sample) float64 { return s.OffsetSeconds }
func rttOf(s syncer.Sample) float64    { return s.RTT.Seconds() }

// series which can be referenced from expression by name
var seriesExtractors = map[string]func(syncer.Sample) float64{
	"offset": offsetOf,
	"rtt":    rttOf,
}

func series(samples []syncer.Sample, extract func(syncer.Sample) float64) []float64 {
	res := make([]float64, len(samples))
	for i, s := range samples {
		res[i] = extract(s)
	}
	return res
}

// moments of a series
type moments interface {
	Mean() float64
	Variance() float64
	Stddev() float64
}

func aggregate(vals []float64) moments {
	s := welford.New()
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

// windowFunc builds expression function applying reduce to first n values of a series
func windowFunc(name string, reduce func(moments) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: want 2 arguments, got %d", name, len(args))
		}
		vals, ok := args[0].([]float64)
		if !ok {
			return nil, fmt.Errorf("%s: first argument must be a series", name)
		}
		n, ok := args[1].(float64)
		if !ok || n < 1 {
			return nil, fmt.Errorf("%s: second argument must be a positive number", name)
		}
		if int(n) < len(vals) {
			vals = vals[:int(n)]
		}
		return reduce(aggregate(vals)), nil
	}
}

var exprFunctions = map[string]govaluate.ExpressionFunction{
	"abs": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs: want 1 argument, got %d", len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("abs: argument must be a number")
		}
		return math.Abs(v), nil
	},
	"mean":     windowFunc("mean", moments.Mean),
	"variance": windowFunc("variance", moments.Variance),
	"stddev":   windowFunc("stddev", moments.Stddev),
}
