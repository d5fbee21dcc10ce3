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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// LogSample is what we log after every successful sync
type LogSample struct {
	Time           time.Time
	Source         string
	Tier           string
	OffsetSeconds  float64
	RTTSeconds     float64
	OffsetMean     float64
	OffsetStddev   float64
	UncertaintySec float64
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// csvColumns define both CSV header and record layout
var csvColumns = []struct {
	name  string
	value func(s *LogSample) string
}{
	{"time", func(s *LogSample) string { return s.Time.UTC().Format(time.RFC3339Nano) }},
	{"source", func(s *LogSample) string { return s.Source }},
	{"tier", func(s *LogSample) string { return s.Tier }},
	{"offset", func(s *LogSample) string { return seconds(s.OffsetSeconds) }},
	{"rtt", func(s *LogSample) string { return seconds(s.RTTSeconds) }},
	{"offset_mean", func(s *LogSample) string { return seconds(s.OffsetMean) }},
	{"offset_stddev", func(s *LogSample) string { return seconds(s.OffsetStddev) }},
	{"uncertainty", func(s *LogSample) string { return seconds(s.UncertaintySec) }},
}

func csvHeader() []string {
	res := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		res[i] = c.name
	}
	return res
}

// CSVRecords returns all data from this sample as CSV
func (s *LogSample) CSVRecords() []string {
	res := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		res[i] = c.value(s)
	}
	return res
}

// Logger is something that can store LogSample somewhere
type Logger interface {
	Log(*LogSample) error
}

// CSVLogger writes samples as CSV, header goes before the first one
type CSVLogger struct {
	w          *csv.Writer
	headerDone bool
}

// NewCSVLogger returns new CSVLogger
func NewCSVLogger(w io.Writer) *CSVLogger {
	return &CSVLogger{
		w: csv.NewWriter(w),
	}
}

// Log implements Logger interface
func (l *CSVLogger) Log(s *LogSample) error {
	if !l.headerDone {
		if err := l.w.Write(csvHeader()); err != nil {
			return err
		}
		l.headerDone = true
	}
	if err := l.w.Write(s.CSVRecords()); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

// DummyLogger writes one human readable line per sample
type DummyLogger struct {
	w io.Writer
}

// NewDummyLogger returns new DummyLogger
func NewDummyLogger(w io.Writer) *DummyLogger {
	return &DummyLogger{w: w}
}

// Log implements Logger interface
func (l *DummyLogger) Log(s *LogSample) error {
	_, err := fmt.Fprintf(l.w, "offset = %.3fs via %s, u = %.3fs\n", s.OffsetSeconds, s.Source, s.UncertaintySec)
	return err
}

// NopLogger drops all samples
type NopLogger struct{}

// Log implements Logger interface
func (NopLogger) Log(*LogSample) error { return nil }
