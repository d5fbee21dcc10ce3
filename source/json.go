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

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// default field names
const (
	DefaultUnixField = "unixtime"
	DefaultISOField  = "dateTime"
)

// layout used when the datetime string carries no zone designator
const isoLocalLayout = "2006-01-02T15:04:05.999999999"

// JSONUnix is a source returning JSON object with numeric unix timestamp field.
// Fractional seconds are supported.
type JSONUnix struct {
	name   string
	url    string
	field  string
	client *http.Client
}

// NewJSONUnix returns new JSONUnix source
func NewJSONUnix(name, url, field string, client *http.Client) *JSONUnix {
	if field == "" {
		field = DefaultUnixField
	}
	return &JSONUnix{name: name, url: url, field: field, client: client}
}

// Name implements Source
func (s *JSONUnix) Name() string {
	return s.name
}

// Attempt implements Source
func (s *JSONUnix) Attempt(ctx context.Context, timeout time.Duration) Result {
	raw, rtt, err := getJSONField(ctx, s.client, s.url, s.field, timeout)
	if err != nil {
		return failure(s.name, err, rtt)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return failure(s.name, fmt.Errorf("%w: field %q is not a number: %w", ErrMalformed, s.field, err), rtt)
	}
	ts, err := parseUnix(num)
	if err != nil {
		return failure(s.name, err, rtt)
	}
	return success(s.name, ts, rtt)
}

// JSONISO is a source returning JSON object with ISO-8601 datetime string field.
// Strings without zone designator are treated as UTC.
type JSONISO struct {
	name   string
	url    string
	field  string
	client *http.Client
}

// NewJSONISO returns new JSONISO source
func NewJSONISO(name, url, field string, client *http.Client) *JSONISO {
	if field == "" {
		field = DefaultISOField
	}
	return &JSONISO{name: name, url: url, field: field, client: client}
}

// Name implements Source
func (s *JSONISO) Name() string {
	return s.name
}

// Attempt implements Source
func (s *JSONISO) Attempt(ctx context.Context, timeout time.Duration) Result {
	raw, rtt, err := getJSONField(ctx, s.client, s.url, s.field, timeout)
	if err != nil {
		return failure(s.name, err, rtt)
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return failure(s.name, fmt.Errorf("%w: field %q is not a string: %w", ErrMalformed, s.field, err), rtt)
	}
	ts, err := parseISO(str)
	if err != nil {
		return failure(s.name, err, rtt)
	}
	return success(s.name, ts, rtt)
}

func getJSONField(ctx context.Context, client *http.Client, url, field string, timeout time.Duration) (json.RawMessage, time.Duration, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, rtt, err := roundTrip(ctx, client, req, timeout)
	if err != nil {
		return nil, rtt, err
	}
	if !resp.ok() {
		return nil, rtt, fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.status)
	}
	var obj map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(resp.body))
	if err := dec.Decode(&obj); err != nil {
		return nil, rtt, fmt.Errorf("%w: decoding body: %w", ErrMalformed, err)
	}
	raw, found := obj[field]
	if !found || string(raw) == "null" {
		return nil, rtt, fmt.Errorf("%w: no %q field", ErrMalformed, field)
	}
	return raw, rtt, nil
}

func parseUnix(num json.Number) (time.Time, error) {
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, fmt.Errorf("%w: bad unix timestamp %q", ErrMalformed, num)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
}

func hasZone(s string) bool {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return true
	}
	// look for +hh:mm / -hh:mm after the time part
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return false
	}
	return strings.ContainsAny(s[i:], "+-")
}

func parseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty datetime", ErrMalformed)
	}
	var (
		ts  time.Time
		err error
	)
	if hasZone(s) {
		ts, err = time.Parse(time.RFC3339Nano, s)
	} else {
		ts, err = time.ParseInLocation(isoLocalLayout, s, time.UTC)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad datetime %q: %w", ErrMalformed, s, err)
	}
	return ts.UTC(), nil
}
