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
	"context"
	"errors"
	"time"
)

// DefaultTimeout is how long a single attempt may take before it's abandoned
const DefaultTimeout = 3 * time.Second

// failure kinds
var (
	ErrTimeout   = errors.New("timeout")
	ErrNetwork   = errors.New("network error")
	ErrMalformed = errors.New("malformed response")
)

//go:generate mockgen -source=source.go -destination=mock_source.go -package=source

// Source is a single external time reference we can ask for current time
type Source interface {
	Name() string
	// Attempt performs exactly one request bounded by timeout.
	// It never returns an error, failures are reported in Result.
	Attempt(ctx context.Context, timeout time.Duration) Result
}

// Result is an outcome of a single Attempt
type Result struct {
	Success   bool
	Timestamp time.Time
	Source    string
	// Reason is a short human-readable failure kind, empty on success
	Reason string
	// Err wraps one of ErrTimeout, ErrNetwork or ErrMalformed
	Err error
	// RTT is how long the request took
	RTT time.Duration
}

func success(name string, ts time.Time, rtt time.Duration) Result {
	return Result{
		Success:   true,
		Timestamp: ts,
		Source:    name,
		RTT:       rtt,
	}
}

func failure(name string, err error, rtt time.Duration) Result {
	r := Result{
		Source: name,
		Err:    err,
		RTT:    rtt,
	}
	switch {
	case errors.Is(err, ErrTimeout):
		r.Reason = ErrTimeout.Error()
	case errors.Is(err, ErrMalformed):
		r.Reason = ErrMalformed.Error()
	default:
		r.Reason = ErrNetwork.Error()
	}
	return r
}
