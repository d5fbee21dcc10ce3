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
	"fmt"
	"net/http"
	"time"
)

// Header is a source which reads Date header of a plain web server.
// Resolution is one second at best.
type Header struct {
	name   string
	url    string
	method string
	client *http.Client
}

// NewHeader returns new Header source. Empty method means HEAD.
func NewHeader(name, url, method string, client *http.Client) *Header {
	if method == "" {
		method = http.MethodHead
	}
	return &Header{name: name, url: url, method: method, client: client}
}

// Name implements Source
func (s *Header) Name() string {
	return s.name
}

// Attempt implements Source.
// Status code is ignored: servers set Date on error responses as well.
func (s *Header) Attempt(ctx context.Context, timeout time.Duration) Result {
	req, err := http.NewRequest(s.method, s.url, nil)
	if err != nil {
		return failure(s.name, fmt.Errorf("%w: %w", ErrNetwork, err), 0)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	resp, rtt, err := roundTrip(ctx, s.client, req, timeout)
	if err != nil {
		return failure(s.name, err, rtt)
	}
	date := resp.header.Get("Date")
	if date == "" {
		return failure(s.name, fmt.Errorf("%w: no Date header", ErrMalformed), rtt)
	}
	ts, err := http.ParseTime(date)
	if err != nil {
		return failure(s.name, fmt.Errorf("%w: bad Date header %q: %w", ErrMalformed, date, err), rtt)
	}
	return success(s.name, ts.UTC(), rtt)
}
