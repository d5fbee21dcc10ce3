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
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxBodySize is a limit on how much of response body we are willing to read
const maxBodySize = 1 << 20

// DefaultClient is shared by all sources unless they are given their own.
// It has no timeout of its own, every attempt is bounded by context.
var DefaultClient = &http.Client{}

type response struct {
	status int
	header http.Header
	body   []byte
}

// roundTrip sends a single request and reads the response fully, all within timeout
func roundTrip(ctx context.Context, client *http.Client, req *http.Request, timeout time.Duration) (*response, time.Duration, error) {
	if client == nil {
		client = DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, time.Since(start), classify(ctx, err, timeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	rtt := time.Since(start)
	if err != nil {
		return nil, rtt, classify(ctx, err, timeout)
	}
	log.Debugf("%s %s: %s in %v", req.Method, req.URL, resp.Status, rtt)
	return &response{
		status: resp.StatusCode,
		header: resp.Header,
		body:   body,
	}, rtt, nil
}

func classify(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response within %v", ErrTimeout, timeout)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}
