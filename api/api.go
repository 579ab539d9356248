// Copyright 2023 Databar Go Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the HTTP request gateway of the databar client: JSON
// GET and POST requests with bounded exponential-backoff retries, and typed
// failures for non-2xx responses.
//
// The HTTP client is carried in the context, defaulting to
// http.DefaultClient. Tests inject the client of a TestServer with
// UseClient().
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stockparfait/errors"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// Retry schedule for transient failures (5xx and network errors). The
// package-level settings may be overwritten in tests before issuing requests.
var (
	RetryInitialInterval = 500 * time.Millisecond
	RetryMaxElapsedTime  = 30 * time.Second
)

// UseClient injects a custom HTTP client into the context. Without it,
// http.DefaultClient is used.
func UseClient(ctx context.Context, c *http.Client) context.Context {
	return context.WithValue(ctx, clientContextKey, c)
}

func getClient(ctx context.Context) *http.Client {
	c, ok := ctx.Value(clientContextKey).(*http.Client)
	if !ok {
		return http.DefaultClient
	}
	return c
}

// Error is the typed failure for a non-2xx server response. It carries the
// status code and the raw response body for diagnostics.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// AsError extracts *Error from an error chain, or returns nil when the error
// is not a server response failure.
func AsError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}

// GetJSON issues a GET request for uri with the given query and headers, and
// unmarshals the JSON response into res. A nil res discards the body.
func GetJSON(ctx context.Context, uri string, res interface{}, query url.Values, header http.Header) error {
	return do(ctx, http.MethodGet, uri, nil, res, query, header)
}

// PostJSON issues a POST request for uri with req marshaled as the JSON body,
// and unmarshals the JSON response into res. Both req and res may be nil.
func PostJSON(ctx context.Context, uri string, req, res interface{}, header http.Header) error {
	return do(ctx, http.MethodPost, uri, req, res, nil, header)
}

// do runs a single JSON request with retries. Server errors (5xx) and
// network failures are retried with exponential backoff under the request
// context; client errors (4xx) and malformed payloads fail immediately.
func do(ctx context.Context, method, uri string, payload, res interface{}, query url.Values, header http.Header) error {
	u, err := url.Parse(uri)
	if err != nil {
		return errors.Annotate(err, "failed to parse URL '%s'", uri)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	var body []byte
	if payload != nil {
		if body, err = json.Marshal(payload); err != nil {
			return errors.Annotate(err, "failed to encode request body")
		}
	}
	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return backoff.Permanent(errors.Annotate(err, "failed to create request"))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := getClient(ctx).Do(req)
		if err != nil {
			return errors.Annotate(err, "request failed")
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Annotate(err, "failed to read response body")
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			httpErr := &Error{StatusCode: resp.StatusCode, Body: string(data)}
			if resp.StatusCode >= 500 {
				return httpErr
			}
			return backoff.Permanent(httpErr)
		}
		if res != nil {
			if err := json.Unmarshal(data, res); err != nil {
				return backoff.Permanent(errors.Annotate(err, "failed to decode response body"))
			}
		}
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return errors.Annotate(err, "%s %s failed", method, u.Path)
	}
	return nil
}
