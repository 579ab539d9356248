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

package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// TestServer is a mock HTTP server for tests, both of this package and of
// the packages built on top of it.
//
// By default, every request pops the next element of ResponseBody paired
// with the next element of ResponseStatus (200 when exhausted; the last body
// repeats). When ResponseFunc is set, it computes the response per request
// instead, which allows concurrent and page-dependent responses. The fields
// of the last received request are recorded for assertions.
type TestServer struct {
	ResponseBody   []string
	ResponseStatus []int
	ResponseFunc   func(r *http.Request) (status int, body string)

	RequestPath   string
	RequestQuery  url.Values
	RequestMethod string
	RequestBody   string
	RequestHeader http.Header

	mu       sync.Mutex
	requests int
	server   *httptest.Server
}

// NewTestServer creates and starts a new TestServer. Call Close() when done.
func NewTestServer() *TestServer {
	s := &TestServer{}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL of the server to be used as the API base URL in tests.
func (s *TestServer) URL() string { return s.server.URL }

// Client returns the HTTP client connected to the server, to be injected
// with UseClient().
func (s *TestServer) Client() *http.Client { return s.server.Client() }

// Requests returns the number of requests received so far.
func (s *TestServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Close shuts the server down.
func (s *TestServer) Close() { s.server.Close() }

func (s *TestServer) handle(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.RequestPath = r.URL.Path
	s.RequestQuery = r.URL.Query()
	s.RequestMethod = r.Method
	s.RequestBody = string(data)
	s.RequestHeader = r.Header.Clone()
	i := s.requests
	s.requests++
	f := s.ResponseFunc
	status := http.StatusOK
	if i < len(s.ResponseStatus) {
		status = s.ResponseStatus[i]
	}
	body := "{}"
	if len(s.ResponseBody) > 0 {
		k := i
		if k >= len(s.ResponseBody) {
			k = len(s.ResponseBody) - 1
		}
		body = s.ResponseBody[k]
	}
	s.mu.Unlock()

	// ResponseFunc runs outside the lock, so it may block to simulate slow
	// pages without serializing concurrent requests.
	if f != nil {
		status, body = f(r)
	}
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}
