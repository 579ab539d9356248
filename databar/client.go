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

package databar

import (
	"context"
	"net/http"
	"net/url"

	"github.com/a-tsitanov/databar-go/api"
	"github.com/stockparfait/errors"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new client.
var URL = "https://databar.ai/api/v3"

const (
	defaultPerPage  = 50
	defaultParallel = 10
)

// Options are optional settings of a Client.
type Options struct {
	PerPage  int // rows per page when reading tables; default 50
	Parallel int // max. concurrent page fetches; default 10
}

// Client for querying databar tables and enrichment jobs.
type Client struct {
	baseURL  string // the base URL of the server
	apiKey   string // your very own secret key
	perPage  int
	parallel int
}

// newClient creates a new client.
func newClient(baseURL, apiKey string, opts Options) *Client {
	if opts.PerPage <= 0 {
		opts.PerPage = defaultPerPage
	}
	if opts.Parallel <= 0 {
		opts.Parallel = defaultParallel
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		perPage:  opts.PerPage,
		parallel: opts.Parallel,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client with default options based on the API key
// and injects it into the context.
func UseClient(ctx context.Context, apiKey string) context.Context {
	return UseClientOptions(ctx, apiKey, Options{})
}

// UseClientOptions is UseClient with explicit options.
func UseClientOptions(ctx context.Context, apiKey string, opts Options) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, apiKey, opts))
}

// clientFrom extracts the client from the context for the named operation.
func clientFrom(ctx context.Context, op string) (*Client, error) {
	c := GetClient(ctx)
	if c == nil {
		return nil, errors.Reason("%s: no client in context", op)
	}
	return c, nil
}

func (c *Client) header() http.Header {
	h := make(http.Header)
	h.Set("X-APIKey", c.apiKey)
	return h
}

func (c *Client) get(ctx context.Context, path string, res interface{}, query url.Values) error {
	return api.GetJSON(ctx, c.baseURL+path, res, query, c.header())
}

func (c *Client) post(ctx context.Context, path string, req, res interface{}) error {
	return api.PostJSON(ctx, c.baseURL+path, req, res, c.header())
}

// PlanInfo describes the account plan: remaining credits, storage and the
// number of created tables.
type PlanInfo struct {
	Credits      float64 `json:"credits"`
	UsedStorage  int64   `json:"used_storage"`
	TotalStorage int64   `json:"total_storage"`
	TablesCount  int     `json:"tables_count"`
}

// FetchPlanInfo obtains the account plan summary.
func FetchPlanInfo(ctx context.Context) (*PlanInfo, error) {
	c, err := clientFrom(ctx, "FetchPlanInfo")
	if err != nil {
		return nil, err
	}
	var pi PlanInfo
	if err := c.get(ctx, "/users/plan-info", &pi, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch plan info")
	}
	return &pi, nil
}
