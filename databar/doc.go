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

// Package databar implements the client for the databar.ai tabular-data API.
//
// A table is downloaded page by page: the first page reports the total row
// count, the remaining pages are fetched concurrently by a bounded worker
// pool and reassembled in page-index order, so the resulting row sequence is
// deterministic regardless of response arrival order. Columns of JSON type
// may be expanded server-side into nested sub-columns; the client resolves
// the declared columns into the final flat column list.
//
// Enrichment submits the caller's rows as an asynchronous server job. Each
// outgoing row carries a synthetic correlation id equal to its position in
// the input, the job is polled with exponential backoff until it reaches a
// terminal status, and per-row results are joined back by correlation id -
// never by the order of the returned payload.
//
// The client is injected into the context with UseClient() and carries the
// API key; the underlying HTTP transport comes from the api package.
package databar
