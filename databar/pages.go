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
	"fmt"
	"net/url"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
)

// Value is an arbitrary value of a table cell.
type Value = interface{}

// RowRecord maps column names to cell values. Its identity within a table is
// its position only.
type RowRecord map[string]Value

// pageRow is a single entry of a rows page; the actual record is nested
// under "data".
type pageRow struct {
	Data RowRecord `json:"data"`
}

// rowsPage is the format of one page of table rows.
type rowsPage struct {
	TotalCount int       `json:"total_count"`
	Result     []pageRow `json:"result"`
}

// planPages computes the page indices still needed after the first page has
// been fetched: `fetched` of `total` rows are in hand, the rest comes in
// pages of `perPage` rows numbered from 2. The result is contiguous and
// duplicate-free.
func planPages(total, fetched, perPage int) []int {
	remaining := total - fetched
	if remaining <= 0 || perPage <= 0 {
		return nil
	}
	count := (remaining + perPage - 1) / perPage
	pages := make([]int, count)
	for i := range pages {
		pages[i] = i + 2
	}
	return pages
}

// pageResult is the outcome of fetching a single page.
type pageResult struct {
	page int
	rows []pageRow
	err  error
}

// fetchPages downloads the given pages concurrently with at most c.parallel
// requests in flight, and returns them keyed by page index. Any page failure
// fails the whole fetch; there is no partial success at this layer.
func fetchPages(ctx context.Context, c *Client, rowsPath string, pages []int) (map[int][]pageRow, error) {
	fetch := func(page int) pageResult {
		query := make(url.Values)
		query.Set("per_page", fmt.Sprintf("%d", c.perPage))
		query.Set("page", fmt.Sprintf("%d", page))
		var p rowsPage
		if err := c.get(ctx, rowsPath, &p, query); err != nil {
			return pageResult{page: page, err: err}
		}
		return pageResult{page: page, rows: p.Result}
	}
	pm := iterator.ParallelMap(ctx, c.parallel, iterator.FromSlice(pages), fetch)
	defer pm.Close()

	results := iterator.Reduce[pageResult, []pageResult](pm, []pageResult{},
		func(r pageResult, acc []pageResult) []pageResult {
			return append(acc, r)
		})

	byPage := make(map[int][]pageRow, len(results))
	for _, r := range results {
		if r.err != nil {
			return nil, errors.Annotate(ErrIncompletePage,
				"page %d: %s", r.page, r.err.Error())
		}
		byPage[r.page] = r.rows
	}
	for _, p := range pages {
		if _, ok := byPage[p]; !ok {
			return nil, errors.Annotate(ErrIncompletePage, "page %d was never fetched", p)
		}
	}
	return byPage, nil
}
