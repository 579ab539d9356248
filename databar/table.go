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

	"github.com/a-tsitanov/databar-go/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// Table is a handle of a remote databar table identified by its id.
type Table struct {
	id int
}

// NewTable creates a handle for the table with the given id. No network
// calls are made until a method is invoked.
func NewTable(id int) *Table {
	return &Table{id: id}
}

// ID of the remote table.
func (t *Table) ID() int { return t.id }

func (t *Table) rowsPath() string { return fmt.Sprintf("/tables/%d/rows", t.id) }

// Rows downloads the complete row set of the table in original order. The
// first page is fetched synchronously to learn the total row count, the
// remaining pages concurrently, and the result is reassembled in page-index
// order. The call fails if any page cannot be fetched or the assembled row
// count does not match the server-reported total; a truncated table is never
// returned silently.
func (t *Table) Rows(ctx context.Context) ([]RowRecord, error) {
	c, err := clientFrom(ctx, "Table.Rows")
	if err != nil {
		return nil, err
	}
	query := make(url.Values)
	query.Set("per_page", fmt.Sprintf("%d", c.perPage))
	var first rowsPage
	if err := c.get(ctx, t.rowsPath(), &first, query); err != nil {
		return nil, errors.Annotate(err, "failed to fetch the first page of table %d", t.id)
	}
	pages := planPages(first.TotalCount, len(first.Result), c.perPage)
	logging.Infof(ctx, "table %d: %d rows total, fetching %d more pages",
		t.id, first.TotalCount, len(pages))

	byPage := map[int][]pageRow{}
	if len(pages) > 0 {
		if byPage, err = fetchPages(ctx, c, t.rowsPath(), pages); err != nil {
			return nil, errors.Annotate(err, "failed to fetch pages of table %d", t.id)
		}
	}
	rows := make([]RowRecord, 0, first.TotalCount)
	for _, r := range first.Result {
		rows = append(rows, r.Data)
	}
	for _, p := range pages {
		for _, r := range byPage[p] {
			rows = append(rows, r.Data)
		}
	}
	if len(rows) != first.TotalCount {
		return nil, errors.Reason("table %d: assembled %d rows, server reported %d",
			t.id, len(rows), first.TotalCount)
	}
	return rows, nil
}

// Columns resolves the final flat column list of the table, expanding
// JSON-typed columns according to their expansion state.
func (t *Table) Columns(ctx context.Context) ([]string, error) {
	c, err := clientFrom(ctx, "Table.Columns")
	if err != nil {
		return nil, err
	}
	var declared []Column
	if err := c.get(ctx, fmt.Sprintf("/tables/%d/columns", t.id), &declared, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch columns of table %d", t.id)
	}
	var states map[string]fieldState
	if err := c.get(ctx, fmt.Sprintf("/tables/%d/fields", t.id), &states, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch field states of table %d", t.id)
	}
	return resolveColumns(declared, states), nil
}

// Materialize downloads the table and shapes it into a tabular container
// with the resolved column ordering.
func (t *Table) Materialize(ctx context.Context) (*table.Table, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to materialize table %d", t.id)
	}
	columns, err := t.Columns(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to materialize table %d", t.id)
	}
	records := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		records[i] = r
	}
	return table.FromRecords(columns, records), nil
}

// TotalCost returns the accumulated credit cost of the table.
func (t *Table) TotalCost(ctx context.Context) (float64, error) {
	c, err := clientFrom(ctx, "Table.TotalCost")
	if err != nil {
		return 0, err
	}
	var res struct {
		TotalCost float64 `json:"total_cost"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tables/%d", t.id), &res, nil); err != nil {
		return 0, errors.Annotate(err, "failed to fetch table %d", t.id)
	}
	return res.TotalCost, nil
}

// RequestStatus returns the status of the table's latest data request.
func (t *Table) RequestStatus(ctx context.Context) (Status, error) {
	c, err := clientFrom(ctx, "Table.RequestStatus")
	if err != nil {
		return "", err
	}
	var res struct {
		Status Status `json:"status"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tables/%d/request-status", t.id), &res, nil); err != nil {
		return "", errors.Annotate(err, "failed to fetch request status of table %d", t.id)
	}
	return res.Status, nil
}

// CancelRequest asks the server to cancel the table's in-flight data
// request. The server owns the transition; poll RequestStatus to observe it.
func (t *Table) CancelRequest(ctx context.Context) error {
	c, err := clientFrom(ctx, "Table.CancelRequest")
	if err != nil {
		return err
	}
	if err := c.post(ctx, fmt.Sprintf("/tables/%d/request-cancel", t.id), nil, nil); err != nil {
		return errors.Annotate(err, "failed to cancel the request of table %d", t.id)
	}
	return nil
}

// appendRequest is the JSON shape of an append-data call.
type appendRequest struct {
	Params        []RowRecord `json:"params"`
	RowsOrPages   int         `json:"rows_or_pages,omitempty"`
	Authorization int         `json:"authorization,omitempty"`
}

// AppendData requests another parameterized fetch appended to the table.
// Pagination and authorization are optional, 0 means the server default.
func (t *Table) AppendData(ctx context.Context, params RowRecord, pagination, authorization int) error {
	c, err := clientFrom(ctx, "Table.AppendData")
	if err != nil {
		return err
	}
	req := appendRequest{
		Params:        []RowRecord{params},
		RowsOrPages:   pagination,
		Authorization: authorization,
	}
	if err := c.post(ctx, fmt.Sprintf("/tables/%d/append-data", t.id), &req, nil); err != nil {
		return errors.Annotate(err, "failed to append data to table %d", t.id)
	}
	return nil
}
