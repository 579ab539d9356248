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
	"sort"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// FieldMapping maps a remote dataset parameter name to a column of the
// caller's rows.
type FieldMapping map[string]string

// EnrichOptions are optional settings of an enrichment job.
type EnrichOptions struct {
	Pagination    int // rows or pages fetched per input row; 0 = server default
	Authorization int // id of a stored third-party API key; 0 = none
}

// Suffixes appended to column names when a result field collides with a
// caller's column, mirroring a two-sided join.
const (
	callerSuffix = "_caller"
	otherSuffix  = "_other"
)

// prepareSubmission projects the rows to the mapped columns, renames them to
// the remote parameter names and annotates each row with its correlation id
// (the zero-based input position). Fails with ErrDuplicateMapping when two
// parameters reference one column, and with ErrSchemaMismatch when a mapped
// column is missing from a row - both before any network call.
func prepareSubmission(rows []RowRecord, mapping FieldMapping) ([]RowRecord, error) {
	used := make(map[string]string, len(mapping)) // column -> parameter
	for param, column := range mapping {
		if prev, ok := used[column]; ok {
			a, b := prev, param
			if a > b {
				a, b = b, a
			}
			return nil, errors.Annotate(ErrDuplicateMapping,
				"parameters %q and %q both reference column %q", a, b, column)
		}
		used[column] = param
	}
	out := make([]RowRecord, len(rows))
	for i, row := range rows {
		p := make(RowRecord, len(mapping)+1)
		for param, column := range mapping {
			v, ok := row[column]
			if !ok {
				return nil, errors.Annotate(ErrSchemaMismatch,
					"row %d has no column %q referenced by parameter %q", i, column, param)
			}
			p[param] = v
		}
		p[correlationField] = i
		out[i] = p
	}
	return out, nil
}

// reconcile joins the job results back onto the original rows by correlation
// id only, never by the order of the returned payload. Column names present
// on both sides are suffixed _caller / _other uniformly across the batch.
// Rows with no result keep only their original fields. The output has
// exactly the length and order of rows for any result, including an empty
// one; result ids outside the submitted range are logged and ignored.
func reconcile(ctx context.Context, rows []RowRecord, result JobResult) []RowRecord {
	original := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			original[col] = true
		}
	}
	collide := make(map[string]bool)
	for id, records := range result {
		if int(id) < 0 || int(id) >= len(rows) {
			logging.Warningf(ctx, "result contains unknown correlation id %d, ignoring", id)
			continue
		}
		for _, rec := range records {
			for col := range rec {
				if col != correlationField && original[col] {
					collide[col] = true
				}
			}
		}
	}
	out := make([]RowRecord, len(rows))
	for i, row := range rows {
		merged := make(RowRecord, len(row))
		for col, v := range row {
			if collide[col] {
				merged[col+callerSuffix] = v
			} else {
				merged[col] = v
			}
		}
		records := result[CorrelationID(i)]
		if len(records) > 1 {
			logging.Warningf(ctx, "correlation id %d has %d result records, joining the first",
				i, len(records))
		}
		if len(records) > 0 {
			for col, v := range records[0] {
				if col == correlationField {
					continue
				}
				if collide[col] {
					merged[col+otherSuffix] = v
				} else {
					merged[col] = v
				}
			}
		}
		out[i] = merged
	}
	return out
}

// Enrich runs the rows through the dataset as an asynchronous job and joins
// the per-row results back onto them. The output preserves the input row
// count and order; rows the job could not process keep their original fields
// only. An empty input returns immediately without contacting the server. A
// terminally failed job is reported as *JobFailedError carrying the per-row
// diagnostics.
func Enrich(ctx context.Context, rows []RowRecord, dataset int, mapping FieldMapping, opts EnrichOptions) ([]RowRecord, error) {
	if len(rows) == 0 {
		return []RowRecord{}, nil
	}
	params, err := prepareSubmission(rows, mapping)
	if err != nil {
		return nil, errors.Annotate(err, "invalid enrichment input")
	}
	job, err := SubmitJob(ctx, &Submission{
		Dataset:       dataset,
		Rows:          params,
		Pagination:    opts.Pagination,
		Authorization: opts.Authorization,
	})
	if err != nil {
		return nil, errors.Annotate(err, "failed to submit the enrichment job")
	}
	if err := job.Wait(ctx); err != nil {
		return nil, errors.Annotate(err, "failed to await the enrichment job")
	}
	switch {
	case job.Status.hasData():
		result, err := job.Result(ctx)
		if err != nil {
			return nil, errors.Annotate(err, "failed to fetch enrichment results")
		}
		return reconcile(ctx, rows, result), nil
	case job.Status == StatusFailed:
		detail, err := job.FailureDetail(ctx)
		if err != nil {
			return nil, errors.Annotate(err,
				"job %s failed, and its failure details are unavailable", job.ID)
		}
		return nil, &JobFailedError{ID: job.ID, Detail: detail}
	default:
		return nil, errors.Annotate(ErrUnknownJobStatus, "job %s finished as %q", job.ID, job.Status)
	}
}

// Request runs a single parameterized request against the dataset, awaits it
// and returns the flattened result rows in correlation-id order. It is the
// one-off counterpart of Enrich for callers with no row set to join back
// onto.
func Request(ctx context.Context, dataset int, params RowRecord, opts EnrichOptions) ([]RowRecord, error) {
	row := make(RowRecord, len(params)+1)
	for k, v := range params {
		row[k] = v
	}
	row[correlationField] = 0
	job, err := SubmitJob(ctx, &Submission{
		Dataset:       dataset,
		Rows:          []RowRecord{row},
		Pagination:    opts.Pagination,
		Authorization: opts.Authorization,
	})
	if err != nil {
		return nil, errors.Annotate(err, "failed to submit the request")
	}
	if err := job.Wait(ctx); err != nil {
		return nil, errors.Annotate(err, "failed to await the request")
	}
	switch {
	case job.Status.hasData():
		result, err := job.Result(ctx)
		if err != nil {
			return nil, errors.Annotate(err, "failed to fetch the request results")
		}
		ids := make([]int, 0, len(result))
		for id := range result {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		var rows []RowRecord
		for _, id := range ids {
			rows = append(rows, result[CorrelationID(id)]...)
		}
		return rows, nil
	case job.Status == StatusFailed:
		detail, err := job.FailureDetail(ctx)
		if err != nil {
			return nil, errors.Annotate(err,
				"job %s failed, and its failure details are unavailable", job.ID)
		}
		return nil, &JobFailedError{ID: job.ID, Detail: detail}
	default:
		return nil, errors.Annotate(ErrUnknownJobStatus, "job %s finished as %q", job.ID, job.Status)
	}
}
