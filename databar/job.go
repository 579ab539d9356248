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
	"strconv"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// Status of an asynchronous job as reported by the server.
type Status string

// Values of Status. A job starts as submitted, moves to processing, and ends
// in exactly one of the terminal statuses. Cancelled is reported after an
// accepted cancel request.
const (
	StatusSubmitted          = Status("submitted")
	StatusProcessing         = Status("processing")
	StatusPartiallyCompleted = Status("partially_completed")
	StatusCompleted          = Status("completed")
	StatusFailed             = Status("failed")
	StatusCancelled          = Status("cancelled")
)

// Terminal indicates that the job will make no further progress. Any status
// other than submitted and processing is considered terminal, including ones
// unknown to this client.
func (s Status) Terminal() bool {
	return s != StatusSubmitted && s != StatusProcessing
}

// hasData indicates that per-row results can be retrieved.
func (s Status) hasData() bool {
	return s == StatusCompleted || s == StatusPartiallyCompleted
}

// CorrelationID identifies a submitted row within a single job. It is
// assigned by the client as the row's zero-based position in the input, so
// the join of results onto inputs is always invertible.
type CorrelationID int

// correlationField is the reserved field name under which the correlation id
// travels to the server and back.
const correlationField = "__eid"

// Submission is an outgoing batch of parameterized rows for an asynchronous
// job. Every row must already carry its correlation id.
type Submission struct {
	Dataset       int         // id of the dataset (endpoint) to run the rows against
	Rows          []RowRecord // parameter rows, each annotated with a correlation id
	Pagination    int         // rows or pages fetched per row; 0 = server default
	Authorization int         // id of a stored third-party API key; 0 = none
}

// createRequest is the JSON shape of a job submission.
type createRequest struct {
	Source        string      `json:"source_request"`
	RowsParams    []RowRecord `json:"rows_params"`
	RowsOrPages   int         `json:"rows_or_pages,omitempty"`
	Authorization int         `json:"authorization,omitempty"`
	Dataset       int         `json:"dataset"`
}

// jobState is the JSON shape of submission and poll responses.
type jobState struct {
	Identifier string `json:"identifier"`
	Status     Status `json:"status"`
}

// JobResult maps correlation ids to result rows. A submitted row may produce
// zero records (it failed independently) or several (it fanned out).
type JobResult map[CorrelationID][]RowRecord

// Job is a handle of a submitted asynchronous job. Status is mutated only by
// polling and is trustworthy once terminal.
type Job struct {
	ID     string
	Status Status
}

// Poll schedule for Job.Wait(). The package-level settings may be
// overwritten before waiting; PollMaxElapsedTime = 0 waits indefinitely
// (bound it with the context instead).
var (
	PollInitialInterval = 500 * time.Millisecond
	PollMaxInterval     = 10 * time.Second
	PollMaxElapsedTime  = 15 * time.Minute
)

// SubmitJob posts the batch and returns a handle with the initial status
// from the response.
func SubmitJob(ctx context.Context, s *Submission) (*Job, error) {
	c, err := clientFrom(ctx, "SubmitJob")
	if err != nil {
		return nil, err
	}
	req := createRequest{
		Source:        "go-sdk",
		RowsParams:    s.Rows,
		RowsOrPages:   s.Pagination,
		Authorization: s.Authorization,
		Dataset:       s.Dataset,
	}
	var st jobState
	if err := c.post(ctx, "/request/create", &req, &st); err != nil {
		return nil, errors.Annotate(err, "failed to submit a job with %d rows", len(s.Rows))
	}
	logging.Infof(ctx, "submitted job %s with %d rows, status: %s",
		st.Identifier, len(s.Rows), st.Status)
	return &Job{ID: st.Identifier, Status: st.Status}, nil
}

// Poll issues a single status check and updates the handle. The caller owns
// the retry loop; most callers want Wait() instead.
func (j *Job) Poll(ctx context.Context) error {
	c, err := clientFrom(ctx, "Job.Poll")
	if err != nil {
		return err
	}
	var st jobState
	if err := c.get(ctx, "/request/"+j.ID, &st, nil); err != nil {
		return errors.Annotate(err, "failed to poll job %s", j.ID)
	}
	j.Status = st.Status
	return nil
}

// Wait polls the job with exponential backoff until it reaches a terminal
// status, the poll schedule's max. elapsed time runs out, or the context is
// cancelled. A terminal status is not an error; inspect j.Status.
func (j *Job) Wait(ctx context.Context) error {
	op := func() error {
		if err := j.Poll(ctx); err != nil {
			return backoff.Permanent(err)
		}
		if !j.Status.Terminal() {
			logging.Debugf(ctx, "job %s is %s, waiting", j.ID, j.Status)
			return errors.Reason("job %s is still %s", j.ID, j.Status)
		}
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = PollInitialInterval
	b.MaxInterval = PollMaxInterval
	b.MaxElapsedTime = PollMaxElapsedTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return errors.Annotate(err, "gave up waiting for job %s", j.ID)
	}
	return nil
}

// Result retrieves the per-row output of a completed or partially completed
// job, keyed by correlation id. Calling it in any other status is a contract
// violation and fails fast without a network call. Result keys unknown to
// this client (non-numeric) are logged and skipped.
func (j *Job) Result(ctx context.Context) (JobResult, error) {
	if !j.Status.hasData() {
		return nil, errors.Annotate(ErrJobNotFinished, "job %s status is %q", j.ID, j.Status)
	}
	c, err := clientFrom(ctx, "Job.Result")
	if err != nil {
		return nil, err
	}
	var raw map[string][]RowRecord
	if err := c.get(ctx, "/request/"+j.ID+"/data", &raw, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch results of job %s", j.ID)
	}
	res := make(JobResult, len(raw))
	for k, rows := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			logging.Warningf(ctx, "job %s returned a malformed correlation id %q, skipping", j.ID, k)
			continue
		}
		res[CorrelationID(id)] = rows
	}
	return res, nil
}

// FailureDetail retrieves the diagnostic records of a failed job for user
// display. Calling it in any other status fails fast without a network call.
func (j *Job) FailureDetail(ctx context.Context) ([]RowRecord, error) {
	if j.Status != StatusFailed {
		return nil, errors.Annotate(ErrJobNotFailed, "job %s status is %q", j.ID, j.Status)
	}
	c, err := clientFrom(ctx, "Job.FailureDetail")
	if err != nil {
		return nil, err
	}
	var raw map[string][]RowRecord
	if err := c.get(ctx, "/request/"+j.ID+"/meta", &raw, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch failure details of job %s", j.ID)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var detail []RowRecord
	for _, k := range keys {
		detail = append(detail, raw[k]...)
	}
	return detail, nil
}

// Cancel requests cancellation of the job. The server owns the transition:
// once accepted, subsequent polls observe a terminal or cancelled status.
func (j *Job) Cancel(ctx context.Context) error {
	c, err := clientFrom(ctx, "Job.Cancel")
	if err != nil {
		return err
	}
	if err := c.post(ctx, "/request/"+j.ID+"/cancel", nil, nil); err != nil {
		return errors.Annotate(err, "failed to cancel job %s", j.ID)
	}
	return nil
}
