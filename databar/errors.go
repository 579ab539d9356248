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
	"fmt"

	"github.com/stockparfait/errors"
)

// Failure classes distinguishable with errors.Is(). Transport failures
// surface as *api.Error wrapped in the returned error chain.
var (
	// ErrSchemaMismatch: an enrichment mapping references a column absent from
	// the input rows.
	ErrSchemaMismatch = errors.Reason("mapping references a column missing from the input rows")

	// ErrDuplicateMapping: two enrichment parameters map to the same column.
	ErrDuplicateMapping = errors.Reason("multiple parameters map to the same column")

	// ErrIncompletePage: a planned table page could not be fetched; the whole
	// table read is aborted, no partial table is returned.
	ErrIncompletePage = errors.Reason("failed to fetch a planned page")

	// ErrJobNotFinished: job results were requested before the job reached
	// a result-bearing status.
	ErrJobNotFinished = errors.Reason("job results are not available until the job completes")

	// ErrJobNotFailed: failure details were requested for a job that did not
	// fail.
	ErrJobNotFailed = errors.Reason("failure details are only available for a failed job")

	// ErrUnknownJobStatus: the server reported a status this client does not
	// recognize; it is never silently treated as success or failure.
	ErrUnknownJobStatus = errors.Reason("job reported an unrecognized status")
)

// JobFailedError reports a terminally failed job together with the per-row
// diagnostic records retrieved from the server.
type JobFailedError struct {
	ID     string      // job identifier
	Detail []RowRecord // diagnostic rows for user display
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed with %d diagnostic rows", e.ID, len(e.Detail))
}
