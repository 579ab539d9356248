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
	"errors"
	"testing"
	"time"

	"github.com/a-tsitanov/databar-go/api"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJob(t *testing.T) {
	Convey("Asynchronous jobs", t, func() {
		server := api.NewTestServer()
		defer server.Close()
		ctx := testContext(server, Options{})

		savedPoll := PollInitialInterval
		PollInitialInterval = time.Millisecond
		defer func() { PollInitialInterval = savedPoll }()

		Convey("Terminal statuses", func() {
			So(StatusSubmitted.Terminal(), ShouldBeFalse)
			So(StatusProcessing.Terminal(), ShouldBeFalse)
			So(StatusCompleted.Terminal(), ShouldBeTrue)
			So(StatusPartiallyCompleted.Terminal(), ShouldBeTrue)
			So(StatusFailed.Terminal(), ShouldBeTrue)
			So(StatusCancelled.Terminal(), ShouldBeTrue)
			So(Status("anything else").Terminal(), ShouldBeTrue)
		})

		Convey("SubmitJob posts the batch", func() {
			server.ResponseBody = []string{`{"identifier": "j1", "status": "submitted"}`}
			job, err := SubmitJob(ctx, &Submission{
				Dataset: 9,
				Rows:    []RowRecord{{correlationField: 0, "q": "x"}},
			})
			So(err, ShouldBeNil)
			So(job, ShouldResemble, &Job{ID: "j1", Status: StatusSubmitted})
			So(server.RequestMethod, ShouldEqual, "POST")
			So(server.RequestPath, ShouldEqual, "/request/create")
			So(server.RequestBody, ShouldEqual,
				`{"source_request":"go-sdk","rows_params":[{"__eid":0,"q":"x"}],"dataset":9}`)
		})

		Convey("Poll updates the status", func() {
			server.ResponseBody = []string{`{"identifier": "j1", "status": "processing"}`}
			job := &Job{ID: "j1", Status: StatusSubmitted}
			So(job.Poll(ctx), ShouldBeNil)
			So(job.Status, ShouldEqual, StatusProcessing)
			So(server.RequestPath, ShouldEqual, "/request/j1")
		})

		Convey("Wait polls until a terminal status", func() {
			server.ResponseBody = []string{
				`{"identifier": "j1", "status": "processing"}`,
				`{"identifier": "j1", "status": "processing"}`,
				`{"identifier": "j1", "status": "completed"}`,
			}
			job := &Job{ID: "j1", Status: StatusSubmitted}
			So(job.Wait(ctx), ShouldBeNil)
			So(job.Status, ShouldEqual, StatusCompleted)
			So(server.Requests(), ShouldEqual, 3)
		})

		Convey("Wait respects context cancellation", func() {
			server.ResponseBody = []string{`{"identifier": "j1", "status": "processing"}`}
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			job := &Job{ID: "j1", Status: StatusSubmitted}
			So(job.Wait(cancelled), ShouldNotBeNil)
		})

		Convey("Result", func() {
			Convey("fails fast before completion", func() {
				job := &Job{ID: "j1", Status: StatusProcessing}
				_, err := job.Result(ctx)
				So(errors.Is(err, ErrJobNotFinished), ShouldBeTrue)
				So(server.Requests(), ShouldEqual, 0)
			})

			Convey("keys results by correlation id", func() {
				server.ResponseBody = []string{`{
					"0": [{"v": "a"}],
					"2": [{"v": "b"}, {"v": "c"}],
					"bogus": [{"v": "dropped"}]
				}`}
				job := &Job{ID: "j1", Status: StatusPartiallyCompleted}
				res, err := job.Result(ctx)
				So(err, ShouldBeNil)
				So(res, ShouldResemble, JobResult{
					0: []RowRecord{{"v": "a"}},
					2: []RowRecord{{"v": "b"}, {"v": "c"}},
				})
				So(server.RequestPath, ShouldEqual, "/request/j1/data")
			})
		})

		Convey("FailureDetail", func() {
			Convey("fails fast unless the job failed", func() {
				job := &Job{ID: "j1", Status: StatusCompleted}
				_, err := job.FailureDetail(ctx)
				So(errors.Is(err, ErrJobNotFailed), ShouldBeTrue)
				So(server.Requests(), ShouldEqual, 0)
			})

			Convey("flattens the diagnostics in key order", func() {
				server.ResponseBody = []string{`{
					"1": [{"reason": "quota"}],
					"0": [{"reason": "bad input"}]
				}`}
				job := &Job{ID: "j1", Status: StatusFailed}
				detail, err := job.FailureDetail(ctx)
				So(err, ShouldBeNil)
				So(detail, ShouldResemble, []RowRecord{
					{"reason": "bad input"},
					{"reason": "quota"},
				})
				So(server.RequestPath, ShouldEqual, "/request/j1/meta")
			})
		})

		Convey("Cancel posts the cancellation", func() {
			job := &Job{ID: "j1", Status: StatusProcessing}
			So(job.Cancel(ctx), ShouldBeNil)
			So(server.RequestMethod, ShouldEqual, "POST")
			So(server.RequestPath, ShouldEqual, "/request/j1/cancel")
		})
	})
}
