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
	"bytes"
	"net/http"
	"testing"

	"github.com/a-tsitanov/databar-go/api"
	"github.com/a-tsitanov/databar-go/table"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	Convey("Table operations", t, func() {
		server := api.NewTestServer()
		defer server.Close()
		ctx := testContext(server, Options{})
		tbl := NewTable(7)

		So(tbl.ID(), ShouldEqual, 7)

		Convey("Materialize shapes rows into resolved columns", func() {
			server.ResponseFunc = func(r *http.Request) (int, string) {
				switch r.URL.Path {
				case "/tables/7/rows":
					return 200, `{"total_count": 2, "result": [
						{"data": {"name": "one", "count": 1}},
						{"data": {"name": "two", "count": 2}}
					]}`
				case "/tables/7/columns":
					return 200, `[
						{"internal_name": "name", "type_of_value": "text"},
						{"internal_name": "count", "type_of_value": "number"}
					]`
				case "/tables/7/fields":
					return 200, `{}`
				}
				return 404, "unexpected path"
			}
			mt, err := tbl.Materialize(ctx)
			So(err, ShouldBeNil)
			So(mt.Header, ShouldResemble, []string{"name", "count"})
			var buf bytes.Buffer
			So(mt.WriteCSV(&buf, table.Params{}), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
name,count
one,1
two,2
`)
		})

		Convey("TotalCost", func() {
			server.ResponseBody = []string{`{"total_cost": 3.5}`}
			cost, err := tbl.TotalCost(ctx)
			So(err, ShouldBeNil)
			So(cost, ShouldEqual, 3.5)
			So(server.RequestPath, ShouldEqual, "/tables/7")
		})

		Convey("RequestStatus", func() {
			server.ResponseBody = []string{`{"status": "processing"}`}
			status, err := tbl.RequestStatus(ctx)
			So(err, ShouldBeNil)
			So(status, ShouldEqual, StatusProcessing)
			So(server.RequestPath, ShouldEqual, "/tables/7/request-status")
		})

		Convey("CancelRequest", func() {
			So(tbl.CancelRequest(ctx), ShouldBeNil)
			So(server.RequestMethod, ShouldEqual, "POST")
			So(server.RequestPath, ShouldEqual, "/tables/7/request-cancel")
		})

		Convey("AppendData", func() {
			So(tbl.AppendData(ctx, RowRecord{"query": "oslo"}, 10, 0), ShouldBeNil)
			So(server.RequestMethod, ShouldEqual, "POST")
			So(server.RequestPath, ShouldEqual, "/tables/7/append-data")
			So(server.RequestBody, ShouldEqual,
				`{"params":[{"query":"oslo"}],"rows_or_pages":10}`)
		})
	})
}
