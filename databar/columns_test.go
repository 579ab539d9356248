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
	"net/http"
	"testing"

	"github.com/a-tsitanov/databar-go/api"

	. "github.com/smartystreets/goconvey/convey"
)

func TestColumns(t *testing.T) {
	states := map[string]fieldState{
		"meta":     {CanExpand: true, IsExpanded: true},
		"meta.a":   {CanExpand: true, IsExpanded: true, Parent: "meta"},
		"meta.a.x": {Parent: "meta.a"},
		"meta.a.y": {Parent: "meta.a"},
		"meta.b":   {Parent: "meta"},
		"raw":      {CanExpand: true, IsExpanded: false},
	}

	Convey("expandColumn", t, func() {
		Convey("resolves nested children recursively and sorted", func() {
			So(expandColumn("meta", states), ShouldResemble,
				[]string{"meta.a.x", "meta.a.y", "meta.b"})
		})

		Convey("an unexpanded column resolves to itself", func() {
			So(expandColumn("raw", states), ShouldResemble, []string{"raw"})
		})

		Convey("a column without state resolves to itself", func() {
			So(expandColumn("name", states), ShouldResemble, []string{"name"})
		})
	})

	Convey("resolveColumns", t, func() {
		declared := []Column{
			{Name: "name", Type: "text"},
			{Name: "meta", Type: "json"},
			{Name: "raw", Type: "json"},
		}
		So(resolveColumns(declared, states), ShouldResemble,
			[]string{"name", "meta.a.x", "meta.a.y", "meta.b", "raw"})
	})

	Convey("Table.Columns", t, func() {
		server := api.NewTestServer()
		defer server.Close()
		ctx := testContext(server, Options{})

		server.ResponseFunc = func(r *http.Request) (int, string) {
			switch r.URL.Path {
			case "/tables/7/columns":
				return 200, `[
					{"internal_name": "name", "type_of_value": "text"},
					{"internal_name": "meta", "type_of_value": "json"}
				]`
			case "/tables/7/fields":
				return 200, `{
					"meta":     {"can_expand": true, "is_expanded": true},
					"meta.a":   {"can_expand": true, "is_expanded": true, "parent": "meta"},
					"meta.a.x": {"parent": "meta.a"},
					"meta.a.y": {"parent": "meta.a"},
					"meta.b":   {"parent": "meta"}
				}`
			}
			return 404, "unexpected path"
		}
		columns, err := NewTable(7).Columns(ctx)
		So(err, ShouldBeNil)
		So(columns, ShouldResemble, []string{"name", "meta.a.x", "meta.a.y", "meta.b"})
	})
}
