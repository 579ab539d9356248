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

package table

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type testRow struct {
	City    string
	Country string
}

func (r testRow) CSV() []string { return []string{r.City, r.Country} }

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("Table methods work", t, func() {
		tbl := NewTable("City", "Country")
		headless := NewTable()

		So(tbl.Header, ShouldResemble, []string{"City", "Country"})
		tbl.AddRow(testRow{"Reykjavik", "Iceland"}, testRow{"Oslo", "Norway"})
		headless.AddRow(testRow{"Reykjavik", "Iceland"}, testRow{"Oslo", "Norway"})

		Convey("AddRow worked", func() {
			So(len(tbl.Rows), ShouldEqual, 2)
			So(len(headless.Rows), ShouldEqual, 2)
		})

		Convey("WriteCSV", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(tbl.WriteCSV(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
City,Country
Reykjavik,Iceland
Oslo,Norway
`)
			})

			Convey("Limited rows, no header", func() {
				var buf bytes.Buffer
				So(tbl.WriteCSV(&buf, Params{Rows: 1, NoHeader: true}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Reykjavik,Iceland
`)
			})
		})

		Convey("WriteText", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(tbl.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
     City | Country
--------- | -------
Reykjavik | Iceland
     Oslo |  Norway
`)
			})

			Convey("Headless", func() {
				var buf bytes.Buffer
				So(headless.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Reykjavik | Iceland
     Oslo |  Norway
`)
			})

			Convey("Limited rows and width, no header", func() {
				var buf bytes.Buffer
				So(tbl.WriteText(&buf, Params{Rows: 1, NoHeader: true, MaxColWidth: 5}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Rey.. | Ice..
`)
			})
		})

		Convey("FromRecords", func() {
			records := []map[string]interface{}{
				{"name": "one", "count": 2.0, "tags": []interface{}{"a", "b"}},
				{"name": "two", "active": true},
			}
			rt := FromRecords([]string{"name", "count", "active", "tags"}, records)
			So(rt.Header, ShouldResemble, []string{"name", "count", "active", "tags"})
			So(len(rt.Rows), ShouldEqual, 2)
			So(rt.Rows[0].CSV(), ShouldResemble, []string{"one", "2", "", `["a","b"]`})
			So(rt.Rows[1].CSV(), ShouldResemble, []string{"two", "", "true", ""})
		})
	})
}
