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

package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCache(t *testing.T) {
	t.Parallel()

	Convey("Save and Load round-trip a table", t, func() {
		tmpdir, tmpdirErr := os.MkdirTemp("", "test_cache")
		So(tmpdirErr, ShouldBeNil)
		defer os.RemoveAll(tmpdir)

		columns := []string{"name", "count"}
		rows := []map[string]interface{}{
			{"name": "one", "count": 1.0},
			{"name": "two", "count": 2.0},
		}

		Convey("saved table loads back", func() {
			dir := filepath.Join(tmpdir, "nested") // Save must create it
			So(Save(dir, 42, columns, rows), ShouldBeNil)
			ct, err := Load(dir, 42)
			So(err, ShouldBeNil)
			So(ct.TableID, ShouldEqual, 42)
			So(ct.FetchedAt.IsZero(), ShouldBeFalse)
			So(ct.Columns, ShouldResemble, columns)
			So(ct.Rows, ShouldResemble, rows)
		})

		Convey("tables are cached per id", func() {
			So(Save(tmpdir, 1, columns, rows), ShouldBeNil)
			So(Save(tmpdir, 2, []string{"other"}, nil), ShouldBeNil)
			ct, err := Load(tmpdir, 2)
			So(err, ShouldBeNil)
			So(ct.Columns, ShouldResemble, []string{"other"})
		})

		Convey("missing entry reports os.ErrNotExist", func() {
			_, err := Load(tmpdir, 13)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})
	})
}
