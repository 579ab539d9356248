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

// Package cache stores materialized tables on disk, one JSON file per table
// id, so repeated CLI invocations don't re-download unchanged tables.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stockparfait/errors"
)

// CachedTable is the on-disk representation of a materialized table.
type CachedTable struct {
	TableID   int                      `json:"table_id"`
	FetchedAt time.Time                `json:"fetched_at"`
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
}

func fileName(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("table-%d.json", id))
}

// Save writes the materialized table to dir, creating it as needed.
func Save(dir string, id int, columns []string, rows []map[string]interface{}) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Annotate(err, "failed to create cache directory '%s'", dir)
	}
	ct := CachedTable{
		TableID:   id,
		FetchedAt: time.Now().UTC(),
		Columns:   columns,
		Rows:      rows,
	}
	name := fileName(dir, id)
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", name)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(&ct); err != nil {
		return errors.Annotate(err, "failed to write to '%s'", name)
	}
	return nil
}

// Load reads the cached table for id from dir. A missing cache entry is
// reported as an error satisfying errors.Is(err, os.ErrNotExist).
func Load(dir string, id int) (*CachedTable, error) {
	name := fileName(dir, id)
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open file for reading: '%s'", name)
	}
	defer f.Close()
	var ct CachedTable
	dec := json.NewDecoder(f)
	if err := dec.Decode(&ct); err != nil {
		return nil, errors.Annotate(err, "failed to read from '%s'", name)
	}
	return &ct, nil
}
