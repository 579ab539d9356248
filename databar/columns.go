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
	"sort"
	"strings"
)

// Column is a declared table column.
type Column struct {
	Name string `json:"internal_name"`
	Type string `json:"type_of_value"`
}

// fieldState is the expansion state of a JSON-typed column: whether it can
// be, and currently is, expanded into named sub-columns, and which column it
// is a direct child of.
type fieldState struct {
	CanExpand  bool   `json:"can_expand"`
	IsExpanded bool   `json:"is_expanded"`
	Parent     string `json:"parent"`
}

// expandColumn resolves a column name to its sorted leaf column names. A
// column with no state, or one not both expandable and expanded, resolves to
// itself; otherwise to the sorted union of its recursively resolved direct
// children.
func expandColumn(name string, states map[string]fieldState) []string {
	st, ok := states[name]
	if !ok || !(st.CanExpand && st.IsExpanded) {
		return []string{name}
	}
	var leaves []string
	for nested, s := range states {
		if strings.HasPrefix(nested, name) && s.Parent == name {
			leaves = append(leaves, expandColumn(nested, states)...)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// resolveColumns flattens the declared columns into the final column list:
// declared order at the top level, JSON columns replaced in place by their
// sorted leaf expansions.
func resolveColumns(declared []Column, states map[string]fieldState) []string {
	var names []string
	for _, col := range declared {
		if col.Type == "json" {
			names = append(names, expandColumn(col.Name, states)...)
		} else {
			names = append(names, col.Name)
		}
	}
	return names
}
