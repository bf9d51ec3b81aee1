// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package multiple

import (
	"fmt"
)

// Row is one editable row of a multiple value element: the value input, its
// weight input and the add and remove controls
type Row struct {
	Index     int
	Value     any
	Weight    int
	CanAdd    bool
	CanRemove bool
}

// BuildItemRow produces a row for the item at index, index must be unique
// within its container for the current editing session
func BuildItemRow(index int, value any, weight int) (Row, error) {
	if index < 0 {
		return Row{}, fmt.Errorf("invalid row index %d", index)
	}

	return Row{Index: index, Value: value, Weight: weight, CanAdd: true, CanRemove: true}, nil
}

// Name is the form input name of the row value below element key
func (r Row) Name(key string) string {
	return fmt.Sprintf("%s[items][%d][_item_]", key, r.Index)
}

// WeightName is the form input name of the row weight below element key
func (r Row) WeightName(key string) string {
	return fmt.Sprintf("%s[items][%d][weight]", key, r.Index)
}
