// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package multiple manages the editable rows of elements that accept more
// than one value.
//
// A Container starts with one row per default value plus a number of blank
// rows, grows and shrinks through explicit add and remove operations, and is
// finally submitted, at which point the rows are converted into the ordered,
// trimmed list of non empty values. Rows are keyed by position, every
// operation returns a fresh list of items rather than renumbering in place.
package multiple

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/choria-io/formtree/elements"
)

// ErrSubmitted is returned when a container is changed after submission
var ErrSubmitted = errors.New("container already submitted")

// State is the lifecycle stage of a container within one request
type State int

const (
	// StateInitial is a container holding its default rows
	StateInitial State = iota
	// StateEditing is a container that received add or remove operations
	StateEditing
	// StateSubmitted is a container whose values have been extracted
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateEditing:
		return "editing"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Item is a single row value with its sort weight
type Item struct {
	Value  any
	Weight int
}

// Options configures a new container
type Options struct {
	// EmptyItems is the number of blank rows added after the defaults
	EmptyItems int
	// AddMore is the number of rows added per AddMore call, defaults to 1
	AddMore int
	// Limit caps the number of rows, 0 is unlimited
	Limit int
}

// Container holds the rows of one multiple value element for one editing
// session. It is not safe for concurrent use.
type Container struct {
	key          string
	items        []Item
	addIncrement int
	limit        int
	state        State
}

// New creates a container with one row per default value followed by
// opts.EmptyItems blank rows, never fewer than one row. When opts.Limit is set
// rows past the limit are dropped.
func New(key string, defaults []any, opts Options) *Container {
	c := &Container{
		key:          key,
		addIncrement: opts.AddMore,
		limit:        opts.Limit,
	}

	if c.addIncrement < 1 {
		c.addIncrement = 1
	}

	for _, v := range defaults {
		c.items = append(c.items, Item{Value: v})
	}

	for i := 0; i < opts.EmptyItems; i++ {
		c.items = append(c.items, Item{})
	}

	if c.limit > 0 && len(c.items) > c.limit {
		c.items = c.items[:c.limit]
	}

	if len(c.items) == 0 {
		c.items = append(c.items, Item{})
	}

	c.reweigh()

	return c
}

// Key is the element key the container belongs to
func (c *Container) Key() string {
	return c.key
}

// State is the current lifecycle state
func (c *Container) State() State {
	return c.state
}

// NumberOfItems is the current number of rows, always at least 1
func (c *Container) NumberOfItems() int {
	return len(c.items)
}

// AddIncrement is the number of rows added by AddMore
func (c *Container) AddIncrement() int {
	return c.addIncrement
}

// Items returns a copy of the current rows
func (c *Container) Items() []Item {
	res := make([]Item, len(c.items))
	copy(res, c.items)

	return res
}

// Rows returns the editable row definitions for the current items
func (c *Container) Rows() []Row {
	rows := make([]Row, len(c.items))
	for i, item := range c.items {
		rows[i] = Row{Index: i, Value: item.Value, Weight: item.Weight, CanRemove: true, CanAdd: c.canGrow(1)}
	}

	return rows
}

// SetValue stores value in the row at index
func (c *Container) SetValue(index int, value any) error {
	err := c.edit()
	if err != nil {
		return err
	}

	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%s: no item at index %d", c.key, index)
	}

	c.items[index].Value = value

	return nil
}

// SetWeight changes the sort weight of the row at index, the new order takes
// effect when values are converted
func (c *Container) SetWeight(index int, weight int) error {
	err := c.edit()
	if err != nil {
		return err
	}

	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%s: no item at index %d", c.key, index)
	}

	c.items[index].Weight = weight

	return nil
}

// AddItem inserts an empty row directly after the row at index after and
// returns the new list of items
func (c *Container) AddItem(after int) ([]Item, error) {
	err := c.edit()
	if err != nil {
		return nil, err
	}

	if after < 0 || after >= len(c.items) {
		return nil, fmt.Errorf("%s: no item at index %d", c.key, after)
	}

	if !c.canGrow(1) {
		return nil, fmt.Errorf("%s: limited to %d items", c.key, c.limit)
	}

	items := make([]Item, 0, len(c.items)+1)
	items = append(items, c.items[:after+1]...)
	items = append(items, Item{})
	items = append(items, c.items[after+1:]...)

	c.items = items
	c.reweigh()

	return c.Items(), nil
}

// AddItems appends count empty rows at the end without reordering existing
// rows, capped at the container limit
func (c *Container) AddItems(count int) ([]Item, error) {
	err := c.edit()
	if err != nil {
		return nil, err
	}

	for i := 0; i < count && c.canGrow(1); i++ {
		c.items = append(c.items, Item{Weight: len(c.items)})
	}

	return c.Items(), nil
}

// AddMore appends the configured increment of empty rows
func (c *Container) AddMore() ([]Item, error) {
	return c.AddItems(c.addIncrement)
}

// RemoveItem deletes the row at index and renumbers the remaining rows from
// 0. Removing the last remaining row keeps a single empty row.
func (c *Container) RemoveItem(index int) ([]Item, error) {
	err := c.edit()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(c.items) {
		return nil, fmt.Errorf("%s: no item at index %d", c.key, index)
	}

	items := make([]Item, 0, len(c.items))
	items = append(items, c.items[:index]...)
	items = append(items, c.items[index+1:]...)

	if len(items) == 0 {
		items = append(items, Item{})
	}

	c.items = items
	c.reweigh()

	return c.Items(), nil
}

// Submit extracts the values and moves the container into its terminal
// state, a container that was never edited passes through editing first
func (c *Container) Submit() ([]any, error) {
	err := c.edit()
	if err != nil {
		return nil, err
	}

	c.state = StateSubmitted

	return ConvertValuesToItems(c.items), nil
}

// Validate checks a required container holds at least one value
func (c *Container) Validate(required bool) error {
	if !required {
		return nil
	}

	if len(ConvertValuesToItems(c.items)) == 0 {
		return &elements.ValidationError{Key: c.key, Message: "at least one value is required"}
	}

	return nil
}

func (c *Container) edit() error {
	if c.state == StateSubmitted {
		return fmt.Errorf("%s: %w", c.key, ErrSubmitted)
	}

	c.state = StateEditing

	return nil
}

func (c *Container) canGrow(n int) bool {
	return c.limit == 0 || len(c.items)+n <= c.limit
}

func (c *Container) reweigh() {
	for i := range c.items {
		c.items[i].Weight = i
	}
}

// ConvertValuesToItems orders items by weight, keeping ties in their given
// order, trims text values and drops values that are empty after trimming.
// Weights only establish the order and are not part of the result.
func ConvertValuesToItems(items []Item) []any {
	sorted := make([]Item, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight < sorted[j].Weight
	})

	res := []any{}
	for _, item := range sorted {
		v := trimValue(item.Value)
		if isEmpty(v) {
			continue
		}
		res = append(res, v)
	}

	return res
}

// ItemsFromValues turns a list of values into items weighted by position
func ItemsFromValues(values []any) []Item {
	res := make([]Item, len(values))
	for i, v := range values {
		res[i] = Item{Value: v, Weight: i}
	}

	return res
}

func trimValue(v any) any {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)

	case map[string]any:
		res := make(map[string]any, len(val))
		for k, sv := range val {
			res[k] = trimValue(sv)
		}
		return res

	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		for _, sv := range val {
			if !isEmpty(sv) {
				return false
			}
		}
		return true
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
