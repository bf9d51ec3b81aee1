// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"github.com/choria-io/formtree/elements"
)

// SystemType is the type reported for reserved submission fields
const SystemType = "system"

// FieldMeta describes a field offered in an exclusion list
type FieldMeta struct {
	Key   string `json:"key" yaml:"key"`
	Title string `json:"title" yaml:"title"`
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
}

// SystemFields are the reserved fields of every submission in the order they
// are always presented
var SystemFields = []FieldMeta{
	{Key: "serial", Title: "Submission number", Name: "serial", Type: SystemType},
	{Key: "sid", Title: "Submission ID", Name: "sid", Type: SystemType},
	{Key: "uuid", Title: "UUID", Name: "uuid", Type: SystemType},
	{Key: "token", Title: "Token", Name: "token", Type: SystemType},
	{Key: "uri", Title: "Submission URI", Name: "uri", Type: SystemType},
	{Key: "created", Title: "Created", Name: "created", Type: SystemType},
	{Key: "completed", Title: "Completed", Name: "completed", Type: SystemType},
	{Key: "changed", Title: "Changed", Name: "changed", Type: SystemType},
	{Key: "in_draft", Title: "Is draft", Name: "in_draft", Type: SystemType},
	{Key: "current_page", Title: "Current page", Name: "current_page", Type: SystemType},
	{Key: "remote_addr", Title: "IP address", Name: "remote_addr", Type: SystemType},
	{Key: "uid", Title: "User", Name: "uid", Type: SystemType},
	{Key: "langcode", Title: "Language", Name: "langcode", Type: SystemType},
	{Key: "webform_id", Title: "Form", Name: "webform_id", Type: SystemType},
	{Key: "entity_type", Title: "Submitted to: Entity type", Name: "entity_type", Type: SystemType},
	{Key: "entity_id", Title: "Submitted to: Entity ID", Name: "entity_id", Type: SystemType},
	{Key: "locked", Title: "Locked", Name: "locked", Type: SystemType},
	{Key: "sticky", Title: "Flagged", Name: "sticky", Type: SystemType},
	{Key: "notes", Title: "Notes", Name: "notes", Type: SystemType},
}

// IsSystemField reports whether key is a reserved submission field
func IsSystemField(key string) bool {
	for _, f := range SystemFields {
		if f.Key == key {
			return true
		}
	}

	return false
}

// ExcludedOptions lists the system fields followed by the excluded value
// elements of doc, using the default registry
func ExcludedOptions(doc *elements.Document, exclusions []string) []FieldMeta {
	return NewSelector(elements.DefaultRegistry()).ExcludedOptions(doc, exclusions)
}

// IncludedColumns lists the fields that remain after exclusions, using the
// default registry
func IncludedColumns(doc *elements.Document, exclusions []string) []FieldMeta {
	return NewSelector(elements.DefaultRegistry()).IncludedColumns(doc, exclusions)
}

// ExcludedOptions lists every system field in declared order followed by the
// excluded elements in traversal order. Exclusions naming unknown elements,
// containers or markup are ignored. The order is stable between calls.
func (s *Selector) ExcludedOptions(doc *elements.Document, exclusions []string) []FieldMeta {
	excluded := toSet(exclusions)

	res := make([]FieldMeta, len(SystemFields))
	copy(res, SystemFields)

	for _, f := range s.valueFields(doc) {
		if excluded[f.Key] {
			res = append(res, f)
		}
	}

	return res
}

// IncludedColumns lists the system fields and value elements not named in
// exclusions, in the same order as ExcludedOptions
func (s *Selector) IncludedColumns(doc *elements.Document, exclusions []string) []FieldMeta {
	excluded := toSet(exclusions)

	var res []FieldMeta
	for _, f := range SystemFields {
		if !excluded[f.Key] {
			res = append(res, f)
		}
	}

	for _, f := range s.valueFields(doc) {
		if !excluded[f.Key] {
			res = append(res, f)
		}
	}

	return res
}

func (s *Selector) valueFields(doc *elements.Document) []FieldMeta {
	var res []FieldMeta

	doc.Walk(func(n *elements.Node, _ *elements.Node, _ int) error {
		switch s.reg.KindOf(n) {
		case elements.KindInput, elements.KindComposite:
			res = append(res, FieldMeta{Key: n.Key, Title: n.Title(), Name: n.Key, Type: n.Type})
		}
		return nil
	})

	return res
}

func toSet(keys []string) map[string]bool {
	res := make(map[string]bool, len(keys))
	for _, k := range keys {
		res[k] = true
	}

	return res
}
