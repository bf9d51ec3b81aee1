// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Property is a single element property. Name is stored without the leading
// # used in documents.
type Property struct {
	Name  string
	Value any

	// raw is the node the value was decoded from, kept so that unchanged
	// values are written back exactly as they were read
	raw *yaml.Node
}

// Properties is an ordered list of element properties
type Properties []Property

// Get returns the named property value
func (p Properties) Get(name string) (any, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}

	return nil, false
}

// Has reports whether the named property is set
func (p Properties) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Set returns a copy of p with the property set, replacing an existing value
// in place or appending a new property at the end
func (p Properties) Set(name string, value any) Properties {
	res := p.Clone()
	for i := range res {
		if res[i].Name == name {
			res[i] = Property{Name: name, Value: value}
			return res
		}
	}

	return append(res, Property{Name: name, Value: value})
}

// Put returns a copy of p with prop replacing the property of the same name
// in place or appended at the end, unlike Set the original YAML of prop is
// kept
func (p Properties) Put(prop Property) Properties {
	res := p.Clone()
	for i := range res {
		if res[i].Name == prop.Name {
			res[i] = prop
			return res
		}
	}

	return append(res, prop)
}

// Delete returns a copy of p without the named property
func (p Properties) Delete(name string) Properties {
	res := Properties{}
	for _, prop := range p {
		if prop.Name != name {
			res = append(res, prop)
		}
	}

	return res
}

// Clone returns a shallow copy of the property list
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}

	res := make(Properties, len(p))
	copy(res, p)

	return res
}

// Names returns the property names in document order
func (p Properties) Names() []string {
	var res []string
	for _, prop := range p {
		res = append(res, prop.Name)
	}

	return res
}

// String returns the named property formatted as a string, empty when unset
func (p Properties) String(name string) string {
	v, ok := p.Get(name)
	if !ok || v == nil {
		return ""
	}

	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

// Bool interprets the named property as a boolean. Numbers are true when non
// zero and strings are parsed with strconv.ParseBool.
func (p Properties) Bool(name string) bool {
	v, ok := p.Get(name)
	if !ok {
		return false
	}

	return Truthy(v)
}

// Int interprets the named property as an integer
func (p Properties) Int(name string) (int, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}

	return toInt(v)
}

// Float interprets the named property as a float
func (p Properties) Float(name string) (float64, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Option is one entry of an #options list
type Option struct {
	Value string
	Label string
}

// Options returns the #options property in document order. Sequences use the
// item as both value and label, mappings use key and value.
func (p Properties) Options() []Option {
	for _, prop := range p {
		if prop.Name != "options" {
			continue
		}

		if prop.raw != nil && prop.raw.Kind == yaml.MappingNode {
			var res []Option
			for i := 0; i+1 < len(prop.raw.Content); i += 2 {
				res = append(res, Option{Value: prop.raw.Content[i].Value, Label: prop.raw.Content[i+1].Value})
			}
			return res
		}

		switch opts := prop.Value.(type) {
		case []any:
			var res []Option
			for _, o := range opts {
				res = append(res, Option{Value: fmt.Sprint(o), Label: fmt.Sprint(o)})
			}
			return res

		case []string:
			var res []Option
			for _, o := range opts {
				res = append(res, Option{Value: o, Label: o})
			}
			return res

		case map[string]any:
			keys := make([]string, 0, len(opts))
			for k := range opts {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var res []Option
			for _, k := range keys {
				res = append(res, Option{Value: k, Label: fmt.Sprint(opts[k])})
			}
			return res
		}
	}

	return nil
}

// Truthy interprets v the way a checkbox value is interpreted
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		pb, err := strconv.ParseBool(strings.TrimSpace(b))
		if err == nil {
			return pb
		}
		return strings.TrimSpace(b) != ""
	default:
		return true
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
