// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"fmt"
)

// Kind classifies how an element type behaves in the tree
type Kind int

const (
	// KindInput elements collect a single value
	KindInput Kind = iota
	// KindMarkup elements display content and collect nothing
	KindMarkup
	// KindContainer elements group children and collect nothing themselves
	KindContainer
	// KindComposite elements collect a set of sub values as one value
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindMarkup:
		return "markup"
	case KindContainer:
		return "container"
	case KindComposite:
		return "composite"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CustomCompositeType is the composite type whose sub elements are declared
// per element in #element rather than registered
const CustomCompositeType = "custom_composite"

// SchemaFactory produces the fixed sub element schema of a composite type
type SchemaFactory func() []*Node

// Definition describes a registered element type
type Definition struct {
	Type string
	Kind Kind
	// Multiple indicates the type supports the #multiple property
	Multiple bool
	// Schema produces the sub elements of a composite type
	Schema SchemaFactory
}

// Registry maps element type tags to their definitions. It is populated at
// start up and read only afterwards.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// Register adds a type to the registry, composite schemas are checked for
// nested composites and multiple value sub elements
func (r *Registry) Register(d Definition) error {
	if d.Type == "" {
		return fmt.Errorf("element type is required")
	}

	if _, ok := r.defs[d.Type]; ok {
		return fmt.Errorf("element type %q already registered", d.Type)
	}

	if d.Kind == KindComposite && d.Type != CustomCompositeType {
		if d.Schema == nil {
			return structureErrorf(d.Type, "composite type has no sub element schema")
		}

		err := r.checkCompositeSchema(d.Type, d.Schema(), false)
		if err != nil {
			return err
		}
	}

	r.defs[d.Type] = d
	r.order = append(r.order, d.Type)

	return nil
}

// RegisterComposite registers a composite type with a fixed sub element
// schema. Schemas may only hold primitive types, a composite or multiple value
// sub element is a StructureError.
func (r *Registry) RegisterComposite(t string, multiple bool, schema SchemaFactory) error {
	return r.Register(Definition{Type: t, Kind: KindComposite, Multiple: multiple, Schema: schema})
}

// Lookup finds the definition of a type
func (r *Registry) Lookup(t string) (Definition, bool) {
	d, ok := r.defs[t]
	return d, ok
}

// Types lists the registered type tags in registration order
func (r *Registry) Types() []string {
	res := make([]string, len(r.order))
	copy(res, r.order)

	return res
}

// KindOf returns the kind of n, unknown types are treated as inputs
func (r *Registry) KindOf(n *Node) Kind {
	d, ok := r.defs[n.Type]
	if !ok {
		return KindInput
	}

	return d.Kind
}

// IsMultiple reports whether n collects a list of values
func (r *Registry) IsMultiple(n *Node) bool {
	d, ok := r.defs[n.Type]
	if !ok || !d.Multiple {
		return false
	}

	_, multiple := MultipleLimit(n)

	return multiple
}

// MultipleLimit interprets #multiple: true allows unlimited values (limit 0)
// and a number above 1 caps the number of values
func MultipleLimit(n *Node) (limit int, multiple bool) {
	v, ok := n.Properties.Get("multiple")
	if !ok {
		return 0, false
	}

	if b, ok := v.(bool); ok {
		return 0, b
	}

	if i, ok := toInt(v); ok {
		if i > 1 {
			return i, true
		}
		return 0, false
	}

	return 0, Truthy(v)
}

// CompositeElements returns the sub element schema of a registered composite
// type, each call returns fresh nodes
func (r *Registry) CompositeElements(t string) ([]*Node, error) {
	d, ok := r.defs[t]
	if !ok {
		return nil, fmt.Errorf("unknown element type %q", t)
	}

	if d.Kind != KindComposite {
		return nil, fmt.Errorf("element type %q is not a composite", t)
	}

	if d.Schema == nil {
		return nil, fmt.Errorf("element type %q declares its sub elements per element", t)
	}

	return d.Schema(), nil
}

// SubElements returns the sub elements of a composite element, either the
// registered schema or the custom #element declaration
func (r *Registry) SubElements(n *Node) ([]*Node, error) {
	if n.Type == CustomCompositeType {
		return cloneNodes(n.Elements), nil
	}

	return r.CompositeElements(n.Type)
}

func (r *Registry) checkCompositeSchema(owner string, subs []*Node, strict bool) error {
	if len(subs) == 0 {
		return structureErrorf(owner, "composite has no sub elements")
	}

	seen := map[string]bool{}

	for _, sub := range subs {
		if seen[sub.Key] {
			return structureErrorf(owner, "duplicate sub element %q", sub.Key)
		}
		seen[sub.Key] = true

		if isMultipleSub(sub) {
			return structureErrorf(owner, "sub element %q may not hold multiple values", sub.Key)
		}

		if len(sub.Children) > 0 || len(sub.Elements) > 0 {
			return structureErrorf(owner, "sub element %q may not have children", sub.Key)
		}

		d, ok := r.defs[sub.Type]
		if !ok {
			if strict {
				return structureErrorf(owner, "sub element %q has unknown type %q", sub.Key, sub.Type)
			}
			// types registered later are checked again by Check
			continue
		}

		switch {
		case d.Kind == KindComposite:
			return structureErrorf(owner, "sub element %q is a composite %q, composites may not nest", sub.Key, sub.Type)
		case d.Kind == KindContainer:
			return structureErrorf(owner, "sub element %q is a container %q", sub.Key, sub.Type)
		}
	}

	return nil
}

// Check verifies the structural invariants of doc: unique keys, known types,
// children only below containers and composites without nested composites
func (r *Registry) Check(doc *Document) error {
	seen := map[string]bool{}

	return doc.Walk(func(n *Node, _ *Node, _ int) error {
		if n.Key == "" {
			return structureErrorf("", "element without a key")
		}

		if seen[n.Key] {
			return structureErrorf(n.Key, "duplicate element key")
		}
		seen[n.Key] = true

		d, ok := r.defs[n.Type]
		if !ok {
			return structureErrorf(n.Key, "unknown element type %q", n.Type)
		}

		if len(n.Children) > 0 && d.Kind != KindContainer {
			return structureErrorf(n.Key, "%s element %q may not have children", d.Kind, n.Type)
		}

		if d.Kind != KindComposite {
			if len(n.Elements) > 0 {
				return structureErrorf(n.Key, "only composite elements may declare sub elements")
			}
			return nil
		}

		subs, err := r.SubElements(n)
		if err != nil {
			return structureErrorf(n.Key, "%v", err)
		}

		return r.checkCompositeSchema(n.Key, subs, true)
	})
}

func isMultipleSub(n *Node) bool {
	_, multiple := MultipleLimit(n)
	return multiple
}
