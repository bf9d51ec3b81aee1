// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package elements holds the element tree of a form definition.
//
// A form is a nested document of elements, each with a type, a set of
// properties and, for container types, ordered children. The package parses
// and writes that document, registers the known element types, and converts
// the tree to a flat depth annotated list and back again so that it can be
// edited as a table.
package elements

import (
	"sort"
)

// Node is a single element definition in a form tree
type Node struct {
	// Key identifies the element uniquely within its document
	Key string
	// Type is the registered element type tag
	Type string
	// Weight orders siblings, ties keep document order
	Weight int
	// Properties holds all # prefixed properties other than type and weight
	Properties Properties
	// Children are nested elements, only valid for container types
	Children []*Node
	// Elements are the sub elements of a custom composite element
	Elements []*Node
}

// Title is the element title, falling back to the key
func (n *Node) Title() string {
	t := n.Properties.String("title")
	if t == "" {
		return n.Key
	}

	return t
}

// Clone returns a deep copy of the node and its descendants
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	res := &Node{
		Key:        n.Key,
		Type:       n.Type,
		Weight:     n.Weight,
		Properties: n.Properties.Clone(),
		Children:   cloneNodes(n.Children),
		Elements:   cloneNodes(n.Elements),
	}

	return res
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}

	res := make([]*Node, len(nodes))
	for i, n := range nodes {
		res[i] = n.Clone()
	}

	return res
}

// sortedNodes returns nodes ordered by weight with ties kept in their
// original order, the input is not modified
func sortedNodes(nodes []*Node) []*Node {
	res := make([]*Node, len(nodes))
	copy(res, nodes)

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Weight < res[j].Weight
	})

	return res
}

// Document is a complete form definition
type Document struct {
	// Metadata holds tree wide # prefixed properties found at the root
	Metadata Properties
	// Elements are the root level elements
	Elements []*Node
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	return &Document{
		Metadata: d.Metadata.Clone(),
		Elements: cloneNodes(d.Elements),
	}
}

// WalkFunc is called for every element during Walk, parent is nil for root
// level elements
type WalkFunc func(n *Node, parent *Node, depth int) error

// Walk visits every element in pre-order, siblings in weight order
func (d *Document) Walk(cb WalkFunc) error {
	var walk func(nodes []*Node, parent *Node, depth int) error
	walk = func(nodes []*Node, parent *Node, depth int) error {
		for _, n := range sortedNodes(nodes) {
			err := cb(n, parent, depth)
			if err != nil {
				return err
			}

			err = walk(n.Children, n, depth+1)
			if err != nil {
				return err
			}
		}

		return nil
	}

	return walk(d.Elements, nil, 0)
}

// Find returns the element with key and its parent, parent is nil for root
// level elements
func (d *Document) Find(key string) (node *Node, parent *Node) {
	d.Walk(func(n *Node, p *Node, _ int) error {
		if node == nil && n.Key == key {
			node = n
			parent = p
		}
		return nil
	})

	return node, parent
}

// Keys returns all element keys in traversal order
func (d *Document) Keys() []string {
	var keys []string
	d.Walk(func(n *Node, _ *Node, _ int) error {
		keys = append(keys, n.Key)
		return nil
	})

	return keys
}

// Remove deletes the element with key and all its descendants, it reports
// whether the element was found
func (d *Document) Remove(key string) bool {
	var remove func(nodes []*Node) ([]*Node, bool)
	remove = func(nodes []*Node) ([]*Node, bool) {
		for i, n := range nodes {
			if n.Key == key {
				res := append([]*Node{}, nodes[:i]...)
				return append(res, nodes[i+1:]...), true
			}

			children, found := remove(n.Children)
			if found {
				n.Children = children
				return nodes, true
			}
		}

		return nodes, false
	}

	var found bool
	d.Elements, found = remove(d.Elements)

	return found
}
