// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package elements

// RootKey is the ParentMap key holding the root level elements
const RootKey = ""

// FlatNode is one row of a flattened tree
type FlatNode struct {
	Key        string
	Type       string
	Depth      int
	ParentKey  string
	Weight     int
	Properties Properties
	Elements   []*Node
}

// FlatTree is a flattened document: the tree wide metadata and the elements
// in pre-order
type FlatTree struct {
	Metadata Properties
	Nodes    []*FlatNode
}

// ParentMap maps a parent key to its ordered child keys, root level elements
// are listed under RootKey
type ParentMap map[string][]string

// Flatten produces a depth first pre-order list of all elements annotated
// with depth and parent, siblings ordered by weight with ties kept in
// document order
func Flatten(doc *Document) *FlatTree {
	res := &FlatTree{Metadata: doc.Metadata.Clone()}

	doc.Walk(func(n *Node, parent *Node, depth int) error {
		fn := &FlatNode{
			Key:        n.Key,
			Type:       n.Type,
			Depth:      depth,
			Weight:     n.Weight,
			Properties: n.Properties.Clone(),
			Elements:   cloneNodes(n.Elements),
		}

		if parent != nil {
			fn.ParentKey = parent.Key
		}

		res.Nodes = append(res.Nodes, fn)

		return nil
	})

	return res
}

// IdentityMap is the ParentMap describing the current shape of doc
func IdentityMap(doc *Document) ParentMap {
	return Flatten(doc).ParentMap()
}

// ParentMap derives the parent to children mapping from the flat order
func (f *FlatTree) ParentMap() ParentMap {
	res := ParentMap{}

	for _, n := range f.Nodes {
		res[n.ParentKey] = append(res[n.ParentKey], n.Key)
	}

	return res
}

// Find returns the flat node with key
func (f *FlatTree) Find(key string) *FlatNode {
	for _, n := range f.Nodes {
		if n.Key == key {
			return n
		}
	}

	return nil
}

// Rebuild reconstructs a nested document from a flat list and a parent map as
// produced by an editor that moved elements around. Children are attached in
// map order and receive contiguous weights, properties are copied verbatim
// and the metadata is kept untouched.
//
// Elements the map does not mention stay below their declared parent, after
// the mapped siblings, in flat order.
//
// A StructureError is returned when a declared parent is missing, the map
// names unknown keys, lists a key twice or describes a cycle. Nothing is
// returned on error.
func Rebuild(flat *FlatTree, parents ParentMap) (*Document, error) {
	index := map[string]*FlatNode{}

	for _, n := range flat.Nodes {
		if _, ok := index[n.Key]; ok {
			return nil, structureErrorf(n.Key, "duplicate element key")
		}
		index[n.Key] = n
	}

	for _, n := range flat.Nodes {
		if n.ParentKey == RootKey {
			continue
		}

		if _, ok := index[n.ParentKey]; !ok {
			return nil, structureErrorf(n.Key, "parent %q does not exist", n.ParentKey)
		}
	}

	assigned := map[string]string{}
	children := map[string][]string{}

	for parent, keys := range parents {
		if parent != RootKey {
			if _, ok := index[parent]; !ok {
				return nil, structureErrorf(parent, "unknown parent in element order")
			}
		}

		for _, k := range keys {
			if _, ok := index[k]; !ok {
				return nil, structureErrorf(k, "unknown element in element order")
			}

			if _, ok := assigned[k]; ok {
				return nil, structureErrorf(k, "element listed more than once in element order")
			}

			if k == parent {
				return nil, structureErrorf(k, "element may not be its own parent")
			}

			assigned[k] = parent
			children[parent] = append(children[parent], k)
		}
	}

	for _, n := range flat.Nodes {
		if _, ok := assigned[n.Key]; ok {
			continue
		}

		assigned[n.Key] = n.ParentKey
		children[n.ParentKey] = append(children[n.ParentKey], n.Key)
	}

	visited := map[string]bool{}

	var build func(parent string) []*Node
	build = func(parent string) []*Node {
		var res []*Node

		for i, k := range children[parent] {
			if visited[k] {
				continue
			}
			visited[k] = true

			fn := index[k]
			res = append(res, &Node{
				Key:        fn.Key,
				Type:       fn.Type,
				Weight:     i,
				Properties: fn.Properties.Clone(),
				Elements:   cloneNodes(fn.Elements),
				Children:   build(k),
			})
		}

		return res
	}

	doc := &Document{
		Metadata: flat.Metadata.Clone(),
		Elements: build(RootKey),
	}

	if len(visited) != len(index) {
		for _, n := range flat.Nodes {
			if !visited[n.Key] {
				return nil, structureErrorf(n.Key, "cyclic parent chain")
			}
		}
	}

	return doc, nil
}
