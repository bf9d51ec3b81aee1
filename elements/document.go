// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseReader reads a YAML or JSON form document from r
func ParseReader(r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Parse(b)
}

// ParseFile reads a YAML or JSON form document from the file f
func ParseFile(f string) (*Document, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}

	return Parse(b)
}

// Parse decodes a nested form document. Keys starting with # are properties,
// any other key is a child element. Root level properties become document
// metadata. Document order is preserved throughout.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	err := yaml.Unmarshal(data, &root)
	if err != nil {
		return nil, err
	}

	doc := &Document{}

	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	m := root.Content[0]
	if m.Kind == yaml.ScalarNode && m.Tag == "!!null" {
		return doc, nil
	}

	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("form document must be a mapping, found %s", nodeKind(m))
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]

		if name, ok := strings.CutPrefix(k.Value, "#"); ok {
			prop, err := decodeProperty(name, v)
			if err != nil {
				return nil, err
			}
			doc.Metadata = append(doc.Metadata, prop)
			continue
		}

		n, err := parseElement(k.Value, v)
		if err != nil {
			return nil, err
		}
		doc.Elements = append(doc.Elements, n)
	}

	seen := map[string]bool{}
	err = doc.Walk(func(n *Node, _ *Node, _ int) error {
		if seen[n.Key] {
			return structureErrorf(n.Key, "duplicate element key")
		}
		seen[n.Key] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func parseElement(key string, v *yaml.Node) (*Node, error) {
	n := &Node{Key: key}

	if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
		return n, nil
	}

	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("element %q must be a mapping, found %s", key, nodeKind(v))
	}

	for i := 0; i+1 < len(v.Content); i += 2 {
		k, val := v.Content[i], v.Content[i+1]

		name, isProp := strings.CutPrefix(k.Value, "#")
		if !isProp {
			child, err := parseElement(k.Value, val)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			continue
		}

		switch name {
		case "type":
			n.Type = val.Value

		case "weight":
			err := val.Decode(&n.Weight)
			if err != nil {
				return nil, fmt.Errorf("element %q has an invalid weight: %w", key, err)
			}

		case "element":
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("element %q has an invalid #element, found %s", key, nodeKind(val))
			}

			for j := 0; j+1 < len(val.Content); j += 2 {
				if strings.HasPrefix(val.Content[j].Value, "#") {
					continue
				}

				sub, err := parseElement(val.Content[j].Value, val.Content[j+1])
				if err != nil {
					return nil, err
				}
				n.Elements = append(n.Elements, sub)
			}

		default:
			prop, err := decodeProperty(name, val)
			if err != nil {
				return nil, fmt.Errorf("element %q: %w", key, err)
			}
			n.Properties = append(n.Properties, prop)
		}
	}

	return n, nil
}

func decodeProperty(name string, v *yaml.Node) (Property, error) {
	// aliases are resolved so the node can be written back in any order
	v = detachNode(v)

	var val any
	err := v.Decode(&val)
	if err != nil {
		return Property{}, fmt.Errorf("invalid property #%s: %w", name, err)
	}

	return Property{Name: name, Value: val, raw: v}, nil
}

// detachNode deep copies n with aliases replaced by what they refer to and
// anchors removed
func detachNode(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	res := *n
	res.Anchor = ""
	res.Alias = nil

	if len(n.Content) > 0 {
		res.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			res.Content[i] = detachNode(c)
		}
	}

	return &res
}

// ParseProperty decodes a property value written in YAML, mapping order is
// kept the same way as for properties read from a document. An empty value
// is an empty string.
func ParseProperty(name string, value string) (Property, error) {
	var doc yaml.Node
	err := yaml.Unmarshal([]byte(value), &doc)
	if err != nil {
		return Property{}, fmt.Errorf("invalid property #%s: %w", name, err)
	}

	if len(doc.Content) == 0 {
		return Property{Name: name, Value: ""}, nil
	}

	return decodeProperty(name, doc.Content[0])
}

// Marshal writes the document in the nested YAML form read by Parse,
// elements ordered by weight
func Marshal(d *Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	err := appendProperties(root, d.Metadata)
	if err != nil {
		return nil, err
	}

	for _, n := range sortedNodes(d.Elements) {
		err = appendElement(root, n)
		if err != nil {
			return nil, err
		}
	}

	return yaml.Marshal(root)
}

func appendElement(m *yaml.Node, n *Node) error {
	v := &yaml.Node{Kind: yaml.MappingNode}

	if n.Type != "" {
		v.Content = append(v.Content, keyNode("#type"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Type})
	}

	if n.Weight != 0 {
		w := &yaml.Node{}
		err := w.Encode(n.Weight)
		if err != nil {
			return err
		}
		v.Content = append(v.Content, keyNode("#weight"), w)
	}

	err := appendProperties(v, n.Properties)
	if err != nil {
		return err
	}

	if len(n.Elements) > 0 {
		sub := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range n.Elements {
			err = appendElement(sub, e)
			if err != nil {
				return err
			}
		}
		v.Content = append(v.Content, keyNode("#element"), sub)
	}

	for _, c := range sortedNodes(n.Children) {
		err = appendElement(v, c)
		if err != nil {
			return err
		}
	}

	m.Content = append(m.Content, keyNode(n.Key), v)

	return nil
}

func appendProperties(m *yaml.Node, props Properties) error {
	for _, p := range props {
		v := p.raw
		if v == nil {
			v = &yaml.Node{}
			err := v.Encode(p.Value)
			if err != nil {
				return fmt.Errorf("cannot encode property #%s: %w", p.Name, err)
			}
		}

		m.Content = append(m.Content, keyNode("#"+p.Name), v)
	}

	return nil
}

func keyNode(k string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
