// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formtree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/choria-io/formtree/elements"
	"github.com/kballard/go-shellquote"
)

// ScriptRoot names the root of the document as a parent in edit scripts
const ScriptRoot = "."

// ApplyScript applies an edit script to the open document. Each line is one
// shell quoted command, blank lines and lines starting with # are ignored:
//
//	add PARENT KEY TYPE [PROPERTY=VALUE...]
//	set KEY PROPERTY=VALUE...
//	unset KEY PROPERTY...
//	delete KEY
//	move KEY PARENT [POSITION]
//
// PARENT is . for the root of the document. Values are parsed as YAML so
// lists, maps, numbers and booleans can be given, for example
// options='[small, large]'. The script is applied as a whole, when any
// command fails the open document is left as it was before the script.
func (e *Editor) ApplyScript(r io.Reader) error {
	if e.doc == nil {
		return ErrNoForm
	}

	doc := e.doc
	dirty := e.dirty

	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		err := e.applyCommand(text)
		if err != nil {
			e.doc = doc
			e.dirty = dirty
			return fmt.Errorf("line %d: %w", line, err)
		}
	}

	err := scanner.Err()
	if err != nil {
		e.doc = doc
		e.dirty = dirty
		return err
	}

	return nil
}

func (e *Editor) applyCommand(text string) error {
	parts, err := shellquote.Split(text)
	if err != nil {
		return err
	}

	cmd, args := parts[0], parts[1:]

	e.debugf("Applying edit command: %s %s", cmd, strings.Join(args, " "))

	switch cmd {
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("add requires a parent, key and type")
		}

		props, err := parseAssignments(args[3:])
		if err != nil {
			return err
		}

		return e.AddElement(scriptParent(args[0]), &elements.Node{Key: args[1], Type: args[2], Properties: props})

	case "set":
		if len(args) < 2 {
			return fmt.Errorf("set requires a key and at least one property")
		}

		props, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}

		return e.UpdateElement(args[0], props)

	case "unset":
		if len(args) < 2 {
			return fmt.Errorf("unset requires a key and at least one property")
		}

		var props elements.Properties
		for _, name := range args[1:] {
			props = append(props, elements.Property{Name: strings.TrimPrefix(name, "#")})
		}

		return e.UpdateElement(args[0], props)

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("delete requires a key")
		}

		return e.DeleteElement(args[0])

	case "move":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("move requires a key, a parent and an optional position")
		}

		position := -1
		if len(args) == 3 {
			position, err = strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[2])
			}
		}

		return e.MoveElement(args[0], scriptParent(args[1]), position)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func scriptParent(p string) string {
	if p == ScriptRoot {
		return elements.RootKey
	}

	return p
}

// parseAssignments parses name=value pairs, the value is YAML
func parseAssignments(args []string) (elements.Properties, error) {
	var props elements.Properties

	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimPrefix(name, "#")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid property %q, expected name=value", arg)
		}

		prop, err := elements.ParseProperty(name, value)
		if err != nil {
			return nil, err
		}

		props = append(props, prop)
	}

	return props, nil
}
