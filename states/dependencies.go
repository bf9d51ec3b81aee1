// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package states

import (
	"strings"

	"github.com/choria-io/formtree/elements"
)

// Dependencies maps every element with states to the elements its rules
// read, in rule order without duplicates
func Dependencies(doc *elements.Document) (map[string][]string, error) {
	rules, err := ParseDocument(doc)
	if err != nil {
		return nil, err
	}

	res := map[string][]string{}
	for owner, sets := range rules {
		seen := map[string]bool{}
		for _, rs := range sets {
			for _, sel := range rs.Selectors {
				if seen[sel.Key] {
					continue
				}
				seen[sel.Key] = true
				res[owner] = append(res[owner], sel.Key)
			}
		}
	}

	return res, nil
}

// CheckDependencies rejects documents where the states of elements depend on
// each other in a loop, including an element depending on its own value.
// References to elements that do not exist are not errors here.
func CheckDependencies(doc *elements.Document) error {
	deps, err := Dependencies(doc)
	if err != nil {
		return err
	}

	const (
		unvisited = iota
		visiting
		done
	)

	marks := map[string]int{}
	var path []string

	var visit func(key string) error
	visit = func(key string) error {
		switch marks[key] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, k := range path {
				if k == key {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), key)
			return &elements.StructureError{Key: key, Reason: "cyclic state dependency " + strings.Join(cycle, " -> ")}
		}

		marks[key] = visiting
		path = append(path, key)

		for _, dep := range deps[key] {
			err := visit(dep)
			if err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		marks[key] = done

		return nil
	}

	for _, key := range doc.Keys() {
		if marks[key] != unvisited {
			continue
		}

		err := visit(key)
		if err != nil {
			return err
		}
	}

	return nil
}
