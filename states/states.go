// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package states evaluates the conditional states of form elements.
//
// An element declares states in its #states property, each state names an
// effect such as visible or required and the conditions on other elements'
// values that trigger it:
//
//	'#states':
//	  visible:
//	    ':input[name="contact_me"]':
//	      checked: true
//	  required:
//	    - ':input[name="method"]': {value: email}
//	    - or
//	    - ':input[name="method"]': {value: both}
//
// Evaluation is a pure function of the rules and the current values.
package states

import (
	"fmt"
	"sort"
	"strings"

	"github.com/choria-io/formtree/elements"
)

// Effect is what a state does to its element when triggered
type Effect string

const (
	Visible   Effect = "visible"
	Invisible Effect = "invisible"
	Required  Effect = "required"
	Optional  Effect = "optional"
	Enabled   Effect = "enabled"
	Disabled  Effect = "disabled"
)

// effects lists the known effects in evaluation order
var effects = []Effect{Visible, Invisible, Required, Optional, Enabled, Disabled}

// Condition is the test applied to the target element's value
type Condition string

const (
	ValueCondition      Condition = "value"
	EmptyCondition      Condition = "empty"
	FilledCondition     Condition = "filled"
	CheckedCondition    Condition = "checked"
	UncheckedCondition  Condition = "unchecked"
	ExpressionCondition Condition = "expression"
)

// Conjunction combines the selectors of a rule set
type Conjunction string

const (
	AndConjunction Conjunction = "and"
	OrConjunction  Conjunction = "or"
	XorConjunction Conjunction = "xor"
)

// Selector is one condition on another element's value
type Selector struct {
	// Key is the target element
	Key string
	// Sub selects a composite sub value or a checkboxes option
	Sub string
	// Condition is the test to apply
	Condition Condition
	// Value is the operand of value and expression conditions
	Value any
}

// RuleSet is one effect of an element with the selectors that trigger it
type RuleSet struct {
	Owner       string
	Effect      Effect
	Conjunction Conjunction
	Selectors   []Selector
}

// Parse reads the #states property of n, elements without states produce no
// rules. Unknown effects or conditions are a RuleEvaluationError.
func Parse(n *elements.Node) ([]RuleSet, error) {
	v, ok := n.Properties.Get("states")
	if !ok || v == nil {
		return nil, nil
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, ruleErrorf(n.Key, "", "#states must be a mapping of effects")
	}

	for k := range m {
		if !isOneOf(Effect(k), effects...) {
			return nil, ruleErrorf(n.Key, "", "unknown effect %q", k)
		}
	}

	var res []RuleSet

	for _, effect := range effects {
		triggers, ok := m[string(effect)]
		if !ok {
			continue
		}

		rs, err := parseTriggers(n.Key, effect, triggers)
		if err != nil {
			return nil, err
		}

		res = append(res, rs)
	}

	return res, nil
}

// ParseDocument parses the states of every element in doc keyed by element
func ParseDocument(doc *elements.Document) (map[string][]RuleSet, error) {
	res := map[string][]RuleSet{}

	err := doc.Walk(func(n *elements.Node, _ *elements.Node, _ int) error {
		rules, err := Parse(n)
		if err != nil {
			return err
		}

		if len(rules) > 0 {
			res[n.Key] = rules
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func parseTriggers(owner string, effect Effect, triggers any) (RuleSet, error) {
	rs := RuleSet{Owner: owner, Effect: effect, Conjunction: AndConjunction}

	switch t := triggers.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			sel, err := parseSelector(owner, k, t[k])
			if err != nil {
				return rs, err
			}
			rs.Selectors = append(rs.Selectors, sel)
		}

	case []any:
		conjunction := Conjunction("")

		for _, item := range t {
			switch i := item.(type) {
			case string:
				c := Conjunction(strings.ToLower(strings.TrimSpace(i)))
				if !isOneOf(c, AndConjunction, OrConjunction, XorConjunction) {
					return rs, ruleErrorf(owner, "", "unknown conjunction %q", i)
				}

				if conjunction != "" && conjunction != c {
					return rs, ruleErrorf(owner, "", "cannot mix %q and %q in one state", conjunction, c)
				}
				conjunction = c

			case map[string]any:
				partial, err := parseTriggers(owner, effect, i)
				if err != nil {
					return rs, err
				}
				rs.Selectors = append(rs.Selectors, partial.Selectors...)

			default:
				return rs, ruleErrorf(owner, "", "invalid state trigger %v", item)
			}
		}

		if conjunction != "" {
			rs.Conjunction = conjunction
		}

	default:
		return rs, ruleErrorf(owner, "", "invalid triggers for effect %q", effect)
	}

	return rs, nil
}

func parseSelector(owner string, selector string, condition any) (Selector, error) {
	key, sub := ParseSelector(selector)
	if key == "" {
		return Selector{}, ruleErrorf(owner, "", "invalid selector %q", selector)
	}

	sel := Selector{Key: key, Sub: sub}

	cm, ok := condition.(map[string]any)
	if !ok || len(cm) != 1 {
		return sel, ruleErrorf(owner, "", "selector %q needs exactly one condition", selector)
	}

	for name, operand := range cm {
		switch Condition(name) {
		case CheckedCondition:
			sel.Condition = CheckedCondition
			if !elements.Truthy(operand) {
				sel.Condition = UncheckedCondition
			}

		case UncheckedCondition:
			sel.Condition = UncheckedCondition
			if !elements.Truthy(operand) {
				sel.Condition = CheckedCondition
			}

		case EmptyCondition:
			sel.Condition = EmptyCondition
			if !elements.Truthy(operand) {
				sel.Condition = FilledCondition
			}

		case FilledCondition:
			sel.Condition = FilledCondition
			if !elements.Truthy(operand) {
				sel.Condition = EmptyCondition
			}

		case ValueCondition:
			sel.Condition = ValueCondition
			sel.Value = operand

		case ExpressionCondition:
			expression, ok := operand.(string)
			if !ok || expression == "" {
				return sel, ruleErrorf(owner, name, "expression must be a string")
			}
			sel.Condition = ExpressionCondition
			sel.Value = expression

		default:
			return sel, ruleErrorf(owner, name, "unsupported condition")
		}
	}

	return sel, nil
}

// ParseSelector extracts the element key and optional sub key from a
// selector. Both ':input[name="key[sub]"]' style selectors and bare keys
// are accepted.
func ParseSelector(selector string) (key string, sub string) {
	name := strings.TrimSpace(selector)

	if idx := strings.Index(name, "name="); idx >= 0 {
		name = name[idx+len("name="):]
		name = strings.TrimLeft(name, `"'`)

		end := strings.IndexAny(name, `"'`)
		if end < 0 {
			end = strings.LastIndex(name, "]")
		}
		if end < 0 {
			return "", ""
		}
		name = name[:end]
	}

	open := strings.Index(name, "[")
	if open < 0 {
		return name, ""
	}

	key = name[:open]
	rest := name[open+1:]

	end := strings.Index(rest, "]")
	if end < 0 {
		return "", ""
	}

	return key, rest[:end]
}

func ruleErrorf(key string, condition string, format string, a ...any) error {
	return &elements.RuleEvaluationError{Key: key, Condition: condition, Reason: fmt.Sprintf(format, a...)}
}

func isOneOf[T comparable](val T, valid ...T) bool {
	for _, v := range valid {
		if val == v {
			return true
		}
	}
	return false
}
