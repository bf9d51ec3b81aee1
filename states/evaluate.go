// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package states

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/choria-io/formtree/elements"
	"github.com/choria-io/formtree/internal/validator"
)

// Logger receives warnings about rules referencing missing elements
type Logger interface {
	Warnf(format string, v ...any)
}

// Evaluator evaluates selectors and rule sets against form values. The zero
// value is ready to use and logs nothing.
type Evaluator struct {
	log Logger
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithLogger sets the logger used for missing reference warnings
func WithLogger(l Logger) Option {
	return func(e *Evaluator) {
		e.log = l
	}
}

// NewEvaluator creates a new evaluator
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, o := range opts {
		o(e)
	}

	return e
}

// Status is the effective state of an element after applying its rules
type Status struct {
	Visible  bool
	Enabled  bool
	Required bool
	// Suppressed is set when an optional state removed the required flag
	Suppressed bool
}

// Evaluate resolves a single selector using a default evaluator
func Evaluate(sel Selector, values map[string]any) (bool, error) {
	return (&Evaluator{}).Evaluate(sel, values)
}

// EvaluateRuleSet resolves a rule set using a default evaluator
func EvaluateRuleSet(rs RuleSet, values map[string]any) (bool, error) {
	return (&Evaluator{}).EvaluateRuleSet(rs, values)
}

// Evaluate resolves a single selector against values. A target missing from
// values is treated as empty and unchecked and logged, an unknown condition is
// a RuleEvaluationError.
func (e *Evaluator) Evaluate(sel Selector, values map[string]any) (bool, error) {
	v, found := lookup(values, sel)
	if !found && sel.Condition != ExpressionCondition {
		e.warnf("state condition %q references missing element %q, treating it as empty", sel.Condition, sel.Key)
	}

	switch sel.Condition {
	case EmptyCondition:
		return isEmpty(v), nil

	case FilledCondition:
		return !isEmpty(v), nil

	case CheckedCondition:
		return isChecked(v), nil

	case UncheckedCondition:
		return !isChecked(v), nil

	case ValueCondition:
		return matchValue(sel, v)

	case ExpressionCondition:
		expression, ok := sel.Value.(string)
		if !ok {
			return false, ruleErrorf(sel.Key, string(sel.Condition), "expression must be a string")
		}

		res, err := validator.Validate(map[string]any{"input": values, "value": v}, expression)
		if err != nil {
			return false, ruleErrorf(sel.Key, string(sel.Condition), "%v", err)
		}
		return res, nil

	default:
		return false, ruleErrorf(sel.Key, string(sel.Condition), "unsupported condition")
	}
}

// EvaluateRuleSet combines the selectors of rs, and stops at the first false
// selector, or at the first true one and xor requires exactly one true
func (e *Evaluator) EvaluateRuleSet(rs RuleSet, values map[string]any) (bool, error) {
	switch rs.Conjunction {
	case AndConjunction, "":
		for _, sel := range rs.Selectors {
			ok, err := e.Evaluate(sel, values)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case OrConjunction:
		for _, sel := range rs.Selectors {
			ok, err := e.Evaluate(sel, values)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case XorConjunction:
		matched := 0
		for _, sel := range rs.Selectors {
			ok, err := e.Evaluate(sel, values)
			if err != nil {
				return false, err
			}
			if ok {
				matched++
			}
		}
		return matched == 1, nil

	default:
		return false, ruleErrorf(rs.Owner, "", "unknown conjunction %q", rs.Conjunction)
	}
}

// Resolve applies rules to an element whose #required property is required
func (e *Evaluator) Resolve(rules []RuleSet, required bool, values map[string]any) (Status, error) {
	st := Status{Visible: true, Enabled: true, Required: required}

	for _, rs := range rules {
		res, err := e.EvaluateRuleSet(rs, values)
		if err != nil {
			return st, err
		}

		switch rs.Effect {
		case Visible:
			st.Visible = st.Visible && res
		case Invisible:
			st.Visible = st.Visible && !res
		case Required:
			st.Required = st.Required || res
		case Optional:
			st.Suppressed = st.Suppressed || res
		case Enabled:
			st.Enabled = st.Enabled && res
		case Disabled:
			st.Enabled = st.Enabled && !res
		default:
			return st, ruleErrorf(rs.Owner, "", "unknown effect %q", rs.Effect)
		}
	}

	if st.Suppressed {
		st.Required = false
	}

	return st, nil
}

// ResolveNode parses the states of n and resolves them against values
func (e *Evaluator) ResolveNode(n *elements.Node, values map[string]any) (Status, error) {
	rules, err := Parse(n)
	if err != nil {
		return Status{}, err
	}

	return e.Resolve(rules, n.Properties.Bool("required"), values)
}

func (e *Evaluator) warnf(format string, a ...any) {
	if e.log != nil {
		e.log.Warnf(format, a...)
	}
}

func lookup(values map[string]any, sel Selector) (any, bool) {
	v, ok := values[sel.Key]
	if !ok {
		return nil, false
	}

	if sel.Sub == "" {
		return v, true
	}

	switch val := v.(type) {
	case map[string]any:
		return val[sel.Sub], true

	case []any:
		for _, item := range val {
			if fmt.Sprint(item) == sel.Sub {
				return item, true
			}
		}
		return nil, true

	case []string:
		for _, item := range val {
			if item == sel.Sub {
				return item, true
			}
		}
		return nil, true

	default:
		return nil, true
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		for _, sv := range val {
			if !isEmpty(sv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isChecked(v any) bool {
	switch val := v.(type) {
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]any:
		return !isEmpty(val)
	default:
		return elements.Truthy(v)
	}
}

func asString(v any) string {
	if v == nil {
		return ""
	}

	return fmt.Sprint(v)
}

func asFloat(v any) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(asString(v)), 64)
	return f, err == nil
}

func matchValue(sel Selector, v any) (bool, error) {
	operand, isMap := sel.Value.(map[string]any)
	if !isMap {
		switch list := v.(type) {
		case []any:
			for _, item := range list {
				if asString(item) == asString(sel.Value) {
					return true, nil
				}
			}
			return false, nil

		case []string:
			for _, item := range list {
				if item == asString(sel.Value) {
					return true, nil
				}
			}
			return false, nil
		}

		return asString(v) == asString(sel.Value), nil
	}

	if len(operand) != 1 {
		return false, ruleErrorf(sel.Key, string(sel.Condition), "value comparison needs exactly one operator")
	}

	for op, arg := range operand {
		switch op {
		case "pattern", "!pattern":
			re, err := regexp.Compile(asString(arg))
			if err != nil {
				return false, ruleErrorf(sel.Key, op, "invalid pattern: %v", err)
			}
			matched := re.MatchString(asString(v))
			if op == "!pattern" {
				return !matched, nil
			}
			return matched, nil

		case "greater", "greater_equal", "less", "less_equal":
			left, ok := asFloat(v)
			if !ok {
				return false, nil
			}
			right, ok := asFloat(arg)
			if !ok {
				return false, ruleErrorf(sel.Key, op, "operand %v is not a number", arg)
			}

			switch op {
			case "greater":
				return left > right, nil
			case "greater_equal":
				return left >= right, nil
			case "less":
				return left < right, nil
			default:
				return left <= right, nil
			}

		case "between":
			parts := strings.SplitN(asString(arg), ":", 2)
			if len(parts) != 2 {
				return false, ruleErrorf(sel.Key, op, "between needs a min:max range")
			}
			min, minOk := asFloat(parts[0])
			max, maxOk := asFloat(parts[1])
			if !minOk || !maxOk {
				return false, ruleErrorf(sel.Key, op, "invalid range %q", asString(arg))
			}

			val, ok := asFloat(v)
			if !ok {
				return false, nil
			}
			return val >= min && val <= max, nil

		default:
			return false, ruleErrorf(sel.Key, op, "unsupported value operator")
		}
	}

	return false, nil
}
