// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package validation decides which elements take part in validation and
// output, and validates submitted values against a form document.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/choria-io/formtree/elements"
	"github.com/choria-io/formtree/internal/validator"
	"github.com/choria-io/formtree/multiple"
	"github.com/choria-io/formtree/states"
	"go.uber.org/multierr"
)

// Selector validates submissions and selects fields for output
type Selector struct {
	reg  *elements.Registry
	eval *states.Evaluator
}

// Option configures a Selector
type Option func(*Selector)

// WithLogger logs state rules that reference missing elements to l
func WithLogger(l states.Logger) Option {
	return func(s *Selector) {
		s.eval = states.NewEvaluator(states.WithLogger(l))
	}
}

// NewSelector creates a selector for documents using types from reg
func NewSelector(reg *elements.Registry, opts ...Option) *Selector {
	s := &Selector{reg: reg, eval: states.NewEvaluator()}
	for _, o := range opts {
		o(s)
	}

	return s
}

// IsRequired reports whether n requires a value given the current values,
// #required can be overridden by required states and suppressed by optional
// states
func (s *Selector) IsRequired(n *elements.Node, values map[string]any) (bool, error) {
	st, err := s.eval.ResolveNode(n, values)
	if err != nil {
		return false, err
	}

	return st.Required, nil
}

// Validate checks values against every element of doc and returns all
// ValidationErrors combined, use Errors to list them. Elements that are
// hidden or disabled by their states, or sit in a hidden container, are not
// validated. A misconfigured state rule aborts validation with a
// RuleEvaluationError.
func (s *Selector) Validate(doc *elements.Document, values map[string]any) error {
	if values == nil {
		values = map[string]any{}
	}

	var errs error
	skipped := map[string]bool{}

	err := doc.Walk(func(n *elements.Node, parent *elements.Node, _ int) error {
		if parent != nil && skipped[parent.Key] {
			skipped[n.Key] = true
			return nil
		}

		st, err := s.eval.ResolveNode(n, values)
		if err != nil {
			return err
		}

		if !st.Visible || !st.Enabled {
			skipped[n.Key] = true
			return nil
		}

		switch s.reg.KindOf(n) {
		case elements.KindInput:
			errs = multierr.Append(errs, s.validateInput(n, st.Required, values))
		case elements.KindComposite:
			errs = multierr.Append(errs, s.validateComposite(n, st.Required, values))
		}

		return nil
	})
	if err != nil {
		return err
	}

	return errs
}

// Errors lists the validation errors held in err
func Errors(err error) []*elements.ValidationError {
	var res []*elements.ValidationError

	for _, e := range multierr.Errors(err) {
		var verr *elements.ValidationError
		if errors.As(e, &verr) {
			res = append(res, verr)
		}
	}

	return res
}

func (s *Selector) validateInput(n *elements.Node, required bool, values map[string]any) error {
	v := values[n.Key]

	if s.reg.IsMultiple(n) {
		return s.validateMultiple(n, required, v, func(item any) error {
			return checkValue(n.Key, n, item, values)
		})
	}

	if isEmpty(v) {
		if required {
			return invalid(n.Key, "%s is required", n.Title())
		}
		return nil
	}

	if list, ok := v.([]any); ok && n.Type == elements.CheckboxesType {
		var errs error
		for _, item := range list {
			errs = multierr.Append(errs, checkOption(n.Key, n, item))
		}
		return errs
	}

	return checkValue(n.Key, n, v, values)
}

func (s *Selector) validateComposite(n *elements.Node, required bool, values map[string]any) error {
	subs, err := s.reg.SubElements(n)
	if err != nil {
		return invalid(n.Key, "%v", err)
	}

	check := func(item any) error {
		m, ok := item.(map[string]any)
		if !ok {
			return invalid(n.Key, "%s must have a value per field", n.Title())
		}

		var errs error
		for _, sub := range subs {
			sv := m[sub.Key]
			key := fmt.Sprintf("%s[%s]", n.Key, sub.Key)

			if isEmpty(sv) {
				if sub.Properties.Bool("required") {
					errs = multierr.Append(errs, invalid(key, "%s is required", sub.Title()))
				}
				continue
			}

			errs = multierr.Append(errs, checkValue(key, sub, sv, values))
		}

		return errs
	}

	v := values[n.Key]

	if s.reg.IsMultiple(n) {
		return s.validateMultiple(n, required, v, check)
	}

	if isEmpty(v) {
		if required {
			return invalid(n.Key, "%s is required", n.Title())
		}
		return nil
	}

	return check(v)
}

func (s *Selector) validateMultiple(n *elements.Node, required bool, v any, check func(any) error) error {
	items := multiple.ConvertValuesToItems(multiple.ItemsFromValues(asList(v)))

	err := multiple.New(n.Key, items, multiple.Options{}).Validate(required)
	if err != nil {
		return err
	}

	limit, _ := elements.MultipleLimit(n)
	if limit > 0 && len(items) > limit {
		return invalid(n.Key, "%s allows at most %d values", n.Title(), limit)
	}

	var errs error
	for _, item := range items {
		errs = multierr.Append(errs, check(item))
	}

	return errs
}

// checkValue validates a non empty value of n, errors are reported against key
func checkValue(key string, n *elements.Node, v any, values map[string]any) error {
	title := n.Title()
	text := strings.TrimSpace(fmt.Sprint(v))

	var errs error

	switch n.Type {
	case elements.EmailType:
		errs = multierr.Append(errs, checkExpression(key, v, "isEmail(value)", fmt.Sprintf("%s must be a valid email address", title)))
	case elements.URLType:
		errs = multierr.Append(errs, checkExpression(key, v, "isURL(value)", fmt.Sprintf("%s must be a valid URL", title)))
	case elements.NumberType:
		errs = multierr.Append(errs, checkExpression(key, v, "isFloat(value)", fmt.Sprintf("%s must be a number", title)))
	case elements.SelectType, elements.RadiosType:
		errs = multierr.Append(errs, checkOption(key, n, v))
	}

	if pattern := n.Properties.String("pattern"); pattern != "" {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		switch {
		case err != nil:
			errs = multierr.Append(errs, invalid(key, "%s has an invalid pattern %q", title, pattern))
		case !re.MatchString(text):
			msg := n.Properties.String("pattern_error")
			if msg == "" {
				msg = fmt.Sprintf("%s is not in the right format", title)
			}
			errs = multierr.Append(errs, &elements.ValidationError{Key: key, Message: msg})
		}
	}

	if min, ok := n.Properties.Int("minlength"); ok && utf8.RuneCountInString(text) < min {
		errs = multierr.Append(errs, invalid(key, "%s must be at least %d characters", title, min))
	}

	if max, ok := n.Properties.Int("maxlength"); ok && utf8.RuneCountInString(text) > max {
		errs = multierr.Append(errs, invalid(key, "%s cannot be longer than %d characters", title, max))
	}

	errs = multierr.Append(errs, checkRange(key, n, text))

	if expression := n.Properties.String("validation"); expression != "" {
		ok, err := validator.Validate(map[string]any{"value": v, "input": values}, expression)
		switch {
		case err != nil:
			errs = multierr.Append(errs, invalid(key, "%s could not be validated: %v", title, err))
		case !ok:
			msg := n.Properties.String("validation_message")
			if msg == "" {
				msg = fmt.Sprintf("%s is not valid", title)
			}
			errs = multierr.Append(errs, &elements.ValidationError{Key: key, Message: msg})
		}
	}

	return errs
}

func checkRange(key string, n *elements.Node, text string) error {
	min, hasMin := n.Properties.Float("min")
	max, hasMax := n.Properties.Float("max")
	if !hasMin && !hasMax {
		return nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return invalid(key, "%s must be a number", n.Title())
	}

	if hasMin && f < min {
		return invalid(key, "%s must be at least %v", n.Title(), min)
	}

	if hasMax && f > max {
		return invalid(key, "%s must be no more than %v", n.Title(), max)
	}

	return nil
}

func checkOption(key string, n *elements.Node, v any) error {
	opts := n.Properties.Options()
	if len(opts) == 0 {
		return nil
	}

	choice := fmt.Sprint(v)
	for _, o := range opts {
		if o.Value == choice {
			return nil
		}
	}

	return invalid(key, "%s has an illegal choice %q", n.Title(), choice)
}

func checkExpression(key string, v any, expression string, msg string) error {
	ok, err := validator.ValidateValue(v, expression)
	if err != nil || !ok {
		return &elements.ValidationError{Key: key, Message: msg}
	}

	return nil
}

func invalid(key string, format string, a ...any) error {
	return &elements.ValidationError{Key: key, Message: fmt.Sprintf(format, a...)}
}

func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []string:
		res := make([]any, len(val))
		for i, s := range val {
			res[i] = s
		}
		return res
	default:
		return []any{v}
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
