// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package validator evaluates boolean expressions against form values, it is
// used for #validation properties, expression based states and prompt
// validation.
package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/expr-lang/expr"
)

// Validate compiles and runs expression against env, the expression must
// produce a boolean. Unknown variables evaluate to nil.
func Validate(env map[string]any, expression string) (bool, error) {
	if env == nil {
		env = map[string]any{}
	}

	program, err := expr.Compile(expression, append(functions(), expr.Env(env), expr.AsBool(), expr.AllowUndefinedVariables())...)
	if err != nil {
		return false, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	res, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("expression %q failed: %w", expression, err)
	}

	ok, isBool := res.(bool)
	if !isBool {
		return false, fmt.Errorf("expression %q did not return a boolean", expression)
	}

	return ok, nil
}

// ValidateValue runs expression with the single variable value
func ValidateValue(value any, expression string) (bool, error) {
	return Validate(map[string]any{"value": value}, expression)
}

// SurveyValidator adapts an expression to a survey prompt validator, empty
// answers pass when the prompt is not required
func SurveyValidator(expression string, required bool) survey.Validator {
	return func(ans any) error {
		if !required && isEmptyAnswer(ans) {
			return nil
		}

		ok, err := ValidateValue(answerValue(ans), expression)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("validation using %q did not pass", expression)
		}

		return nil
	}
}

func answerValue(ans any) any {
	if o, ok := ans.(survey.OptionAnswer); ok {
		return o.Value
	}

	return ans
}

func isEmptyAnswer(ans any) bool {
	switch v := answerValue(ans).(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}

func functions() []expr.Option {
	return []expr.Option{
		expr.Function("isInt", func(params ...any) (any, error) {
			_, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(params[0])))
			return err == nil, nil
		}, new(func(any) bool)),

		expr.Function("isFloat", func(params ...any) (any, error) {
			_, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(params[0])), 64)
			return err == nil, nil
		}, new(func(any) bool)),

		expr.Function("isEmail", func(params ...any) (any, error) {
			_, err := mail.ParseAddress(fmt.Sprint(params[0]))
			return err == nil, nil
		}, new(func(any) bool)),

		expr.Function("isURL", func(params ...any) (any, error) {
			u, err := url.ParseRequestURI(fmt.Sprint(params[0]))
			return err == nil && u.Scheme != "" && u.Host != "", nil
		}, new(func(any) bool)),

		expr.Function("isEmpty", func(params ...any) (any, error) {
			switch v := params[0].(type) {
			case nil:
				return true, nil
			case string:
				return strings.TrimSpace(v) == "", nil
			case []any:
				return len(v) == 0, nil
			case map[string]any:
				return len(v) == 0, nil
			default:
				return false, nil
			}
		}, new(func(any) bool)),
	}
}
