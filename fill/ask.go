// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package fill

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/choria-io/formtree/elements"
	"github.com/choria-io/formtree/internal/validator"
)

// askInput prompts for a single value of an input element
func (p *processor) askInput(n *elements.Node, title string, required bool, dflt any) (any, error) {
	switch n.Type {
	case elements.CheckboxType:
		return p.askBool(n, title, dflt)

	case elements.SelectType, elements.RadiosType:
		return p.askChoice(n, title, required, dflt)

	case elements.CheckboxesType:
		return p.askChoices(n, title, required, dflt)

	case elements.NumberType:
		return p.askNumber(n, title, required, dflt)

	default:
		return p.askString(n, title, required, dflt)
	}
}

// askString prompts for text, passwords and multi line text use their own
// prompt types
func (p *processor) askString(n *elements.Node, title string, required bool, dflt any) (any, error) {
	var ans string
	var opts []survey.AskOpt

	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}

	if expression := stringValidation(n); expression != "" {
		opts = append(opts, survey.WithValidator(validator.SurveyValidator(expression, required)))
	}

	help := n.Properties.String("help")
	var err error

	switch n.Type {
	case elements.PasswordType:
		err = p.surveyor.AskOne(&survey.Password{
			Message: title,
			Help:    help,
		}, &ans, opts...)

	case elements.TextareaType:
		err = p.surveyor.AskOne(&survey.Multiline{
			Message: title,
			Help:    help,
			Default: valueString(dflt),
		}, &ans, opts...)

	default:
		err = p.surveyor.AskOne(&survey.Input{
			Message: title,
			Help:    help,
			Default: valueString(dflt),
		}, &ans, opts...)
	}
	if err != nil {
		return nil, err
	}

	return strings.TrimSpace(ans), nil
}

// askNumber prompts for a number, whole numbers are returned as int
func (p *processor) askNumber(n *elements.Node, title string, required bool, dflt any) (any, error) {
	var ans string

	validation := "isFloat(value)"
	if expression := n.Properties.String("validation"); expression != "" {
		validation = fmt.Sprintf("%s && (%s)", validation, expression)
	}

	err := p.surveyor.AskOne(&survey.Input{
		Message: title,
		Help:    n.Properties.String("help"),
		Default: valueString(dflt),
	}, &ans, survey.WithValidator(validator.SurveyValidator(validation, required)))
	if err != nil {
		return nil, err
	}

	ans = strings.TrimSpace(ans)
	if ans == "" {
		return nil, nil
	}

	if i, err := strconv.Atoi(ans); err == nil {
		return i, nil
	}

	return strconv.ParseFloat(ans, 64)
}

func (p *processor) askBool(n *elements.Node, title string, dflt any) (any, error) {
	ans := elements.Truthy(dflt)

	err := p.surveyor.AskOne(&survey.Confirm{
		Message: title,
		Help:    n.Properties.String("help"),
		Default: ans,
	}, &ans)
	if err != nil {
		return nil, err
	}

	return ans, nil
}

// askChoice presents the #options of n and returns the chosen option value,
// without options a free text answer is accepted
func (p *processor) askChoice(n *elements.Node, title string, required bool, dflt any) (any, error) {
	options := n.Properties.Options()
	if len(options) == 0 {
		return p.askString(n, title, required, dflt)
	}

	labels, byLabel := optionLabels(options)

	deflt := labels[0]
	for _, o := range options {
		if o.Value == valueString(dflt) {
			deflt = o.Label
		}
	}

	var ans string
	var opts []survey.AskOpt

	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}

	err := p.surveyor.AskOne(&survey.Select{
		Message: title,
		Help:    n.Properties.String("help"),
		Default: deflt,
		Options: labels,
	}, &ans, opts...)
	if err != nil {
		return nil, err
	}

	return byLabel[ans], nil
}

// askChoices presents the #options of n for multiple selection and returns
// the chosen option values in option order
func (p *processor) askChoices(n *elements.Node, title string, required bool, dflt any) (any, error) {
	options := n.Properties.Options()
	if len(options) == 0 {
		return nil, fmt.Errorf("%s: no options defined", n.Key)
	}

	labels, byLabel := optionLabels(options)

	var deflt []string
	for _, v := range asList(dflt) {
		for _, o := range options {
			if o.Value == valueString(v) {
				deflt = append(deflt, o.Label)
			}
		}
	}

	var ans []string
	var opts []survey.AskOpt

	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}

	err := p.surveyor.AskOne(&survey.MultiSelect{
		Message: title,
		Help:    n.Properties.String("help"),
		Default: deflt,
		Options: labels,
	}, &ans, opts...)
	if err != nil {
		return nil, err
	}

	res := []any{}
	for _, l := range labels {
		for _, a := range ans {
			if a == l {
				res = append(res, byLabel[l])
			}
		}
	}

	return res, nil
}

// stringValidation combines the type specific check of n with its
// #validation expression
func stringValidation(n *elements.Node) string {
	var parts []string

	switch n.Type {
	case elements.EmailType:
		parts = append(parts, "isEmail(value)")
	case elements.URLType:
		parts = append(parts, "isURL(value)")
	}

	if pattern := n.Properties.String("pattern"); pattern != "" {
		parts = append(parts, fmt.Sprintf("value matches %q", "^(?:"+pattern+")$"))
	}

	if expression := n.Properties.String("validation"); expression != "" {
		parts = append(parts, "("+expression+")")
	}

	return strings.Join(parts, " && ")
}

func optionLabels(options []elements.Option) ([]string, map[string]string) {
	labels := make([]string, len(options))
	byLabel := make(map[string]string, len(options))

	for i, o := range options {
		labels[i] = o.Label
		byLabel[o.Label] = o.Value
	}

	return labels, byLabel
}

func valueString(v any) string {
	if v == nil {
		return ""
	}

	return fmt.Sprint(v)
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
	case []any:
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

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
