// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package fill collects a submission for a form document interactively on a
// terminal.
//
// Elements are presented in tree order. Before each element its states are
// evaluated against the answers given so far, hidden or disabled elements and
// everything inside hidden containers are skipped. Multiple value elements
// are collected row by row and composite elements ask for each of their sub
// elements. The result is a submission keyed by element key.
package fill

//go:generate mockgen -source fill.go -destination mock_test.go -package fill -typed

import (
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/choria-io/formtree/elements"
	"github.com/choria-io/formtree/multiple"
	"github.com/choria-io/formtree/states"
)

// surveyor abstracts the survey library for testability.
type surveyor interface {
	AskOne(p survey.Prompt, response any, opts ...survey.AskOpt) error
}

type defaultSurveyor struct{}

func (d *defaultSurveyor) AskOne(p survey.Prompt, response any, opts ...survey.AskOpt) error {
	return survey.AskOne(p, response, opts...)
}

// Option configures the form filling process
type Option func(*processor)

// WithRegistry sets the element types used to interpret the document
func WithRegistry(r *elements.Registry) Option {
	return func(p *processor) {
		p.reg = r
	}
}

// WithLogger logs state rules that reference elements without answers
func WithLogger(l states.Logger) Option {
	return func(p *processor) {
		p.eval = states.NewEvaluator(states.WithLogger(l))
	}
}

// WithValues supplies answers used as defaults, for example from an earlier
// submission
func WithValues(v map[string]any) Option {
	return func(p *processor) {
		for k, val := range v {
			p.defaults[k] = val
		}
	}
}

func withSurveyor(s surveyor) Option {
	return func(p *processor) {
		p.surveyor = s
	}
}

func withIsTerminal(f func() bool) Option {
	return func(p *processor) {
		p.isTerminal = f
	}
}

func withOutput(w io.Writer) Option {
	return func(p *processor) {
		p.output = w
	}
}

type processor struct {
	env        map[string]any
	reg        *elements.Registry
	eval       *states.Evaluator
	session    *multiple.Session
	defaults   map[string]any
	values     map[string]any
	surveyor   surveyor
	isTerminal func() bool
	output     io.Writer
}

// FillFile reads the form document in f and fills it interactively
func FillFile(f string, env map[string]any, opts ...Option) (map[string]any, error) {
	doc, err := elements.ParseFile(f)
	if err != nil {
		return nil, err
	}

	return Fill(doc, env, opts...)
}

// Fill presents doc on the terminal and returns the answers keyed by element
// key. The env map is available to titles, descriptions and markup as
// templates, the answers collected so far are available as input.
func Fill(doc *elements.Document, env map[string]any, opts ...Option) (map[string]any, error) {
	proc := &processor{
		env:        env,
		reg:        elements.DefaultRegistry(),
		eval:       states.NewEvaluator(),
		session:    multiple.NewSession(),
		defaults:   map[string]any{},
		values:     map[string]any{},
		surveyor:   &defaultSurveyor{},
		isTerminal: isTerminal,
		output:     os.Stdout,
	}

	for _, o := range opts {
		o(proc)
	}

	if !proc.isTerminal() {
		return nil, fmt.Errorf("can only fill forms on a valid terminal")
	}

	if len(doc.Elements) == 0 {
		return nil, fmt.Errorf("no elements defined")
	}

	err := proc.reg.Check(doc)
	if err != nil {
		return nil, err
	}

	for _, prop := range []string{"title", "description"} {
		if !doc.Metadata.Has(prop) {
			continue
		}

		d, err := proc.render(doc.Metadata.String(prop))
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(proc.output, d)
		fmt.Fprintln(proc.output)
	}

	proc.surveyor.AskOne(&survey.Input{Message: "Press enter to start"}, &struct{}{})

	err = proc.askElements(doc)
	if err != nil {
		return nil, err
	}

	return proc.values, nil
}

// askElements walks the document asking for every visible element, elements
// inside skipped containers are skipped as well
func (p *processor) askElements(doc *elements.Document) error {
	skipped := map[string]bool{}

	return doc.Walk(func(n *elements.Node, parent *elements.Node, depth int) error {
		if parent != nil && skipped[parent.Key] {
			skipped[n.Key] = true
			return nil
		}

		st, err := p.eval.ResolveNode(n, p.values)
		if err != nil {
			return err
		}

		if !st.Visible || !st.Enabled {
			skipped[n.Key] = true
			return nil
		}

		return p.askElement(n, st.Required, depth)
	})
}

// askElement dispatches a single element to the handler for its kind
func (p *processor) askElement(n *elements.Node, required bool, depth int) error {
	switch p.reg.KindOf(n) {
	case elements.KindMarkup:
		return p.showMarkup(n)

	case elements.KindContainer:
		return p.showContainer(n, depth)

	case elements.KindComposite:
		return p.askComposite(n, required)

	default:
		return p.askInputElement(n, required)
	}
}

func (p *processor) askInputElement(n *elements.Node, required bool) error {
	if n.Type == elements.HiddenType || n.Type == elements.ValueType {
		v, ok := p.defaultValue(n)
		if ok {
			p.values[n.Key] = v
		}
		return nil
	}

	err := p.showDescription(n)
	if err != nil {
		return err
	}

	dflt, _ := p.defaultValue(n)

	switch {
	case n.Type == elements.SelectType && p.reg.IsMultiple(n):
		v, err := p.askChoices(n, n.Title(), required, dflt)
		if err != nil {
			return err
		}
		p.values[n.Key] = v

	case p.reg.IsMultiple(n):
		v, err := p.askMultiple(n, required, func(title string, dflt any) (any, error) {
			return p.askInput(n, title, true, dflt)
		})
		if err != nil {
			return err
		}
		p.values[n.Key] = v

	default:
		v, err := p.askInput(n, n.Title(), required, dflt)
		if err != nil {
			return err
		}
		if !isEmpty(v) {
			p.values[n.Key] = v
		}
	}

	return nil
}

func (p *processor) askComposite(n *elements.Node, required bool) error {
	subs, err := p.reg.SubElements(n)
	if err != nil {
		return err
	}

	err = p.showDescription(n)
	if err != nil {
		return err
	}

	askOne := func(title string, dflt any) (any, error) {
		fmt.Fprintln(p.output, colorMarkup(fmt.Sprintf("{bold}%s{/bold}", title)))

		current, _ := dflt.(map[string]any)
		res := map[string]any{}

		for _, sub := range subs {
			v, err := p.askInput(sub, sub.Title(), sub.Properties.Bool("required"), current[sub.Key])
			if err != nil {
				return nil, err
			}
			res[sub.Key] = v
		}

		return res, nil
	}

	if p.reg.IsMultiple(n) {
		v, err := p.askMultiple(n, required, askOne)
		if err != nil {
			return err
		}
		p.values[n.Key] = v
		return nil
	}

	dflt, _ := p.defaultValue(n)
	v, err := askOne(n.Title(), dflt)
	if err != nil {
		return err
	}

	if !isEmpty(v) || required {
		p.values[n.Key] = v
	}

	return nil
}

// askMultiple collects rows of a multiple value element into a container
// until the user declines to add more or the limit is reached, rows left over
// from defaults after declining are removed
func (p *processor) askMultiple(n *elements.Node, required bool, ask func(title string, dflt any) (any, error)) ([]any, error) {
	limit, _ := elements.MultipleLimit(n)
	dflt, _ := p.defaultValue(n)

	c := p.session.Container(n.Key, asList(dflt), multiple.Options{Limit: limit})
	defer p.session.Forget(n.Key)

	i := 0
	for ; limit == 0 || i < limit; i++ {
		if i > 0 || !required {
			prompt := fmt.Sprintf("Add additional '%s' entry", n.Title())
			if i == 0 {
				prompt = fmt.Sprintf("Add first '%s' entry", n.Title())
			}

			ok, err := p.askConfirmation(prompt, i < c.NumberOfItems() && !isEmpty(c.Items()[i].Value))
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
		}

		if i >= c.NumberOfItems() {
			_, err := c.AddItems(1)
			if err != nil {
				return nil, err
			}
		}

		v, err := ask(fmt.Sprintf("%s #%d", n.Title(), i+1), c.Items()[i].Value)
		if err != nil {
			return nil, err
		}

		err = c.SetValue(i, v)
		if err != nil {
			return nil, err
		}
	}

	for c.NumberOfItems() > max(i, 1) {
		_, err := c.RemoveItem(c.NumberOfItems() - 1)
		if err != nil {
			return nil, err
		}
	}

	if i == 0 {
		_, err := c.RemoveItem(0)
		if err != nil {
			return nil, err
		}
	}

	return c.Submit()
}

func (p *processor) askConfirmation(prompt string, dflt bool) (bool, error) {
	ans := dflt

	err := p.surveyor.AskOne(&survey.Confirm{
		Message: prompt,
		Default: dflt,
	}, &ans)

	return ans, err
}

func (p *processor) defaultValue(n *elements.Node) (any, bool) {
	if v, ok := p.defaults[n.Key]; ok {
		return v, true
	}

	for _, prop := range []string{"value", "default_value"} {
		if v, ok := n.Properties.Get(prop); ok {
			return v, true
		}
	}

	return nil, false
}

func (p *processor) showMarkup(n *elements.Node) error {
	d, err := p.render(n.Properties.String("markup"))
	if err != nil {
		return fmt.Errorf("%s: %w", n.Key, err)
	}

	fmt.Fprintln(p.output)
	fmt.Fprintln(p.output, d)

	return nil
}

func (p *processor) showContainer(n *elements.Node, depth int) error {
	title, err := p.render(n.Title())
	if err != nil {
		return fmt.Errorf("%s: %w", n.Key, err)
	}

	fmt.Fprintln(p.output)
	fmt.Fprintln(p.output, indent(depth)+colorMarkup(fmt.Sprintf("{bold}%s{/bold}", title)))

	return p.showDescription(n)
}

func (p *processor) showDescription(n *elements.Node) error {
	desc := n.Properties.String("description")
	if desc == "" {
		return nil
	}

	d, err := p.render(desc)
	if err != nil {
		return fmt.Errorf("%s: %w", n.Key, err)
	}

	fmt.Fprintln(p.output)
	fmt.Fprintln(p.output, d)
	fmt.Fprintln(p.output)

	return nil
}

func (p *processor) render(tmpl string) (string, error) {
	data := map[string]any{}
	for k, v := range p.env {
		data[k] = v
	}
	data["input"] = p.values
	data["Input"] = p.values

	return renderTemplate(tmpl, data)
}
