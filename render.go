// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formtree

import (
	"bytes"
	"fmt"
	"reflect"
	"text/template"

	"github.com/CloudyKit/jet/v6"
	"github.com/choria-io/formtree/internal/sprig"
	"github.com/choria-io/formtree/validation"
)

// Engine selects the template language used to render submissions
type Engine string

const (
	// EngineGo renders using text/template with the sprig functions
	EngineGo Engine = "go"
	// EngineJet renders using Jet templates
	EngineJet Engine = "jet"
)

// Field is one submitted value prepared for a template
type Field struct {
	Key   string
	Title string
	Type  string
	Value any
	// Text is Value formatted for display
	Text string
}

// Submission is the data passed to submission templates
type Submission struct {
	// ID is the id of the form
	ID string
	// Title is the form title
	Title string
	// Form holds the form metadata
	Form map[string]any
	// Input is the submission keyed by element key
	Input map[string]any
	// Fields are the submitted values in form order with excluded fields removed
	Fields []Field
}

// Submission prepares values for rendering against the open document. System
// fields are only included when values holds them.
func (e *Editor) Submission(values map[string]any) (*Submission, error) {
	if e.doc == nil {
		return nil, ErrNoForm
	}

	res := &Submission{
		ID:    e.id,
		Title: e.doc.Metadata.String("title"),
		Form:  map[string]any{},
		Input: values,
	}

	for _, prop := range e.doc.Metadata {
		res.Form[prop.Name] = prop.Value
	}

	for _, f := range e.selector().IncludedColumns(e.doc, e.cfg.Excluded) {
		v, ok := values[f.Key]
		if !ok && f.Type == validation.SystemType {
			continue
		}

		res.Fields = append(res.Fields, Field{
			Key:   f.Key,
			Title: f.Title,
			Type:  f.Type,
			Value: v,
			Text:  sprig.FormatValue(v),
		})
	}

	return res, nil
}

// RenderSubmission renders tmpl using values submitted to the open form
func (e *Editor) RenderSubmission(values map[string]any, tmpl string, engine Engine) (string, error) {
	data, err := e.Submission(values)
	if err != nil {
		return "", err
	}

	var res []byte

	switch engine {
	case EngineJet:
		res, err = e.renderJet(e.id, tmpl, data)
	case EngineGo, "":
		res, err = e.renderGo(e.id, tmpl, data)
	default:
		return "", fmt.Errorf("unknown template engine %q", engine)
	}
	if err != nil {
		return "", err
	}

	return string(res), nil
}

func (e *Editor) renderGo(name string, tmpl string, data any) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{})
	templ := template.New(name).Funcs(sprig.TxtFuncMap())

	if e.cfg.CustomLeftDelimiter != "" && e.cfg.CustomRightDelimiter != "" {
		templ.Delims(e.cfg.CustomLeftDelimiter, e.cfg.CustomRightDelimiter)
	}

	templ, err := templ.Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parsing template %v failed: %w", name, err)
	}

	err = templ.Execute(buf, data)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (e *Editor) renderJet(name string, tmpl string, data any) ([]byte, error) {
	loader := jet.NewInMemLoader()
	loader.Set(name, tmpl)

	opts := []jet.Option{jet.WithSafeWriter(nil)}
	if e.cfg.CustomLeftDelimiter != "" && e.cfg.CustomRightDelimiter != "" {
		opts = append(opts, jet.WithDelims(e.cfg.CustomLeftDelimiter, e.cfg.CustomRightDelimiter))
	}

	set := jet.NewSet(loader, opts...)
	set.AddGlobalFunc("formatValue", func(args jet.Arguments) reflect.Value {
		args.RequireNumOfArguments("formatValue", 1, 1)
		v := args.Get(0)
		if !v.IsValid() {
			return reflect.ValueOf("")
		}
		return reflect.ValueOf(sprig.FormatValue(v.Interface()))
	})

	t, err := set.GetTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("parsing template %v failed: %w", name, err)
	}

	buf := bytes.NewBuffer([]byte{})
	err = t.Execute(buf, nil, data)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
