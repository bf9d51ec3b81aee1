// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package formtree edits form documents held in a store.
//
// An Editor opens one form at a time, applies edits to its element tree and
// saves it back. Every edit is applied to a copy of the document which only
// replaces the open document once the registry and the state rules accept
// it, a failed edit leaves the open document untouched.
package formtree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/choria-io/formtree/elements"
	"github.com/choria-io/formtree/internal/store"
	"github.com/choria-io/formtree/states"
	"github.com/choria-io/formtree/validation"
	"gopkg.in/yaml.v3"
)

// Config configures an Editor
type Config struct {
	// StorageDirectory keeps forms as YAML files in a directory, mutually exclusive with Database
	StorageDirectory string `yaml:"storage_directory"`
	// Database keeps forms in a SQLite database file
	Database string `yaml:"database"`
	// Excluded are element keys left out of rendered submissions
	Excluded []string `yaml:"excluded"`
	// Sets a custom template delimiter for submission templates
	CustomLeftDelimiter string `yaml:"left_delimiter"`
	// Sets a custom template delimiter for submission templates
	CustomRightDelimiter string `yaml:"right_delimiter"`
}

// Logger is the logging interface used by the editor, no logging is done
// without one
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
}

// ErrNoForm is returned by edits when no form was opened or created
var ErrNoForm = errors.New("no form is open")

// Option configures an Editor
type Option func(*Editor)

// WithLogger configures a logger to use
func WithLogger(l Logger) Option {
	return func(e *Editor) {
		e.log = l
	}
}

// WithRegistry sets the element types documents are checked against
func WithRegistry(r *elements.Registry) Option {
	return func(e *Editor) {
		e.reg = r
	}
}

// Editor loads, edits and saves form documents. It is not safe for
// concurrent use.
type Editor struct {
	cfg   *Config
	reg   *elements.Registry
	store store.Store
	log   Logger
	id    string
	doc   *elements.Document
	dirty bool
}

// LoadConfig reads a YAML configuration file
func LoadConfig(f string) (*Config, error) {
	cfgb, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(cfgb, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", f, err)
	}

	return cfg, nil
}

// New creates an editor using the store described by cfg
func New(ctx context.Context, cfg Config, opts ...Option) (*Editor, error) {
	err := validateConfig(&cfg)
	if err != nil {
		return nil, err
	}

	e := &Editor{cfg: &cfg, reg: elements.DefaultRegistry()}
	for _, o := range opts {
		o(e)
	}

	if cfg.Database != "" {
		e.store, err = store.NewSQLiteStore(ctx, cfg.Database)
	} else {
		e.store, err = store.NewFileStore(cfg.StorageDirectory)
	}
	if err != nil {
		return nil, err
	}

	return e, nil
}

func validateConfig(cfg *Config) error {
	if cfg.StorageDirectory == "" && cfg.Database == "" {
		return fmt.Errorf("storage directory or database is required")
	}

	if cfg.StorageDirectory != "" && cfg.Database != "" {
		return fmt.Errorf("storage directory and database are mutually exclusive")
	}

	if (cfg.CustomLeftDelimiter == "") != (cfg.CustomRightDelimiter == "") {
		return fmt.Errorf("both left and right delimiters are required")
	}

	return nil
}

// Close releases the store
func (e *Editor) Close() error {
	if c, ok := e.store.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// Registry is the set of element types used by the editor
func (e *Editor) Registry() *elements.Registry {
	return e.reg
}

// Forms lists the ids of all stored forms
func (e *Editor) Forms(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// DeleteForm removes a stored form, the open form is closed when it is the
// one removed
func (e *Editor) DeleteForm(ctx context.Context, id string) error {
	err := e.store.Delete(ctx, id)
	if err != nil {
		return err
	}

	if e.id == id {
		e.id = ""
		e.doc = nil
		e.dirty = false
	}

	e.infof("Deleted form %s", id)

	return nil
}

// Open loads the stored form id for editing
func (e *Editor) Open(ctx context.Context, id string) error {
	doc, err := e.store.Load(ctx, id)
	if err != nil {
		return err
	}

	err = e.check(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	e.id = id
	e.doc = doc
	e.dirty = false

	e.debugf("Opened form %s with %d elements", id, len(doc.Keys()))

	return nil
}

// Create starts a new empty form id, nothing is stored until Save
func (e *Editor) Create(id string, title string) error {
	err := store.ValidateID(id)
	if err != nil {
		return err
	}

	doc := &elements.Document{}
	if title != "" {
		doc.Metadata = doc.Metadata.Set("title", title)
	}

	e.id = id
	e.doc = doc
	e.dirty = true

	return nil
}

// ID is the id of the open form
func (e *Editor) ID() string {
	return e.id
}

// Dirty reports whether the open form has unsaved edits
func (e *Editor) Dirty() bool {
	return e.dirty
}

// Document returns a copy of the open document
func (e *Editor) Document() (*elements.Document, error) {
	if e.doc == nil {
		return nil, ErrNoForm
	}

	return e.doc.Clone(), nil
}

// Flatten returns the open document as a flat list for display
func (e *Editor) Flatten() (*elements.FlatTree, error) {
	if e.doc == nil {
		return nil, ErrNoForm
	}

	return elements.Flatten(e.doc), nil
}

// AddElement adds n as the last child of parent, an empty parent adds it at
// the root
func (e *Editor) AddElement(parent string, n *elements.Node) error {
	return e.edit(func(doc *elements.Document) error {
		if n == nil || n.Key == "" {
			return &elements.StructureError{Reason: "element key is required"}
		}

		if existing, _ := doc.Find(n.Key); existing != nil {
			return &elements.StructureError{Key: n.Key, Reason: "duplicate element key"}
		}

		node := n.Clone()

		if parent == elements.RootKey {
			node.Weight = nextWeight(doc.Elements)
			doc.Elements = append(doc.Elements, node)
			return nil
		}

		p, _ := doc.Find(parent)
		if p == nil {
			return &elements.StructureError{Key: n.Key, Reason: fmt.Sprintf("parent %q does not exist", parent)}
		}

		node.Weight = nextWeight(p.Children)
		p.Children = append(p.Children, node)

		return nil
	})
}

// UpdateElement sets properties on the element key. The type and weight
// properties update the element type and weight, a nil value removes the
// property.
func (e *Editor) UpdateElement(key string, props elements.Properties) error {
	return e.edit(func(doc *elements.Document) error {
		n, _ := doc.Find(key)
		if n == nil {
			return &elements.StructureError{Key: key, Reason: "element does not exist"}
		}

		for _, prop := range props {
			switch {
			case prop.Name == "type":
				t, ok := prop.Value.(string)
				if !ok || t == "" {
					return &elements.StructureError{Key: key, Reason: "type must be a non empty string"}
				}
				n.Type = t

			case prop.Name == "weight":
				w, ok := elements.Properties{prop}.Int("weight")
				if !ok {
					return &elements.StructureError{Key: key, Reason: "weight must be an integer"}
				}
				n.Weight = w

			case prop.Value == nil:
				n.Properties = n.Properties.Delete(prop.Name)

			default:
				n.Properties = n.Properties.Put(prop)
			}
		}

		return nil
	})
}

// DeleteElement removes the element key and everything below it
func (e *Editor) DeleteElement(key string) error {
	err := e.edit(func(doc *elements.Document) error {
		if !doc.Remove(key) {
			return &elements.StructureError{Key: key, Reason: "element does not exist"}
		}

		return nil
	})
	if err != nil {
		return err
	}

	e.warnDanglingStates()

	return nil
}

// MoveElement places the element key below parent at position among its
// siblings, a negative or too large position appends it. Siblings are
// renumbered with contiguous weights.
func (e *Editor) MoveElement(key string, parent string, position int) error {
	return e.edit(func(doc *elements.Document) error {
		flat := elements.Flatten(doc)
		if flat.Find(key) == nil {
			return &elements.StructureError{Key: key, Reason: "element does not exist"}
		}

		order := flat.ParentMap()
		for p, keys := range order {
			order[p] = without(keys, key)
		}

		siblings := order[parent]
		if position < 0 || position > len(siblings) {
			position = len(siblings)
		}

		res := append([]string{}, siblings[:position]...)
		res = append(res, key)
		order[parent] = append(res, siblings[position:]...)

		rebuilt, err := elements.Rebuild(flat, order)
		if err != nil {
			return err
		}

		*doc = *rebuilt

		return nil
	})
}

// Reorder rearranges the open document according to parents, as produced by
// a drag and drop editor
func (e *Editor) Reorder(parents elements.ParentMap) error {
	return e.edit(func(doc *elements.Document) error {
		rebuilt, err := elements.Rebuild(elements.Flatten(doc), parents)
		if err != nil {
			return err
		}

		*doc = *rebuilt

		return nil
	})
}

// Save stores the open document
func (e *Editor) Save(ctx context.Context) error {
	if e.doc == nil {
		return ErrNoForm
	}

	err := e.store.Save(ctx, e.id, e.doc)
	if err != nil {
		return err
	}

	e.dirty = false
	e.infof("Saved form %s", e.id)

	return nil
}

// Validate checks submitted values against the open document, all problems
// are returned together
func (e *Editor) Validate(values map[string]any) error {
	if e.doc == nil {
		return ErrNoForm
	}

	return e.selector().Validate(e.doc, values)
}

// ExcludedOptions lists the fields that can be excluded from output, the
// system fields first followed by the configured exclusions
func (e *Editor) ExcludedOptions(exclusions ...string) ([]validation.FieldMeta, error) {
	if e.doc == nil {
		return nil, ErrNoForm
	}

	if len(exclusions) == 0 {
		exclusions = e.cfg.Excluded
	}

	return e.selector().ExcludedOptions(e.doc, exclusions), nil
}

func (e *Editor) selector() *validation.Selector {
	if e.log == nil {
		return validation.NewSelector(e.reg)
	}

	return validation.NewSelector(e.reg, validation.WithLogger(e.log))
}

// edit applies cb to a copy of the open document and keeps the result only
// when it passes all structural checks
func (e *Editor) edit(cb func(doc *elements.Document) error) error {
	if e.doc == nil {
		return ErrNoForm
	}

	candidate := e.doc.Clone()

	err := cb(candidate)
	if err != nil {
		return err
	}

	err = e.check(candidate)
	if err != nil {
		return err
	}

	e.doc = candidate
	e.dirty = true

	return nil
}

func (e *Editor) check(doc *elements.Document) error {
	err := e.reg.Check(doc)
	if err != nil {
		return err
	}

	return states.CheckDependencies(doc)
}

// warnDanglingStates logs state rules referring to elements that are not in
// the open document
func (e *Editor) warnDanglingStates() {
	deps, err := states.Dependencies(e.doc)
	if err != nil {
		return
	}

	for _, owner := range e.doc.Keys() {
		for _, dep := range deps[owner] {
			if n, _ := e.doc.Find(dep); n == nil {
				e.warnf("States of %s refer to missing element %s", owner, dep)
			}
		}
	}
}

func (e *Editor) debugf(format string, v ...any) {
	if e.log != nil {
		e.log.Debugf(format, v...)
	}
}

func (e *Editor) infof(format string, v ...any) {
	if e.log != nil {
		e.log.Infof(format, v...)
	}
}

func (e *Editor) warnf(format string, v ...any) {
	if e.log != nil {
		e.log.Warnf(format, v...)
	}
}

func nextWeight(nodes []*elements.Node) int {
	w := 0
	for i, n := range nodes {
		if i == 0 || n.Weight >= w {
			w = n.Weight + 1
		}
	}

	return w
}

func without(keys []string, key string) []string {
	res := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != key {
			res = append(res, k)
		}
	}

	return res
}
