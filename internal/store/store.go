// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package store persists form documents, each save replaces the stored
// document in one atomic step and the last writer wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/choria-io/formtree/elements"
)

// ErrNotFound is returned when loading a form that was never saved
var ErrNotFound = errors.New("form not found")

var validID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Store loads and saves form documents by id
type Store interface {
	// Load reads the form document id, ErrNotFound when it does not exist
	Load(ctx context.Context, id string) (*elements.Document, error)
	// Save replaces the form document id
	Save(ctx context.Context, id string, doc *elements.Document) error
	// List returns the ids of all stored forms sorted by id
	List(ctx context.Context) ([]string, error)
	// Delete removes the form document id, ErrNotFound when it does not exist
	Delete(ctx context.Context, id string) error
}

// ValidateID checks that id is usable as a form identifier
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("invalid form id %q", id)
	}

	return nil
}
