// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/choria-io/formtree/elements"
)

const fileExtension = ".yaml"

// FileStore keeps every form as a YAML file in a directory
type FileStore struct {
	dir string
}

// NewFileStore creates a store in dir, creating the directory when needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, err
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExtension)
}

func (s *FileStore) Load(_ context.Context, id string) (*elements.Document, error) {
	err := ValidateID(id)
	if err != nil {
		return nil, err
	}

	doc, err := elements.ParseFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	return doc, err
}

// Save writes the document to a temporary file in the same directory and
// renames it over the previous version
func (s *FileStore) Save(_ context.Context, id string, doc *elements.Document) error {
	err := ValidateID(id)
	if err != nil {
		return err
	}

	data, err := elements.Marshal(doc)
	if err != nil {
		return err
	}

	tf, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tf.Name())

	_, err = tf.Write(data)
	if err != nil {
		tf.Close()
		return err
	}

	err = tf.Sync()
	if err != nil {
		tf.Close()
		return err
	}

	err = tf.Close()
	if err != nil {
		return err
	}

	return os.Rename(tf.Name(), s.path(id))
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var res []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExtension {
			continue
		}
		res = append(res, strings.TrimSuffix(name, fileExtension))
	}

	sort.Strings(res)

	return res, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	err := ValidateID(id)
	if err != nil {
		return err
	}

	err = os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	return err
}
