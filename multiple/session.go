// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package multiple

import (
	"github.com/google/uuid"
)

// Session scopes the containers of one editing session. Two sessions editing
// the same form never share row counts.
type Session struct {
	id         string
	containers map[string]*Container
}

// NewSession starts a session with a random identity
func NewSession() *Session {
	return &Session{
		id:         uuid.NewString(),
		containers: map[string]*Container{},
	}
}

// ID is the unique session identity
func (s *Session) ID() string {
	return s.id
}

// Container returns the container for element key, creating it with the
// given defaults on first use
func (s *Session) Container(key string, defaults []any, opts Options) *Container {
	c, ok := s.containers[key]
	if !ok {
		c = New(key, defaults, opts)
		s.containers[key] = c
	}

	return c
}

// Lookup returns an existing container
func (s *Session) Lookup(key string) (*Container, bool) {
	c, ok := s.containers[key]
	return c, ok
}

// Forget drops the container of element key, used when the element is deleted
func (s *Session) Forget(key string) {
	delete(s.containers, key)
}
