// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"fmt"
)

// StructureError reports a violated tree invariant such as a dangling parent
// reference, a cyclic parent chain or a composite nesting another composite.
// It is always fatal to the operation that produced it.
type StructureError struct {
	Key    string
	Reason string
}

func (e *StructureError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid element structure: %s", e.Reason)
	}

	return fmt.Sprintf("invalid element structure at %q: %s", e.Key, e.Reason)
}

func structureErrorf(key string, format string, a ...any) error {
	return &StructureError{Key: key, Reason: fmt.Sprintf(format, a...)}
}

// ValidationError is a user facing problem with a submitted value, keyed to
// the offending element. Many of these are usually collected in one batch.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// RuleEvaluationError indicates a misconfigured visibility rule, for example
// one using an unknown condition. It must never be silently defaulted.
type RuleEvaluationError struct {
	Key       string
	Condition string
	Reason    string
}

func (e *RuleEvaluationError) Error() string {
	if e.Condition == "" {
		return fmt.Sprintf("invalid state rule for %q: %s", e.Key, e.Reason)
	}

	return fmt.Sprintf("invalid state rule for %q condition %q: %s", e.Key, e.Condition, e.Reason)
}
