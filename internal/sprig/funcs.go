// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package sprig provides the template functions available to element titles,
// markup and submission templates: the sprig library plus form helpers.
package sprig

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"
)

// TxtFuncMap returns the sprig text template functions extended with uuidv4,
// randBytes and formatValue
func TxtFuncMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["uuidv4"] = uuidv4
	funcs["randBytes"] = randBytes
	funcs["formatValue"] = FormatValue

	return funcs
}

func randBytes(count int) (string, error) {
	buf := make([]byte, count)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// uuidv4 provides a safe and secure UUID v4 implementation
func uuidv4() string {
	return uuid.New().String()
}

// FormatValue renders a submitted value as text: lists are joined with
// commas and composite values become "key: value" pairs in key order
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""

	case string:
		return val

	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")

	case []string:
		return strings.Join(val, ", ")

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			s := FormatValue(val[k])
			if s == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", k, s))
		}
		return strings.Join(parts, "; ")

	default:
		return fmt.Sprint(v)
	}
}
