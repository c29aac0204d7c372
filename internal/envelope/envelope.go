// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package envelope decodes API response bodies into a tagged union once, at
// the gateway boundary, and extracts lists and chat replies from it.
//
// Backends wrap list payloads inconsistently: a bare array, or an object
// holding the array under "data", a domain key such as "agents", or
// "result". Normalize hides that from every consumer.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Kind tags the top-level shape of a decoded body.
type Kind int

const (
	KindNull Kind = iota
	KindList
	KindObject
	KindScalar
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindScalar:
		return "scalar"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Envelope is a decoded response body.
type Envelope struct {
	Kind   Kind
	Raw    json.RawMessage
	List   []any
	Object map[string]any
	Scalar any
}

// Decode classifies and decodes raw. Bodies that are not valid JSON become
// a KindScalar envelope holding the text, since a 2xx response with a plain
// text body is still a successful response.
func Decode(raw []byte) *Envelope {
	trimmed := bytes.TrimSpace(raw)
	env := &Envelope{Raw: json.RawMessage(trimmed)}
	if len(trimmed) == 0 {
		env.Kind = KindNull
		return env
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		env.Kind = KindScalar
		env.Scalar = string(trimmed)
		return env
	}
	return FromValue(v, trimmed)
}

// FromValue wraps an already decoded value.
func FromValue(v any, raw json.RawMessage) *Envelope {
	env := &Envelope{Raw: raw}
	switch x := v.(type) {
	case nil:
		env.Kind = KindNull
	case []any:
		env.Kind = KindList
		env.List = x
	case map[string]any:
		env.Kind = KindObject
		env.Object = x
	default:
		env.Kind = KindScalar
		env.Scalar = x
	}
	return env
}

// Value returns the decoded value as a plain any.
func (e *Envelope) Value() any {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindList:
		return e.List
	case KindObject:
		return e.Object
	case KindScalar:
		return e.Scalar
	default:
		return nil
	}
}

// Items returns the list carried by the envelope (see Normalize).
func (e *Envelope) Items(domainKey string) []any {
	return Normalize(e.Value(), domainKey)
}

// Field returns a top-level object field, or nil.
func (e *Envelope) Field(name string) any {
	if e == nil || e.Kind != KindObject {
		return nil
	}
	return e.Object[name]
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize coerces a decoded JSON value into a list. An array is returned
// unchanged. An object is probed for an array under "data", then domainKey,
// then "result", in that order. Anything else yields an empty list.
//
// Normalize is idempotent: normalizing its own output returns that output.
func Normalize(v any, domainKey string) []any {
	switch x := v.(type) {
	case []any:
		return x
	case map[string]any:
		keys := []string{"data", domainKey, "result"}
		for _, k := range keys {
			if k == "" {
				continue
			}
			if list, ok := x[k].([]any); ok {
				return list
			}
		}
	}
	return []any{}
}

// DecodeList normalizes the envelope and decodes each item into T. Items
// that do not decode are skipped and logged rather than failing the list.
func DecodeList[T any](env *Envelope, domainKey string, log logrus.FieldLogger) []T {
	items := env.Items(domainKey)
	out := make([]T, 0, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			if log != nil {
				log.WithFields(logrus.Fields{"key": domainKey, "index": i}).
					WithError(err).Warn("skipping malformed list item")
			}
			continue
		}
		out = append(out, v)
	}
	return out
}
