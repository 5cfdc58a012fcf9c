// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package bind

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// CoerciveSet is a set that funnels every inserted or queried value through a
// single conversion function, so callers can mix raw representations (ints,
// strings, snowflakes) without scattering conversions at each call site. Set
// algebra maps both operands through the same conversion by construction,
// since both sides already hold converted elements.
type CoerciveSet[T cmp.Ordered] struct {
	convert func(any) (T, bool)
	items   map[T]struct{}
}

// NewCoerciveSet creates a set with the given conversion function and seeds
// it with values. Values the conversion rejects are dropped.
func NewCoerciveSet[T cmp.Ordered](convert func(any) (T, bool), values ...any) *CoerciveSet[T] {
	s := &CoerciveSet[T]{
		convert: convert,
		items:   make(map[T]struct{}),
	}
	s.Update(values...)
	return s
}

// Add inserts one value.
func (s *CoerciveSet[T]) Add(v any) {
	if item, ok := s.convert(v); ok {
		s.items[item] = struct{}{}
	}
}

// Update inserts many values.
func (s *CoerciveSet[T]) Update(values ...any) {
	for _, v := range values {
		s.Add(v)
	}
}

// Contains reports membership after conversion.
func (s *CoerciveSet[T]) Contains(v any) bool {
	item, ok := s.convert(v)
	if !ok {
		return false
	}
	_, exists := s.items[item]
	return exists
}

// Remove deletes a value; absent values are a no-op.
func (s *CoerciveSet[T]) Remove(v any) {
	if item, ok := s.convert(v); ok {
		delete(s.items, item)
	}
}

// Len returns the element count.
func (s *CoerciveSet[T]) Len() int { return len(s.items) }

// Items returns the elements in sorted order.
func (s *CoerciveSet[T]) Items() []T {
	out := make([]T, 0, len(s.items))
	for item := range s.items {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set holding elements of either operand.
func (s *CoerciveSet[T]) Union(other *CoerciveSet[T]) *CoerciveSet[T] {
	out := NewCoerciveSet(s.convert)
	for item := range s.items {
		out.items[item] = struct{}{}
	}
	for item := range other.items {
		out.items[item] = struct{}{}
	}
	return out
}

// Intersection returns a new set holding elements of both operands.
func (s *CoerciveSet[T]) Intersection(other *CoerciveSet[T]) *CoerciveSet[T] {
	out := NewCoerciveSet(s.convert)
	for item := range s.items {
		if _, ok := other.items[item]; ok {
			out.items[item] = struct{}{}
		}
	}
	return out
}

// Difference returns a new set holding elements of s absent from other.
func (s *CoerciveSet[T]) Difference(other *CoerciveSet[T]) *CoerciveSet[T] {
	out := NewCoerciveSet(s.convert)
	for item := range s.items {
		if _, ok := other.items[item]; !ok {
			out.items[item] = struct{}{}
		}
	}
	return out
}

// SymmetricDifference returns a new set holding elements in exactly one operand.
func (s *CoerciveSet[T]) SymmetricDifference(other *CoerciveSet[T]) *CoerciveSet[T] {
	out := s.Difference(other)
	for item := range other.items {
		if _, ok := s.items[item]; !ok {
			out.items[item] = struct{}{}
		}
	}
	return out
}

// String renders the sorted elements joined by ", ".
func (s *CoerciveSet[T]) String() string {
	items := s.Items()
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprint(item)
	}
	return strings.Join(parts, ", ")
}

// snowflakeString normalizes a role/user id to its canonical string form.
// Accepts strings and the integer widths ids show up as after JSON decoding.
func snowflakeString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		id = strings.TrimSpace(id)
		return id, id != ""
	case int:
		return strconv.Itoa(id), true
	case int32:
		return strconv.FormatInt(int64(id), 10), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case uint64:
		return strconv.FormatUint(id, 10), true
	case float64:
		return strconv.FormatInt(int64(id), 10), true
	}
	return "", false
}

// NewSnowflakeSet creates a set of canonical snowflake id strings.
func NewSnowflakeSet(values ...any) *CoerciveSet[string] {
	return NewCoerciveSet(snowflakeString, values...)
}

// NewStringSet creates a set of plain strings, stringifying other values.
func NewStringSet(values ...any) *CoerciveSet[string] {
	return NewCoerciveSet(func(v any) (string, bool) {
		if s, ok := v.(string); ok {
			return s, true
		}
		return fmt.Sprint(v), true
	}, values...)
}
