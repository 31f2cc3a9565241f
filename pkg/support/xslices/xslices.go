// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide missing functionality to the slices package.
package xslices

import (
	"cmp"
	"flag"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"
)

// Copy creates a new (shallow) copy of T. A short cut to a call to `make` and then `copy`.
// It returns nil for empty slices.
func Copy[T any](slice []T) []T {
	if len(slice) == 0 {
		return nil
	}
	slice2 := make([]T, len(slice))
	copy(slice2, slice)
	return slice2
}

// FillSlice with fill the slice with the given value.
func FillSlice[T any](slice []T, value T) {
	if len(slice) == 0 {
		return
	}
	// Doubling copies: faster than a loop for large slices.
	slice[0] = value
	for filled := 1; filled < len(slice); filled *= 2 {
		copy(slice[filled:], slice[:filled])
	}
}

// SliceWithValue creates a slice of given size filled with given value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	FillSlice(s, value)
	return s
}

// Iota returns a slice of incremental int values, starting with start and of length len.
// Eg: Iota(3.0, 2) -> []float64{3.0, 4.0}
func Iota[T interface {
	constraints.Integer | constraints.Float
}](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// SortedKeys returns the sorted keys of a map.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Max scans the slice and returns the largest value. It returns the zero value for an empty slice.
func Max[T cmp.Ordered](slice []T) (max T) {
	if len(slice) == 0 {
		return
	}
	return slices.Max(slice)
}

// Min scans the slice and returns the smallest value. It returns the zero value for an empty slice.
func Min[T cmp.Ordered](slice []T) (min T) {
	if len(slice) == 0 {
		return
	}
	return slices.Min(slice)
}

// SlicesInDelta checks whether s0 and s1 have the same length and that each of their values
// are within the given delta. NaN values are only considered close to other NaN values.
//
// If delta <= 0, it checks for equality.
func SlicesInDelta[T constraints.Integer | constraints.Float](s0, s1 []T, delta float64) bool {
	if len(s0) != len(s1) {
		return false
	}
	for ii, e0 := range s0 {
		f0, f1 := float64(e0), float64(s1[ii])
		if math.IsNaN(f0) || math.IsNaN(f1) {
			if math.IsNaN(f0) != math.IsNaN(f1) {
				return false
			}
			continue
		}
		if f0 == f1 {
			continue
		}
		if delta <= 0 || math.Abs(f0-f1) > delta {
			return false
		}
	}
	return true
}

// Flag creates a flag for []T with the given name, description and default value.
// It takes as input a parser for an individual T value.
func Flag[T any](name string, defaultValue []T, usage string,
	parserFn func(valueStr string) (T, error)) *[]T {
	return FlagSet(flag.CommandLine, name, defaultValue, usage, parserFn)
}

// FlagSet is like Flag, but registers the flag in the given flag.FlagSet.
func FlagSet[T any](fs *flag.FlagSet, name string, defaultValue []T, usage string,
	parserFn func(valueStr string) (T, error)) *[]T {
	f := &genericSliceFlagImpl[T]{
		parsedSlice: defaultValue,
		parserFn:    parserFn,
	}
	fs.Var(f, name, usage)
	return &f.parsedSlice
}

// genericSliceFlagImpl implements flag.Value for a generic type.
type genericSliceFlagImpl[T any] struct {
	parsedSlice []T
	parserFn    func(valueStr string) (T, error)
}

func (f *genericSliceFlagImpl[T]) String() string {
	if f == nil || len(f.parsedSlice) == 0 {
		return ""
	}
	return strings.Join(Map(f.parsedSlice, func(e T) string { return fmt.Sprintf("%v", e) }), ",")
}

func (f *genericSliceFlagImpl[T]) Set(listStr string) error {
	if listStr == "" {
		f.parsedSlice = make([]T, 0)
		return nil
	}
	parts := strings.Split(listStr, ",")
	f.parsedSlice = make([]T, len(parts))
	var err error
	for ii, part := range parts {
		f.parsedSlice[ii], err = f.parserFn(strings.TrimSpace(part))
		if err != nil {
			return err
		}
	}
	return nil
}
