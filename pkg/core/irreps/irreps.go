// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package irreps describes labeled feature arrays: arrays whose last axis is the concatenation
// of blocks of irreducible representations of O(3), as used by equivariant graph neural networks.
//
// An Irrep is identified by its degree l and parity p, written "1o" (l=1, odd) or "0e" (l=0, even),
// and has dimension 2l+1. An Irreps is a list of (multiplicity, Irrep) entries, written as
// "2x0e+1x1o", of total dimension sum(mul*(2l+1)) -- 5 in that example.
//
// Array pairs an Irreps tag with the tensor holding the data, and it's the labeled input (and output)
// of gnn.IndexAdd: the operations on the rows don't touch the last axis, so the tag is kept as is.
package irreps

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parity of an Irrep: Even (+1) or Odd (-1).
type Parity int

const (
	Even Parity = 1
	Odd  Parity = -1
)

// Irrep is an irreducible representation of O(3), given by its degree L >= 0 and its Parity.
type Irrep struct {
	L int
	P Parity
}

// Dim is the dimension of the representation, 2L+1.
func (ir Irrep) Dim() int { return 2*ir.L + 1 }

// String returns the e3nn notation of the Irrep, e.g. "1o".
func (ir Irrep) String() string {
	p := "e"
	if ir.P == Odd {
		p = "o"
	}
	return strconv.Itoa(ir.L) + p
}

// ParseIrrep parses an irrep in the e3nn notation: the degree followed by "e" (even), "o" (odd) or
// "y" (spherical harmonics parity, (-1)^l).
func ParseIrrep(s string) (Irrep, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Irrep{}, errors.Errorf("invalid irrep %q: expected degree and parity, like \"1o\"", s)
	}
	l, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || l < 0 {
		return Irrep{}, errors.Errorf("invalid irrep %q: degree must be a non-negative integer", s)
	}
	ir := Irrep{L: l}
	switch s[len(s)-1] {
	case 'e':
		ir.P = Even
	case 'o':
		ir.P = Odd
	case 'y':
		ir.P = Even
		if l%2 == 1 {
			ir.P = Odd
		}
	default:
		return Irrep{}, errors.Errorf("invalid irrep %q: parity must be one of \"e\", \"o\" or \"y\"", s)
	}
	return ir, nil
}

// MulIrrep is one entry of Irreps: Mul copies of the same Irrep.
type MulIrrep struct {
	Mul int
	Irrep
}

// Dim is Mul * Irrep.Dim().
func (mi MulIrrep) Dim() int { return mi.Mul * mi.Irrep.Dim() }

func (mi MulIrrep) String() string { return fmt.Sprintf("%dx%s", mi.Mul, mi.Irrep) }

// Irreps is an ordered list of MulIrrep. The zero value (empty) has dimension 0.
type Irreps []MulIrrep

// Parse an Irreps description like "2x0e + 1x1o + 3y". A missing multiplicity means 1.
// An empty string returns an empty Irreps.
func Parse(s string) (Irreps, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Irreps{}, nil
	}
	parts := strings.Split(s, "+")
	irreps := make(Irreps, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		mul := 1
		irStr := part
		if before, after, found := strings.Cut(part, "x"); found {
			var err error
			mul, err = strconv.Atoi(strings.TrimSpace(before))
			if err != nil || mul < 0 {
				return nil, errors.Errorf("invalid multiplicity in %q (from %q)", part, s)
			}
			irStr = after
		}
		ir, err := ParseIrrep(irStr)
		if err != nil {
			return nil, errors.WithMessagef(err, "parsing irreps %q", s)
		}
		irreps = append(irreps, MulIrrep{Mul: mul, Irrep: ir})
	}
	return irreps, nil
}

// MustParse is like Parse, but panics on error.
func MustParse(s string) Irreps {
	irreps, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return irreps
}

// Dim is the total dimension, the size of the last axis of an Array with these irreps.
func (irreps Irreps) Dim() int {
	var dim int
	for _, mi := range irreps {
		dim += mi.Dim()
	}
	return dim
}

// Num returns the total number of irreps, that is, the sum of the multiplicities.
func (irreps Irreps) Num() int {
	var num int
	for _, mi := range irreps {
		num += mi.Mul
	}
	return num
}

// Slices returns the [start, end) offsets of each entry in the last axis.
func (irreps Irreps) Slices() [][2]int {
	slices := make([][2]int, len(irreps))
	var start int
	for ii, mi := range irreps {
		slices[ii] = [2]int{start, start + mi.Dim()}
		start += mi.Dim()
	}
	return slices
}

// String returns the e3nn notation, e.g. "2x0e+1x1o". It's the inverse of Parse.
func (irreps Irreps) String() string {
	parts := make([]string, len(irreps))
	for ii, mi := range irreps {
		parts[ii] = mi.String()
	}
	return strings.Join(parts, "+")
}

// Equal returns whether both Irreps have the exact same entries, in the same order.
func (irreps Irreps) Equal(other Irreps) bool {
	if len(irreps) != len(other) {
		return false
	}
	for ii, mi := range irreps {
		if mi != other[ii] {
			return false
		}
	}
	return true
}
