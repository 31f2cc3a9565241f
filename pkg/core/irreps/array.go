// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package irreps

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
)

// Array is a tensor whose last axis is labeled by an Irreps.
//
// It is immutable in the sense that the tag and the tensor reference never change; the tensor
// contents are owned by the caller.
type Array struct {
	irreps Irreps
	tensor *tensors.Tensor
}

// New returns an Array tagging tensor with irreps.
//
// It returns an error if the tensor is invalid, a scalar, or if its last axis dimension is not irreps.Dim().
func New(irreps Irreps, tensor *tensors.Tensor) (*Array, error) {
	if err := tensor.CheckValid(); err != nil {
		return nil, errors.WithMessagef(err, "irreps.New(%q)", irreps)
	}
	if tensor.Rank() == 0 {
		return nil, errors.Errorf("irreps.New(%q): tensor must have at least one axis, got a scalar %s",
			irreps, tensor.Shape())
	}
	if tensor.Shape().Dim(-1) != irreps.Dim() {
		return nil, errors.Errorf("irreps.New(%q): tensor shape %s last axis must have dimension %d",
			irreps, tensor.Shape(), irreps.Dim())
	}
	return &Array{irreps: irreps, tensor: tensor}, nil
}

// MustNew is like New, but panics on error.
func MustNew(irreps Irreps, tensor *tensors.Tensor) *Array {
	a, err := New(irreps, tensor)
	if err != nil {
		panic(err)
	}
	return a
}

// Irreps returns the tag of the last axis.
func (a *Array) Irreps() Irreps { return a.irreps }

// Tensor returns the tensor holding the data.
func (a *Array) Tensor() *tensors.Tensor { return a.tensor }

// Shape of the underlying tensor.
func (a *Array) Shape() shapes.Shape { return a.tensor.Shape() }

// String returns the irreps and the tensor summary.
func (a *Array) String() string {
	return fmt.Sprintf("%s %s", a.irreps, a.tensor)
}
