// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implement a `Tensor`, a representation of a multidimensional array stored locally.
//
// Tensors are multidimensional arrays (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape (a data type and its axes' dimensions) and their actual content, stored as a flat (1D)
// slice of the Go type corresponding to the DType, in row-major order.
//
// They are the inputs and outputs of the point-cloud graph operations (see package gnn): point coordinates,
// index arrays, feature arrays and edge lists.
//
// There are various ways to construct a Tensor:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]float32{0, 0, 0, 1, 0, 0}, 2, 3) // Two points in 3D.
//
//   - FromValue[S MultiDimensionSlice](value S): Generic conversion works with the scalar supported `DType`s
//     as well as with any arbitrary multidimensional slice of them. Slices of rank > 1 must be regular, that is
//     all the sub-slices must have the same shape. Example:
//
//     t := FromValue([][]float64{{0, 0, 0}, {0.5, 0, 0}, {1, 0, 0}})
//
//   - FromAnyValue(value any): same as FromValue but non-generic, it takes an anonymous type `any`. The exception
//     is if `value` is already a tensor, then it is a no-op, and it returns the tensor itself.
//
// Access to the data is done through ConstFlatData and MutableFlatData (and their generic versions), which
// lock the tensor while the access function runs.
package tensors

import (
	"sync"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
)

// Tensor represents a multidimensional array (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape, a data type (dtypes.DType) and its axes' dimensions, and their actual content stored as a flat (1D)
// array of values.
//
// A Tensor is safe for concurrent read access: ConstFlatData and MutableFlatData serialize on an internal mutex.
// Long-running kernels should grab the flat slice once and work on it, instead of accessing the tensor per element.
//
// More details in the `tensors` package documentation.
type Tensor struct {
	// shape of the tensor.
	shape shapes.Shape

	// mu protects the flat data, but not the shape, which is considered immutable (only changed
	// when Tensor is finalized).
	mu sync.Mutex

	// local storage of the tensor.
	local *local
}

// newEmptyTensor returns a Tensor object initialized only with the shape, but no actual storage.
// The returned tensor is invalid until some local storage is associated with it.
func newEmptyTensor(shape shapes.Shape) *Tensor {
	return &Tensor{
		shape: shape,
	}
}

// Shape of the tensor, includes DType.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
// It is a shortcut to `Tensor.Shape().DType`.
func (t *Tensor) DType() dtypes.DType {
	if t == nil {
		return dtypes.InvalidDType
	}
	return t.shape.DType
}

// Rank returns the rank of the tensor's shape.
// It is a shortcut to `Tensor.Shape().Rank()`.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
// It is a shortcut to `Tensor.Shape().IsScalar()`.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
// It is a shortcut to `Tensor.Shape().Size()`.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor. An alias to Tensor.Shape().Memory().
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ok returns whether the Tensor is in a valid state: it is not nil, and it hasn't been finalized.
func (t *Tensor) Ok() bool {
	return t != nil && t.shape.Ok() && !t.local.IsFinalized()
}

// CheckValid returns an error if it's nil, has been finalized, or if its shape is invalid.
func (t *Tensor) CheckValid() error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	if !t.shape.Ok() {
		return errors.New("Tensor shape is invalid")
	}
	if t.local.IsFinalized() {
		return errors.New("Tensor has no data, it has been finalized")
	}
	return nil
}

// AssertValid panics if it's nil, has been finalized, or if its shape is invalid.
func (t *Tensor) AssertValid() {
	must.M(t.CheckValid())
}

// FinalizeAll immediately frees the associated data and leave Tensor in an invalid state.
//
// It's the caller's responsibility to ensure the tensor is not being used elsewhere.
// Finalizing an already finalized tensor is a no-op.
func (t *Tensor) FinalizeAll() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.local != nil {
		t.local.Finalize()
		t.local = nil
	}
	t.shape = shapes.Invalid()
}

// TensorStringDefaultPrecision used by Tensor.String.
const TensorStringDefaultPrecision = 4

// String converts to string, if not too large. It uses t.Summary(precision=4).
func (t *Tensor) String() string {
	if t.CheckValid() != nil {
		return "<invalid Tensor>"
	}
	return t.Summary(TensorStringDefaultPrecision)
}
