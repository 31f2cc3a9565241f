// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the static description (DType and dimensions) of a tensor.
//
// Every value handled by pointcloud has a shape known before any computation starts: the point
// cloud `(Float32)[N 3]`, the index array `(Int32)[N]`, the bucket array `(Float32)[outDim 16]`, and
// so on. Operations validate the shapes of their inputs first and allocate their outputs with the
// derived shapes, so no data-dependent reallocation happens afterward.
//
// ## Glossary
//
//   - Rank: number of axes of a tensor.
//   - Axis: the index of a dimension. Sometimes used interchangeably with dimension, but here we refer to the
//     dimension index as "axis" (plural axes), and to its size as its dimension.
//   - Dimension: the size of a tensor along one of its axes. Dimensions can be 0, in which case the
//     tensor holds no values -- e.g. an empty edge list has shape `(Int32)[0]`.
//   - DType: the data type of the unit element of a tensor, from github.com/gomlx/gopjrt/dtypes.
//   - Scalar: a shape with no axes, holding exactly one value.
//
// Example: the multidimensional array `[][]int32{{0, 1, 2}, {3, 4, 5}}` converted to a Tensor
// has shape `(Int32)[2 3]`, created with `shapes.Make(dtypes.Int32, 2, 3)`.
package shapes

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape represents the shape of a Tensor: its DType and the dimensions of each axis.
//
// Use Make to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape structure filled with the values given.
//
// Dimensions can be zero (an empty axis), but it panics for negative dimensions.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension < 0", s)
		}
	}
	return s
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.Supported]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no axes (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// IsZeroSize returns whether any of the axes has dimension 0, in which case the shape holds no values.
func (s Shape) IsZeroSize() bool {
	return slices.Contains(s.Dimensions, 0)
}

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements of DType needed for this shape. It's the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the memory used to store an array of the given shape, the same as the size in bytes.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions. Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// WithLeadingDim returns a copy of the shape with the dimension of axis 0 replaced by dim.
// It's the shape of a "rows" array after a scatter or gather on its first axis.
//
// It panics for scalar shapes.
func (s Shape) WithLeadingDim(dim int) Shape {
	if s.Rank() == 0 {
		exceptions.Panicf("Shape.WithLeadingDim(%d) requires rank >= 1, got shape %s", dim, s)
	}
	s2 := s.Clone()
	s2.Dimensions[0] = dim
	return Make(s2.DType, s2.Dimensions...)
}

// RowSize returns the number of elements of one "row" of the shape, that is, the product of all dimensions
// but the first. For a rank-1 shape it is 1.
//
// It panics for scalar shapes.
func (s Shape) RowSize() int {
	if s.Rank() == 0 {
		exceptions.Panicf("Shape.RowSize() requires rank >= 1, got shape %s", s)
	}
	size := 1
	for _, d := range s.Dimensions[1:] {
		size *= d
	}
	return size
}

// Strides returns the strides for each axis of the shape, assuming a "row-major" layout
// in memory, the one used everywhere in this module.
//
// Notice the strides are **not in bytes**, but in indices.
func (s Shape) Strides() (strides []int) {
	rank := s.Rank()
	if rank == 0 {
		return
	}
	strides = make([]int, rank)
	currentStride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= s.Dimensions[axis]
	}
	return
}

// FromAnyValue attempts to convert a Go value (scalar or a regular multidimensional slice) to its shape.
//
// It returns an error for unsupported types or irregular slices.
func FromAnyValue(v any) (shape Shape, err error) {
	err = shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return
}

func shapeForValueRecursive(shape *Shape, v reflect.Value, t reflect.Type) error {
	if t == nil {
		return errors.New("cannot get shape of nil value")
	}
	switch t.Kind() {
	case reflect.Slice:
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()
		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for shape conversion: %T -- "+
				"empty axes cannot be represented generically with Go slices, use shapes.Make instead", v.Interface())
		}

		// The first element is the reference.
		err := shapeForValueRecursive(shape, v.Index(0), t)
		if err != nil {
			return err
		}

		// Test that other elements have the same shape as the first one.
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			err = shapeForValueRecursive(&shapeTest, v.Index(ii), t)
			if err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %q, and %q", shape, shapeTest)
			}
		}

	case reflect.Pointer:
		return errors.Errorf("cannot convert Pointer (%s) to a concrete value for tensors", t)

	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a value concrete tensor type (maybe type not supported yet?)", t)
		}
	}
	return nil
}
