// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"reflect"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/support/xslices"
)

// local storage for a Tensor.
type local struct {
	// flat holds the array with actual data. It's owned by local.
	flat any // Slice of the type for the dtype of the given shape.
}

// IsFinalized returns true if the storage has already been "finalized", and its data freed.
func (l *local) IsFinalized() bool {
	return l == nil || l.flat == nil
}

// Finalize releases the memory associated with the local storage.
func (l *local) Finalize() {
	if l == nil {
		return
	}
	l.flat = nil
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
//
// It panics if you provide an invalid shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	t := newEmptyTensor(shape)
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size())
	t.local = &local{flat: flatV.Interface()}
	return t
}

// LocalClone creates a deep copy of the Tensor.
func (t *Tensor) LocalClone() (*Tensor, error) {
	var clone *Tensor
	err := t.ConstFlatData(func(flat any) {
		clone = newEmptyTensor(t.shape.Clone())
		flatV := reflect.ValueOf(flat)
		cloneFlatV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
		reflect.Copy(cloneFlatV, flatV)
		clone.local = &local{flat: cloneFlatV.Interface()}
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
// It locks the Tensor until accessFn returns.
//
// This provides accessFn with the actual Tensor data (not a copy), and it's owned by the Tensor: it should not be
// changed. See Tensor.MutableFlatData to access a mutable version of the flat data.
//
// See Tensor.Size for the number of elements, and Tensor.LayoutStrides to calculate the offset of individual
// positions, given the indices at each axis.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.CheckValid(); err != nil {
		return err
	}
	accessFn(t.local.flat)
	return nil
}

// MustConstFlatData is like ConstFlatData, but it panics if the tensor is invalid.
func (t *Tensor) MustConstFlatData(accessFn func(flat any)) {
	must.M(t.ConstFlatData(accessFn))
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// It locks the Tensor until accessFn returns.
//
// It is the "generics" version of Tensor.ConstFlatData(), and it returns an error if T doesn't match
// the tensor's DType.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	if t.DType() != dtypes.FromGenericsType[T]() {
		var v T
		return errors.Errorf("ConstFlatData[%T] is incompatible with Tensor's dtype %s -- expected dtype %s",
			v, t.DType(), dtypes.FromGenericsType[T]())
	}
	return t.ConstFlatData(func(anyFlat any) {
		accessFn(anyFlat.([]T))
	})
}

// MustConstFlatData is the generic version of Tensor.MustConstFlatData.
//
// It panics if the tensor is in an invalid state, or if T doesn't match the tensor's DType.
func MustConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	if t.DType() != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("MustConstFlatData[%T] is incompatible with Tensor's dtype %s -- expected dtype %s",
			v, t.DType(), dtypes.FromGenericsType[T]())
	}
	t.MustConstFlatData(func(anyFlat any) {
		accessFn(anyFlat.([]T))
	})
}

// flatAsBytes returns a bytes view of the given flat slice. It returns nil for empty slices.
func flatAsBytes(flat any) []byte {
	flatV := reflect.ValueOf(flat)
	if flatV.Len() == 0 {
		return nil
	}
	element0 := flatV.Index(0)
	sizeBytes := uintptr(flatV.Len()) * element0.Type().Size()
	return unsafe.Slice((*byte)(element0.Addr().UnsafePointer()), sizeBytes)
}

// ConstBytes calls accessFn with the data as a bytes slice.
// It locks the Tensor until accessFn returns. For zero-sized tensors, data is empty.
//
// This provides accessFn with the actual Tensor data (not a copy), and it should not be changed.
func (t *Tensor) ConstBytes(accessFn func(data []byte)) error {
	return t.ConstFlatData(func(flat any) {
		accessFn(flatAsBytes(flat))
	})
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data.
// The type of the slice corresponds to the DType of the tensor.
// The contents of the slice itself can be changed until accessFn returns.
// During this time the Tensor is locked.
//
// It returns an error if the tensor is in an invalid state (if it was finalized).
func (t *Tensor) MutableFlatData(accessFn func(flat any)) error {
	// Same locking as ConstFlatData: there is a single local copy of the data.
	return t.ConstFlatData(accessFn)
}

// MustMutableFlatData is like MutableFlatData, but it panics on error.
func (t *Tensor) MustMutableFlatData(accessFn func(flat any)) {
	must.M(t.MutableFlatData(accessFn))
}

// MutableBytes gives mutable access to the storage of the values for the tensor, as bytes.
// It's similar to MutableFlatData but provides a bytes view to the same data.
func (t *Tensor) MutableBytes(accessFn func(data []byte)) error {
	return t.MutableFlatData(func(flat any) {
		accessFn(flatAsBytes(flat))
	})
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data.
//
// It is the "generics" version of Tensor.MutableFlatData(), see its description for more details.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	if t.DType() != dtypes.FromGenericsType[T]() {
		var v T
		return errors.Errorf("MutableFlatData[%T] is incompatible with Tensor's dtype %s", v, t.DType())
	}
	return t.MutableFlatData(func(anyFlat any) {
		accessFn(anyFlat.([]T))
	})
}

// MustMutableFlatData is the generic version of Tensor.MustMutableFlatData.
//
// It panics if the tensor is in an invalid state, or if T doesn't match the tensor's DType.
func MustMutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	must.M(MutableFlatData(t, accessFn))
}

// AssignFlatData will copy over the values in fromFlat to the storage used by toTensor.
// It returns an error if the dtypes are not compatible or if the size is wrong.
func AssignFlatData[T dtypes.Supported](toTensor *Tensor, fromFlat []T) error {
	var lenErr error
	accessErr := MutableFlatData(toTensor, func(toFlat []T) {
		if len(toFlat) != len(fromFlat) {
			var v T
			lenErr = errors.Errorf("AssignFlatData[%T] is trying to store %d values into shape %s, which requires %d values",
				v, len(fromFlat), toTensor.Shape(), toTensor.Shape().Size())
			return
		}
		copy(toFlat, fromFlat)
	})
	if accessErr != nil {
		return accessErr
	}
	return lenErr
}

// ToScalar returns the scalar value of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor, or if the tensor is not a scalar.
func ToScalar[T dtypes.Supported](t *Tensor) (value T) {
	if !t.shape.IsScalar() {
		exceptions.Panicf("ToScalar[%T] requires scalar Tensor, got shape %s instead", value, t.shape)
	}
	MustConstFlatData(t, func(flat []T) {
		value = flat[0]
	})
	return
}

// CopyFlatData returns a copy of the flat data of the Tensor.
//
// It returns an error if the given generic type doesn't match the DType of the tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) ([]T, error) {
	var flatCopy []T
	err := ConstFlatData(t, func(flat []T) {
		flatCopy = xslices.Copy(flat)
	})
	if err != nil {
		return nil, err
	}
	return flatCopy, nil
}

// MustCopyFlatData returns a copy of the flat data of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor.
func MustCopyFlatData[T dtypes.Supported](t *Tensor) []T {
	return must.M1(CopyFlatData[T](t))
}

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from. There are no recursions in
// generics' constraint definitions, so we list up to 4 levels of slices, enough for point clouds,
// feature arrays and batches of them. FromAnyValue works with any arbitrary number of levels.
type MultiDimensionSlice interface {
	bool | float32 | float64 | int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		[]bool | []float32 | []float64 | []int | []int8 | []int16 | []int32 | []int64 | []uint8 | []uint16 | []uint32 | []uint64 |
		[][]bool | [][]float32 | [][]float64 | [][]int | [][]int8 | [][]int16 | [][]int32 | [][]int64 | [][]uint8 | [][]uint16 | [][]uint32 | [][]uint64 |
		[][][]bool | [][][]float32 | [][][]float64 | [][][]int | [][][]int8 | [][][]int16 | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint16 | [][][]uint32 | [][][]uint64 |
		[][][][]bool | [][][][]float32 | [][][][]float64 | [][][][]int | [][][][]int8 | [][][][]int16 | [][][][]int32 | [][][][]int64 | [][][][]uint8 | [][][][]uint16 | [][][][]uint32 | [][][][]uint64
}

// LayoutStrides return the strides for each axis. This can be handy when manipulating the flat data.
func (t *Tensor) LayoutStrides() (strides []int) {
	return t.shape.Strides()
}

// Value returns a multidimensional slice (except if the shape is a scalar) containing a copy of the values stored
// in the tensor.
// This is expensive and usually only used for smaller tensors in tests and to print results.
//
// It panics if the tensor is invalid.
func (t *Tensor) Value() any {
	return must.M1(t.ValueSafe())
}

// ValueSafe returns a multidimensional slice (except if the shape is a scalar) containing a copy of the values stored
// in the tensor, or an error if the tensor is invalid.
func (t *Tensor) ValueSafe() (any, error) {
	var mdSlice any
	err := t.ConstFlatData(func(flat any) {
		if t.shape.IsScalar() {
			mdSlice = reflect.ValueOf(flat).Index(0).Interface()
			return
		}
		flatCopyV := reflect.MakeSlice(reflect.SliceOf(t.shape.DType.GoType()), t.Size(), t.Size())
		reflect.Copy(flatCopyV, reflect.ValueOf(flat))
		if t.shape.Rank() == 1 {
			mdSlice = flatCopyV.Interface()
			return
		}
		mdSlice = convertDataToSlices(flatCopyV, t.shape.Dimensions...).Interface()
	})
	if err != nil {
		return nil, err
	}
	return mdSlice, nil
}

// FromScalar creates a local tensor with the given scalar.
// The `DType` is inferred from the value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a local tensor with the given dimensions, filled with the
// given scalar value replicated everywhere.
// The `DType` is inferred from the value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	t := FromShape(shape)
	MustMutableFlatData(t, func(flat []T) {
		xslices.FillSlice(flat, value)
	})
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
// The `DType` is inferred from the `data` type.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	t.MustMutableFlatData(func(flat any) {
		if typed, ok := flat.([]T); ok {
			copy(typed, data)
			return
		}
		// Go `int` is stored as Int64 or Int32 depending on the platform.
		copyConverting(reflect.ValueOf(flat), reflect.ValueOf(data))
	})
	return t
}

// FromValue returns a tensor constructed from the given multi-dimension slice (or scalar).
// If the rank of the `value` is larger than 1, the shape of all sub-slices must be the same.
//
// It panics if the shape is not regular.
//
// Notice that FromFlatDataAndDimensions is much faster if speed here is a concern.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue.
// The input is expected to be either a scalar or a slice of slices with homogeneous dimensions.
// If the input is a tensor already, it is simply returned.
//
// It panics with an error if the value type is unsupported or the shape is not regular.
func FromAnyValue(value any) *Tensor {
	if valueT, ok := value.(*Tensor); ok {
		return valueT
	}
	shape, err := shapes.FromAnyValue(value)
	if err != nil {
		panic(errors.WithMessagef(err, "cannot create shape from %T", value))
	}
	t := FromShape(shape)
	t.MustMutableFlatData(func(flatAny any) {
		flatV := reflect.ValueOf(flatAny)
		if shape.IsScalar() {
			flatV.Index(0).Set(reflect.ValueOf(value).Convert(flatV.Type().Elem()))
			return
		}
		copySlicesRecursively(flatV, reflect.ValueOf(value), t.LayoutStrides())
	})
	return t
}

// copySlicesRecursively copy values on a multi-dimension slice to a flat data slice
// assuming the strides for each dimension.
func copySlicesRecursively(data reflect.Value, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		copyConverting(data, mdSlice)
		return
	}
	subStrides := strides[1:]
	for ii := range mdSlice.Len() {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		copySlicesRecursively(subData, mdSlice.Index(ii), subStrides)
	}
}

// copyConverting copies the slice src to dst. If their element types differ, which only happens
// for Go `int` (stored as Int64 or Int32 depending on the platform), values are converted one by one.
func copyConverting(dst, src reflect.Value) {
	if dst.Type().Elem() == src.Type().Elem() {
		reflect.Copy(dst, src)
		return
	}
	elemT := dst.Type().Elem()
	for ii := range src.Len() {
		dst.Index(ii).Set(src.Index(ii).Convert(elemT))
	}
}

// convertDataToSlices takes data as a flat slice and creates a multidimensional slice with the given dimensions that
// points to the given data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := shapes.Make(dtypes.Bool, dimensions...).Strides()
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

// createSlicesRecursively builds the multidimensional slice of type resultT, whose leaves point to data.
func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		return data
	}
	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	for ii := range numElements {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		slice.Index(ii).Set(createSlicesRecursively(resultT.Elem(), subData, dimensions[1:], strides[1:]))
	}
	return slice
}

// Equal checks weather t == otherTensor.
// If they are the same pointer, they are considered equal.
// If the shapes are different, it returns false.
// If either side is invalid (nil), it panics.
//
// Slow implementation: fine for small tensors, but write something specialized for the DType if speed is desired.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	equal := true
	t.MustConstFlatData(func(flat0 any) {
		otherTensor.MustConstFlatData(func(flat1 any) {
			t0V := reflect.ValueOf(flat0)
			t1V := reflect.ValueOf(flat1)
			for ii := range t0V.Len() {
				if !t0V.Index(ii).Equal(t1V.Index(ii)) {
					equal = false
					return
				}
			}
		})
	})
	return equal
}

// InDelta checks weather Abs(t - otherTensor) < delta for every element.
// If they are the same pointer, they are considered equal.
// If the shapes are different, it returns false.
// If either is invalid (nil), or if the dtype can't be converted to float64 (complex numbers), it panics.
//
// Values are compared as float64 (see FlatFloat64), so it also works for integer and half-precision tensors.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	if t.shape.IsZeroSize() {
		return true
	}
	values0 := must.M1(FlatFloat64(t))
	values1 := must.M1(FlatFloat64(otherTensor))
	return xslices.SlicesInDelta(values0, values1, delta)
}
