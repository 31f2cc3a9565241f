// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// IsIntegerDType returns whether dtype is one of the signed or unsigned integer types.
func IsIntegerDType(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
		dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64:
		return true
	default:
		return false
	}
}

// IsFloatDType returns whether dtype is one of the (real) floating point types, including half-precision ones.
func IsFloatDType(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64:
		return true
	default:
		return false
	}
}

// FlatFloat64 returns a copy of the tensor flat values converted to float64.
// Bool values are converted to 0 and 1.
//
// It returns an error for complex dtypes or invalid tensors.
func FlatFloat64(t *Tensor) (values []float64, err error) {
	var convErr error
	err = t.ConstFlatData(func(flat any) {
		switch typed := flat.(type) {
		case []float64:
			values = make([]float64, len(typed))
			copy(values, typed)
		case []float32:
			values = convertFlat[float32, float64](typed)
		case []float16.Float16:
			values = make([]float64, len(typed))
			for ii, v := range typed {
				values[ii] = float64(v.Float32())
			}
		case []bfloat16.BFloat16:
			values = make([]float64, len(typed))
			for ii, v := range typed {
				values[ii] = float64(v.Float32())
			}
		case []int8:
			values = convertFlat[int8, float64](typed)
		case []int16:
			values = convertFlat[int16, float64](typed)
		case []int32:
			values = convertFlat[int32, float64](typed)
		case []int64:
			values = convertFlat[int64, float64](typed)
		case []uint8:
			values = convertFlat[uint8, float64](typed)
		case []uint16:
			values = convertFlat[uint16, float64](typed)
		case []uint32:
			values = convertFlat[uint32, float64](typed)
		case []uint64:
			values = convertFlat[uint64, float64](typed)
		case []bool:
			values = boolsTo[float64](typed)
		default:
			convErr = errors.Errorf("FlatFloat64: dtype %s not supported", t.DType())
		}
	})
	if err != nil {
		return nil, err
	}
	if convErr != nil {
		return nil, convErr
	}
	return
}

// FlatInt64 returns a copy of the tensor flat values converted to int64.
// It only accepts integer and Bool (converted to 0 and 1) dtypes.
func FlatInt64(t *Tensor) (values []int64, err error) {
	var convErr error
	err = t.ConstFlatData(func(flat any) {
		switch typed := flat.(type) {
		case []int64:
			values = make([]int64, len(typed))
			copy(values, typed)
		case []int8:
			values = convertFlat[int8, int64](typed)
		case []int16:
			values = convertFlat[int16, int64](typed)
		case []int32:
			values = convertFlat[int32, int64](typed)
		case []uint8:
			values = convertFlat[uint8, int64](typed)
		case []uint16:
			values = convertFlat[uint16, int64](typed)
		case []uint32:
			values = convertFlat[uint32, int64](typed)
		case []uint64:
			// Values above MaxInt64 wrap around: no index or batch id gets that large.
			values = convertFlat[uint64, int64](typed)
		case []bool:
			values = boolsTo[int64](typed)
		default:
			convErr = errors.Errorf("FlatInt64: dtype %s is not an integer (or bool) type", t.DType())
		}
	})
	if err != nil {
		return nil, err
	}
	if convErr != nil {
		return nil, convErr
	}
	return
}

func convertFlat[From, To interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}](from []From) []To {
	to := make([]To, len(from))
	for ii, v := range from {
		to[ii] = To(v)
	}
	return to
}

func boolsTo[To int64 | float64](from []bool) []To {
	to := make([]To, len(from))
	for ii, v := range from {
		if v {
			to[ii] = 1
		}
	}
	return to
}
