// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"

	"github.com/gomlx/pointcloud/internal/workerspool"
)

// podNumber are the Go plain-old-data numeric types the kernels are instantiated with.
type podNumber interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// bucketOrder is a stable counting sort of the rows by bucket: the rows of bucket b are
// rows[offsets[b]:offsets[b+1]], in ascending row order.
//
// Each bucket is then owned by exactly one worker, which accumulates its rows in order: the sums
// don't depend on how buckets are split across workers.
type bucketOrder struct {
	offsets    []int
	rows       []int32
	numDropped int
}

// newBucketOrder sorts the rows by their bucket. Rows with a bucket outside [0, numBuckets) are dropped.
func newBucketOrder(buckets []int64, numBuckets int) *bucketOrder {
	o := &bucketOrder{offsets: make([]int, numBuckets+1)}
	for _, b := range buckets {
		if b < 0 || b >= int64(numBuckets) {
			o.numDropped++
			continue
		}
		o.offsets[b+1]++
	}
	for b := range numBuckets {
		o.offsets[b+1] += o.offsets[b]
	}
	o.rows = make([]int32, o.offsets[numBuckets])
	next := make([]int, numBuckets)
	copy(next, o.offsets[:numBuckets])
	for row, b := range buckets {
		if b < 0 || b >= int64(numBuckets) {
			continue
		}
		o.rows[next[b]] = int32(row)
		next[b]++
	}
	return o
}

func (o *bucketOrder) numBuckets() int { return len(o.offsets) - 1 }

type scatterAddParams struct {
	pool          *workerspool.Pool
	order         *bucketOrder
	rowSize       int
	input, output any // Flat slices, of the dtype of the input.
}

type gatherRowsParams struct {
	pool          *workerspool.Pool
	rows          []int64
	rowSize       int
	input, output any
}

var (
	scatterAddDispatcher = newDTypeDispatcher[scatterAddParams]("IndexAdd")
	gatherRowsDispatcher = newDTypeDispatcher[gatherRowsParams]("IndexAdd.MapBack")
)

func init() {
	registerNumberKernels[int8](dtypes.Int8)
	registerNumberKernels[int16](dtypes.Int16)
	registerNumberKernels[int32](dtypes.Int32)
	registerNumberKernels[int64](dtypes.Int64)
	registerNumberKernels[uint8](dtypes.Uint8)
	registerNumberKernels[uint16](dtypes.Uint16)
	registerNumberKernels[uint32](dtypes.Uint32)
	registerNumberKernels[uint64](dtypes.Uint64)
	registerNumberKernels[float32](dtypes.Float32)
	registerNumberKernels[float64](dtypes.Float64)

	// Half-precision: accumulated in float32.
	scatterAddDispatcher.Register(dtypes.Float16, scatterAddHalfGeneric(
		float16.Float16.Float32, float16.Fromfloat32))
	scatterAddDispatcher.Register(dtypes.BFloat16, scatterAddHalfGeneric(
		bfloat16.BFloat16.Float32, bfloat16.FromFloat32))
	gatherRowsDispatcher.Register(dtypes.Float16, gatherRowsGeneric[float16.Float16])
	gatherRowsDispatcher.Register(dtypes.BFloat16, gatherRowsGeneric[bfloat16.BFloat16])
}

func registerNumberKernels[T podNumber](dtype dtypes.DType) {
	scatterAddDispatcher.Register(dtype, scatterAddGeneric[T])
	gatherRowsDispatcher.Register(dtype, gatherRowsGeneric[T])
}

func scatterAddGeneric[T podNumber](p scatterAddParams) {
	scatterAddRows(p.pool, p.order, p.rowSize, p.input.([]T), p.output.([]T))
}

// scatterAddRows adds each input row to its bucket row in output, which must be zero-initialized.
// Work is split by blocks of buckets.
func scatterAddRows[T podNumber](pool *workerspool.Pool, order *bucketOrder, rowSize int, input, output []T) {
	if rowSize == 0 {
		return
	}
	pool.ParallelFor(order.numBuckets(), func(start, end int) {
		for b := start; b < end; b++ {
			dst := output[b*rowSize : (b+1)*rowSize]
			for _, row := range order.rows[order.offsets[b]:order.offsets[b+1]] {
				src := input[int(row)*rowSize : (int(row)+1)*rowSize]
				for col, v := range src {
					dst[col] += v
				}
			}
		}
	})
}

// scatterAddHalfGeneric returns a kernel for a half-precision type H: the input is converted to float32,
// summed in float32, and the sums converted back to H.
func scatterAddHalfGeneric[H float16.Float16 | bfloat16.BFloat16](toFloat32 func(H) float32,
	fromFloat32 func(float32) H) func(p scatterAddParams) {
	return func(p scatterAddParams) {
		input, output := p.input.([]H), p.output.([]H)
		input32 := make([]float32, len(input))
		for ii, v := range input {
			input32[ii] = toFloat32(v)
		}
		output32 := make([]float32, len(output))
		scatterAddRows(p.pool, p.order, p.rowSize, input32, output32)
		for ii, v := range output32 {
			output[ii] = fromFloat32(v)
		}
	}
}

// gatherRowsGeneric copies, for each output row i, the input row p.rows[i].
func gatherRowsGeneric[T any](p gatherRowsParams) {
	input, output := p.input.([]T), p.output.([]T)
	rowSize := p.rowSize
	if rowSize == 0 {
		return
	}
	p.pool.ParallelFor(len(p.rows), func(start, end int) {
		for row := start; row < end; row++ {
			src := int(p.rows[row])
			copy(output[row*rowSize:(row+1)*rowSize], input[src*rowSize:(src+1)*rowSize])
		}
	})
}
