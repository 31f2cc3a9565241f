// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"runtime"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/pointcloud/internal/workerspool"
	"github.com/gomlx/pointcloud/pkg/core/irreps"
	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
)

// Features are the inputs (and outputs) of IndexAdd: a plain tensor, or a tensor labeled with irreps.
type Features interface {
	*tensors.Tensor | *irreps.Array
}

// IndexAddConfig holds the configuration of IndexAdd.
// Once finished configuring, call IndexAddConfig.Done.
type IndexAddConfig[F Features] struct {
	indices     *tensors.Tensor
	input       F
	outDim      int
	hasOutDim   bool
	mapBack     bool
	parallelism int
}

// IndexAdd starts the configuration of a segment-sum: it creates a zero output with outDim rows and the
// trailing shape of input, and adds each row of input to the output row selected by indices:
//
//	out := zeros(outDim, input.shape[1:]...)
//	for i := range N { out[indices[i]] += input[i] }
//
// Example: with indices=[0, 2, 2, 0] and input=[1, 2, 3, -10], IndexAdd(indices, input).OutDim(4).Done()
// returns [-9, 0, 5, 0].
//
// indices must be a rank-1 integer tensor with one entry per row (axis 0) of input. The output has the
// same dtype as input (Float16 and BFloat16 are accumulated in float32). Rows whose index is outside
// [0, outDim) (e.g. the -1 sentinel of a padded edge list) are dropped.
//
// Exactly one of OutDim or MapBack must be configured. If input is an *irreps.Array, the output is an
// *irreps.Array with the same irreps.
func IndexAdd[F Features](indices *tensors.Tensor, input F) *IndexAddConfig[F] {
	return &IndexAddConfig[F]{
		indices:     indices,
		input:       input,
		parallelism: runtime.NumCPU(),
	}
}

// OutDim sets the number of output rows (buckets). It can't be used with MapBack.
func (c *IndexAddConfig[F]) OutDim(outDim int) *IndexAddConfig[F] {
	c.outDim = outDim
	c.hasOutDim = true
	return c
}

// MapBack configures IndexAdd to return the sums mapped back to the input rows: row i of the output
// is the sum of all input rows whose index equals indices[i]. The output has the shape of input.
//
// The number of buckets is the number of input rows, and the indices are first relabeled with
// DenseRelabel, so they can be arbitrary integer keys. It can't be used with OutDim.
func (c *IndexAddConfig[F]) MapBack() *IndexAddConfig[F] {
	c.mapBack = true
	return c
}

// Parallelism sets the maximum number of goroutines working on the sums.
// 0 runs everything sequentially, -1 means unlimited. The default is runtime.NumCPU().
//
// The results are exactly the same for any parallelism.
func (c *IndexAddConfig[F]) Parallelism(parallelism int) *IndexAddConfig[F] {
	c.parallelism = parallelism
	return c
}

// Done performs the segment-sum with the current configuration.
//
// It returns an error wrapping ErrShapeMismatch or ErrInvalidConfiguration if the inputs or options are not valid.
// On error, the returned value is nil.
func (c *IndexAddConfig[F]) Done() (output F, err error) {
	var inputTensor *tensors.Tensor
	var inputIrreps irreps.Irreps
	switch input := any(c.input).(type) {
	case *tensors.Tensor:
		inputTensor = input
	case *irreps.Array:
		if input != nil {
			inputTensor = input.Tensor()
			inputIrreps = input.Irreps()
		}
	}

	var result *tensors.Tensor
	err = tryCatch(func() error {
		var err error
		result, err = c.indexAdd(inputTensor)
		return err
	})
	if err != nil {
		return
	}

	switch any(c.input).(type) {
	case *tensors.Tensor:
		output = any(result).(F)
	case *irreps.Array:
		var labeled *irreps.Array
		labeled, err = irreps.New(inputIrreps, result)
		if err != nil {
			return
		}
		output = any(labeled).(F)
	}
	return
}

// MustDone is like Done, but panics on error.
func (c *IndexAddConfig[F]) MustDone() F {
	output, err := c.Done()
	if err != nil {
		panic(err)
	}
	return output
}

// validate checks the configuration against the input features and returns the number of buckets.
func (c *IndexAddConfig[F]) validate(input *tensors.Tensor) (outDim int, err error) {
	if err = c.indices.CheckValid(); err != nil {
		return 0, errors.Wrapf(ErrInvalidConfiguration, "IndexAdd: indices: %v", err)
	}
	if err = input.CheckValid(); err != nil {
		return 0, errors.Wrapf(ErrInvalidConfiguration, "IndexAdd: input: %v", err)
	}
	if err = shapes.CheckRank(c.indices, 1); err != nil {
		return 0, errors.Wrapf(ErrShapeMismatch, "IndexAdd: indices must be rank-1: %v", err)
	}
	if input.Rank() == 0 {
		return 0, errors.Wrapf(ErrShapeMismatch, "IndexAdd: input must have at least one axis, got a scalar %s",
			input.Shape())
	}
	numRows := input.Shape().Dim(0)
	if c.indices.Shape().Dim(0) != numRows {
		return 0, errors.Wrapf(ErrShapeMismatch, "IndexAdd: indices %s must have one entry per input row, input is %s",
			c.indices.Shape(), input.Shape())
	}
	if !tensors.IsIntegerDType(c.indices.DType()) {
		return 0, errors.Wrapf(ErrInvalidConfiguration, "IndexAdd: indices must have an integer dtype, got %s",
			c.indices.DType())
	}
	if !scatterAddDispatcher.Supports(input.DType()) {
		return 0, errors.Wrapf(ErrInvalidConfiguration, "IndexAdd: input dtype %s not supported", input.DType())
	}
	switch {
	case !c.hasOutDim && !c.mapBack:
		return 0, errors.Wrap(ErrInvalidConfiguration, "IndexAdd: destination size required, configure OutDim or MapBack")
	case c.hasOutDim && c.mapBack:
		return 0, errors.Wrap(ErrInvalidConfiguration, "IndexAdd: OutDim must not be configured with MapBack")
	case c.hasOutDim && c.outDim < 0:
		return 0, errors.Wrapf(ErrInvalidConfiguration, "IndexAdd: OutDim(%d) must be >= 0", c.outDim)
	}
	outDim = numRows
	if c.hasOutDim {
		outDim = c.outDim
	}

	// A rank-1 labeled array has its irreps on the rows axis: the number of rows can't change.
	if _, labeled := any(c.input).(*irreps.Array); labeled && input.Rank() == 1 && outDim != numRows {
		return 0, errors.Wrapf(ErrShapeMismatch, "IndexAdd: rank-1 labeled input %s has its irreps on axis 0, "+
			"OutDim(%d) would change its dimension %d", input.Shape(), outDim, numRows)
	}
	return outDim, nil
}

// indexAdd implements Done for the plain tensor input.
func (c *IndexAddConfig[F]) indexAdd(input *tensors.Tensor) (*tensors.Tensor, error) {
	outDim, err := c.validate(input)
	if err != nil {
		return nil, err
	}
	var buckets []int64
	if c.mapBack {
		labels, err := DenseRelabel(c.indices)
		if err != nil {
			return nil, err
		}
		buckets, err = tensors.FlatInt64(labels)
		if err != nil {
			return nil, err
		}
	} else {
		buckets, err = tensors.FlatInt64(c.indices)
		if err != nil {
			return nil, err
		}
	}

	order := newBucketOrder(buckets, outDim)
	if order.numDropped > 0 {
		klog.V(1).Infof("IndexAdd: %d of %d rows have an index outside [0, %d) and were dropped",
			order.numDropped, len(buckets), outDim)
	}

	pool := workerspool.New()
	pool.SetMaxParallelism(c.parallelism)
	rowSize := input.Shape().RowSize()
	output := tensors.FromShape(input.Shape().WithLeadingDim(outDim))
	input.MustConstFlatData(func(inputFlat any) {
		output.MustMutableFlatData(func(outputFlat any) {
			scatterAddDispatcher.Dispatch(input.DType(), scatterAddParams{
				pool:    pool,
				order:   order,
				rowSize: rowSize,
				input:   inputFlat,
				output:  outputFlat,
			})
		})
	})
	if !c.mapBack {
		return output, nil
	}

	// Map back: gather the bucket of each input row.
	mapped := tensors.FromShape(input.Shape())
	output.MustConstFlatData(func(sumsFlat any) {
		mapped.MustMutableFlatData(func(mappedFlat any) {
			gatherRowsDispatcher.Dispatch(input.DType(), gatherRowsParams{
				pool:    pool,
				rows:    buckets,
				rowSize: rowSize,
				input:   sumsFlat,
				output:  mappedFlat,
			})
		})
	})
	output.FinalizeAll()
	return mapped, nil
}
