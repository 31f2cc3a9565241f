// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"math"
	"runtime"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"

	"github.com/gomlx/pointcloud/internal/workerspool"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/support/xslices"
)

// SentinelIndex fills the unused slots of an edge list padded with RadiusGraphConfig.Size.
const SentinelIndex = -1

// RadiusGraphConfig holds the configuration of RadiusGraph.
// Once finished configuring, call RadiusGraphConfig.Done.
type RadiusGraphConfig struct {
	pos         *tensors.Tensor
	rMax        float64
	batch       *tensors.Tensor
	size        int
	hasSize     bool
	loop        bool
	parallelism int
}

// RadiusGraph starts the configuration of the brute-force radius graph of the points in pos: all the
// directed pairs (i, j) whose Euclidean distance is strictly less than rMax.
//
// pos must be a float tensor shaped [N, D] (D=3 for point clouds). Both directions of each close pair
// are returned, in row-major order: all j for i=0 in ascending order, then all j for i=1, etc.
// By default pairs at distance 0 (including i==j) are excluded, see Loop.
//
// It computes all the N² distances: fine for small point clouds only.
func RadiusGraph(pos *tensors.Tensor, rMax float64) *RadiusGraphConfig {
	return &RadiusGraphConfig{
		pos:         pos,
		rMax:        rMax,
		parallelism: runtime.NumCPU(),
	}
}

// Batch restricts the edges to pairs of points with the same batch id. batch must be a rank-1
// integer or Bool tensor with one entry per point.
//
// The filter is applied after the extraction of the edges: if Size is configured, the number of
// edges returned may be smaller than size. Sentinel pairs are kept.
func (c *RadiusGraphConfig) Batch(batch *tensors.Tensor) *RadiusGraphConfig {
	c.batch = batch
	return c
}

// Size fixes the number of edges extracted: if there are fewer, the remaining slots of both source and
// destination are filled with SentinelIndex (-1).
//
// If there are more than size edges, the extra ones are silently dropped: no error is returned, only a
// warning is logged. It is up to the caller to provide enough capacity (N² is always enough).
func (c *RadiusGraphConfig) Size(size int) *RadiusGraphConfig {
	c.size = size
	c.hasSize = true
	return c
}

// Loop includes the pairs at distance 0, in particular the self-loops (i, i).
func (c *RadiusGraphConfig) Loop() *RadiusGraphConfig {
	c.loop = true
	return c
}

// Parallelism sets the maximum number of goroutines computing distances.
// 0 runs everything sequentially, -1 means unlimited. The default is runtime.NumCPU().
func (c *RadiusGraphConfig) Parallelism(parallelism int) *RadiusGraphConfig {
	c.parallelism = parallelism
	return c
}

// Done builds the radius graph and returns the source and destination indices of each edge, as
// Int32 tensors of the same length.
//
// It returns an error wrapping ErrShapeMismatch or ErrInvalidConfiguration if the inputs or options are not valid.
func (c *RadiusGraphConfig) Done() (src, dst *tensors.Tensor, err error) {
	err = tryCatch(func() error {
		var err error
		src, dst, err = c.radiusGraph()
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return
}

// MustDone is like Done, but panics on error.
func (c *RadiusGraphConfig) MustDone() (src, dst *tensors.Tensor) {
	src, dst, err := c.Done()
	if err != nil {
		panic(err)
	}
	return src, dst
}

func (c *RadiusGraphConfig) validate() error {
	if err := c.pos.CheckValid(); err != nil {
		return errors.Wrapf(ErrInvalidConfiguration, "RadiusGraph: pos: %v", err)
	}
	if c.pos.Rank() != 2 || c.pos.Shape().Dim(1) == 0 {
		return errors.Wrapf(ErrShapeMismatch, "RadiusGraph: pos must be shaped [N, D] with D >= 1, got %s",
			c.pos.Shape())
	}
	if !tensors.IsFloatDType(c.pos.DType()) {
		return errors.Wrapf(ErrInvalidConfiguration, "RadiusGraph: pos must have a float dtype, got %s", c.pos.DType())
	}
	if math.IsNaN(c.rMax) || c.rMax <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "RadiusGraph: rMax must be > 0, got %g", c.rMax)
	}
	if c.hasSize && c.size < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "RadiusGraph: Size(%d) must be >= 0", c.size)
	}
	if c.batch == nil {
		return nil
	}
	if err := c.batch.CheckValid(); err != nil {
		return errors.Wrapf(ErrInvalidConfiguration, "RadiusGraph: batch: %v", err)
	}
	numPoints := c.pos.Shape().Dim(0)
	if c.batch.Rank() != 1 || c.batch.Shape().Dim(0) != numPoints {
		return errors.Wrapf(ErrShapeMismatch, "RadiusGraph: batch must be shaped [%d], got %s",
			numPoints, c.batch.Shape())
	}
	if dtype := c.batch.DType(); !tensors.IsIntegerDType(dtype) && dtype != dtypes.Bool {
		return errors.Wrapf(ErrInvalidConfiguration, "RadiusGraph: batch must have an integer or Bool dtype, got %s",
			dtype)
	}
	return nil
}

func (c *RadiusGraphConfig) radiusGraph() (src, dst *tensors.Tensor, err error) {
	if err = c.validate(); err != nil {
		return
	}
	coords, err := tensors.FlatFloat64(c.pos)
	if err != nil {
		return
	}
	numPoints, dim := c.pos.Shape().Dim(0), c.pos.Shape().Dim(1)

	// Neighbors of each row, computed in parallel, then concatenated in row order.
	neighbors := make([][]int32, numPoints)
	pool := workerspool.New()
	pool.SetMaxParallelism(c.parallelism)
	pool.ParallelFor(numPoints, func(start, end int) {
		for i := start; i < end; i++ {
			pi := coords[i*dim : (i+1)*dim]
			var row []int32
			for j := range numPoints {
				d := floats.Distance(pi, coords[j*dim:(j+1)*dim], 2)
				if d < c.rMax && (c.loop || d > 0) {
					row = append(row, int32(j))
				}
			}
			neighbors[i] = row
		}
	})

	var numEdges int
	for _, row := range neighbors {
		numEdges += len(row)
	}
	capacity := numEdges
	if c.hasSize {
		capacity = c.size
		if numEdges > capacity {
			klog.Warningf("RadiusGraph: %d edges found but Size(%d) was configured, %d edges dropped",
				numEdges, capacity, numEdges-capacity)
		}
	}
	srcIdx := xslices.SliceWithValue[int32](capacity, SentinelIndex)
	dstIdx := xslices.SliceWithValue[int32](capacity, SentinelIndex)
	var edge int
fill:
	for i, row := range neighbors {
		for _, j := range row {
			if edge == capacity {
				break fill
			}
			srcIdx[edge], dstIdx[edge] = int32(i), j
			edge++
		}
	}

	if c.batch != nil {
		var batchIDs []int64
		batchIDs, err = tensors.FlatInt64(c.batch)
		if err != nil {
			return
		}
		srcIdx, dstIdx = filterSameBatch(srcIdx, dstIdx, batchIDs)
	}
	klog.V(2).Infof("RadiusGraph: %d points, rMax=%g, %d edges found, %d returned",
		numPoints, c.rMax, numEdges, len(srcIdx))
	src = tensors.FromFlatDataAndDimensions(srcIdx, len(srcIdx))
	dst = tensors.FromFlatDataAndDimensions(dstIdx, len(dstIdx))
	return
}

// filterSameBatch keeps the edges whose endpoints have the same batch id, and the sentinel edges.
// It filters in place.
func filterSameBatch(src, dst []int32, batchIDs []int64) ([]int32, []int32) {
	var kept int
	for e, s := range src {
		d := dst[e]
		if s != SentinelIndex && batchIDs[s] != batchIDs[d] {
			continue
		}
		src[kept], dst[kept] = s, d
		kept++
	}
	return src[:kept], dst[:kept]
}
