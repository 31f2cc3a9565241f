// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
)

var (
	collinear3 = [][]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	collinear4 = [][]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
)

// requireEdges checks the edges returned, in order.
func requireEdges(t *testing.T, src, dst *tensors.Tensor, wantSrc, wantDst []int32) {
	t.Helper()
	require.Equal(t, dtypes.Int32, src.DType())
	require.Equal(t, dtypes.Int32, dst.DType())
	require.Equal(t, []int{len(wantSrc)}, src.Shape().Dimensions)
	require.Equal(t, []int{len(wantDst)}, dst.Shape().Dimensions)
	if len(wantSrc) == 0 {
		return
	}
	assert.Equal(t, wantSrc, tensors.MustCopyFlatData[int32](src), "source indices")
	assert.Equal(t, wantDst, tensors.MustCopyFlatData[int32](dst), "destination indices")
}

func TestRadiusGraph(t *testing.T) {
	t.Run("Collinear", func(t *testing.T) {
		src, dst, err := RadiusGraph(tensors.FromValue(collinear3), 1.5).Done()
		require.NoError(t, err)
		requireEdges(t, src, dst, []int32{0, 1, 1, 2}, []int32{1, 0, 2, 1})
	})

	t.Run("Loop", func(t *testing.T) {
		src, dst := RadiusGraph(tensors.FromValue(collinear3), 1.5).Loop().MustDone()
		requireEdges(t, src, dst, []int32{0, 0, 1, 1, 1, 2, 2}, []int32{0, 1, 0, 1, 2, 1, 2})
	})

	t.Run("ThresholdIsStrict", func(t *testing.T) {
		src, dst := RadiusGraph(tensors.FromValue(collinear3), 1).MustDone()
		requireEdges(t, src, dst, []int32{}, []int32{})
	})

	t.Run("CoincidentPoints", func(t *testing.T) {
		pos := tensors.FromValue([][]float32{{1, 1, 1}, {1, 1, 1}})
		src, dst := RadiusGraph(pos, 0.5).MustDone()
		requireEdges(t, src, dst, []int32{}, []int32{})

		src, dst = RadiusGraph(pos, 0.5).Loop().MustDone()
		requireEdges(t, src, dst, []int32{0, 0, 1, 1}, []int32{0, 1, 0, 1})
	})

	t.Run("TwoDimensions", func(t *testing.T) {
		pos := tensors.FromValue([][]float32{{0, 0}, {0.6, 0.8}, {5, 5}})
		src, dst := RadiusGraph(pos, 1.01).MustDone()
		requireEdges(t, src, dst, []int32{0, 1}, []int32{1, 0})
	})

	t.Run("Batch", func(t *testing.T) {
		batch := tensors.FromValue([]int32{0, 0, 1, 1})
		src, dst := RadiusGraph(tensors.FromValue(collinear4), 1.5).Batch(batch).MustDone()
		requireEdges(t, src, dst, []int32{0, 1, 2, 3}, []int32{1, 0, 3, 2})
	})

	t.Run("BoolBatch", func(t *testing.T) {
		batch := tensors.FromValue([]bool{true, true, false, false})
		src, dst := RadiusGraph(tensors.FromValue(collinear4), 1.5).Batch(batch).MustDone()
		requireEdges(t, src, dst, []int32{0, 1, 2, 3}, []int32{1, 0, 3, 2})
	})

	t.Run("SizePadding", func(t *testing.T) {
		src, dst := RadiusGraph(tensors.FromValue(collinear3), 1.5).Size(6).MustDone()
		requireEdges(t, src, dst, []int32{0, 1, 1, 2, -1, -1}, []int32{1, 0, 2, 1, -1, -1})
	})

	t.Run("SizeTruncation", func(t *testing.T) {
		src, dst, err := RadiusGraph(tensors.FromValue(collinear3), 1.5).Size(2).Done()
		require.NoError(t, err)
		requireEdges(t, src, dst, []int32{0, 1}, []int32{1, 0})
	})

	t.Run("SizeThenBatch", func(t *testing.T) {
		// The batch filter runs after the extraction: no re-padding, sentinels are kept.
		batch := tensors.FromValue([]int64{0, 0, 1, 1})
		src, dst := RadiusGraph(tensors.FromValue(collinear4), 1.5).Size(8).Batch(batch).MustDone()
		requireEdges(t, src, dst, []int32{0, 1, 2, 3, -1, -1}, []int32{1, 0, 3, 2, -1, -1})
	})

	t.Run("Empty", func(t *testing.T) {
		pos := tensors.FromShape(shapes.Make(dtypes.Float32, 0, 3))
		src, dst := RadiusGraph(pos, 1).MustDone()
		requireEdges(t, src, dst, []int32{}, []int32{})

		src, dst = RadiusGraph(pos, 1).Size(2).MustDone()
		requireEdges(t, src, dst, []int32{-1, -1}, []int32{-1, -1})
	})
}

func TestRadiusGraphErrors(t *testing.T) {
	pos := tensors.FromValue(collinear3)
	testCases := []struct {
		name   string
		config *RadiusGraphConfig
		want   error
	}{
		{"NilPos", RadiusGraph(nil, 1), ErrInvalidConfiguration},
		{"PosRank", RadiusGraph(tensors.FromValue([]float64{1, 2, 3}), 1), ErrShapeMismatch},
		{"PosNoCoordinates", RadiusGraph(tensors.FromShape(shapes.Make(dtypes.Float32, 3, 0)), 1), ErrShapeMismatch},
		{"IntegerPos", RadiusGraph(tensors.FromValue([][]int32{{0, 0}, {1, 1}}), 1), ErrInvalidConfiguration},
		{"ZeroRMax", RadiusGraph(pos, 0), ErrInvalidConfiguration},
		{"NegativeRMax", RadiusGraph(pos, -1), ErrInvalidConfiguration},
		{"NaNRMax", RadiusGraph(pos, math.NaN()), ErrInvalidConfiguration},
		{"NegativeSize", RadiusGraph(pos, 1).Size(-1), ErrInvalidConfiguration},
		{"BatchLength", RadiusGraph(pos, 1).Batch(tensors.FromValue([]int32{0, 1})), ErrShapeMismatch},
		{"BatchRank", RadiusGraph(pos, 1).Batch(tensors.FromValue([][]int32{{0, 1, 2}})), ErrShapeMismatch},
		{"FloatBatch", RadiusGraph(pos, 1).Batch(tensors.FromValue([]float32{0, 1, 2})), ErrInvalidConfiguration},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src, dst, err := tc.config.Done()
			require.Error(t, err)
			assert.Truef(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
			assert.Nil(t, src)
			assert.Nil(t, dst)
			assert.Panics(t, func() { tc.config.MustDone() })
		})
	}
}

// TestRadiusGraphProperties checks the invariants of the edges on a random point cloud, and that the
// results don't depend on the parallelism.
func TestRadiusGraphProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	const numPoints, rMax = 300, 0.2
	coords := make([]float64, numPoints*3)
	for ii := range coords {
		coords[ii] = rng.Float64()
	}
	batchIDs := make([]int32, numPoints)
	for ii := range batchIDs {
		batchIDs[ii] = rng.Int32N(3)
	}
	pos := tensors.FromFlatDataAndDimensions(coords, numPoints, 3)
	batch := tensors.FromFlatDataAndDimensions(batchIDs, numPoints)

	src, dst := RadiusGraph(pos, rMax).Batch(batch).Parallelism(0).MustDone()
	srcIdx := tensors.MustCopyFlatData[int32](src)
	dstIdx := tensors.MustCopyFlatData[int32](dst)
	require.NotEmpty(t, srcIdx)

	edges := make(map[[2]int32]bool, len(srcIdx))
	for e, s := range srcIdx {
		d := dstIdx[e]
		assert.NotEqual(t, s, d, "self-loop")
		assert.Equal(t, batchIDs[s], batchIDs[d], "cross-batch edge %d->%d", s, d)
		dist := floats.Distance(coords[s*3:(s+1)*3], coords[d*3:(d+1)*3], 2)
		assert.Less(t, dist, rMax)
		if e > 0 {
			// Row-major order.
			prev := [2]int32{srcIdx[e-1], dstIdx[e-1]}
			assert.True(t, prev[0] < s || (prev[0] == s && prev[1] < d), "edges out of order at %d", e)
		}
		edges[[2]int32{s, d}] = true
	}
	for edge := range edges {
		assert.True(t, edges[[2]int32{edge[1], edge[0]}], "missing reverse of edge %v", edge)
	}

	for _, parallelism := range []int{1, 3, -1} {
		pSrc, pDst := RadiusGraph(pos, rMax).Batch(batch).Parallelism(parallelism).MustDone()
		assert.Truef(t, src.Equal(pSrc), "parallelism=%d", parallelism)
		assert.Truef(t, dst.Equal(pDst), "parallelism=%d", parallelism)
	}
}
