// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
)

func TestDenseRelabel(t *testing.T) {
	labels, err := DenseRelabel(tensors.FromValue([]int64{7, 3, 7, 9}))
	require.NoError(t, err)
	assert.Equal(t, dtypes.Int32, labels.DType())
	assert.Equal(t, []int32{1, 0, 1, 2}, labels.Value())

	// Other integer dtypes.
	labels, err = DenseRelabel(tensors.FromValue([]uint8{5, 5, 5}))
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 0, 0}, labels.Value())

	labels, err = DenseRelabel(tensors.FromValue([]int32{-4, 100, -4, 0, 100}))
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 2, 0, 1, 2}, labels.Value())

	// Uint64 keys above math.MaxInt64 keep their order.
	labels, err = DenseRelabel(tensors.FromValue([]uint64{math.MaxUint64, 5, math.MaxUint64, 1 << 63}))
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 0, 2, 1}, labels.Value())

	// Empty.
	labels, err = DenseRelabel(tensors.FromShape(shapes.Make(dtypes.Int64, 0)))
	require.NoError(t, err)
	assert.Equal(t, 0, labels.Size())

	// Errors.
	_, err = DenseRelabel(tensors.FromValue([][]int32{{1, 2}}))
	require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	_, err = DenseRelabel(tensors.FromValue([]float32{1, 2}))
	require.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
	_, err = DenseRelabel(nil)
	require.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
}

func TestDenseRelabelSlice(t *testing.T) {
	keys := []int{10, 20, 10, 30, 20, 40, 10}
	labels, numDistinct := DenseRelabelSlice(keys)
	require.Equal(t, 4, numDistinct)
	require.Len(t, labels, len(keys))

	// Partition property: equal labels iff equal keys.
	for i := range keys {
		for j := range keys {
			assert.Equal(t, keys[i] == keys[j], labels[i] == labels[j], "keys[%d]=%d, keys[%d]=%d", i, keys[i], j, keys[j])
		}
	}

	// Labels are exactly {0, ..., numDistinct-1}.
	seen := make([]bool, numDistinct)
	for _, label := range labels {
		require.Less(t, int(label), numDistinct)
		seen[label] = true
	}
	for label, ok := range seen {
		assert.Truef(t, ok, "label %d not used", label)
	}
}
