// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"

	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/support/sets"
)

// DenseRelabel maps the integer keys in x to the dense range {0, ..., k-1}, where k is the number of
// distinct keys: y[i] == y[j] if and only if x[i] == x[j].
// Labels are assigned in ascending order of the keys, so the smallest key gets 0.
//
// x must be a rank-1 tensor of any integer dtype. The result is an Int32 tensor of the same length.
// Example: [7, 3, 7, 9] -> [1, 0, 1, 2].
func DenseRelabel(x *tensors.Tensor) (*tensors.Tensor, error) {
	if err := x.CheckValid(); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "DenseRelabel: %v", err)
	}
	if x.Rank() != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "DenseRelabel: keys must be rank-1, got shape %s", x.Shape())
	}
	if !tensors.IsIntegerDType(x.DType()) {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "DenseRelabel: keys must have an integer dtype, got %s", x.DType())
	}
	var labels []int32
	var numDistinct int
	if x.DType() == dtypes.Uint64 {
		// Ranked as uint64: keys above math.MaxInt64 don't fit an int64.
		err := tensors.ConstFlatData(x, func(keys []uint64) {
			labels, numDistinct = DenseRelabelSlice(keys)
		})
		if err != nil {
			return nil, err
		}
	} else {
		keys, err := tensors.FlatInt64(x)
		if err != nil {
			return nil, err
		}
		labels, numDistinct = DenseRelabelSlice(keys)
	}
	klog.V(2).Infof("DenseRelabel: %d keys, %d distinct", len(labels), numDistinct)
	return tensors.FromFlatDataAndDimensions(labels, len(labels)), nil
}

// DenseRelabelSlice is the slice version of DenseRelabel. It also returns the number of distinct keys.
func DenseRelabelSlice[T constraints.Integer](keys []T) (labels []int32, numDistinct int) {
	distinct := sets.Sorted(sets.MakeWith(keys...))
	labels = make([]int32, len(keys))
	for ii, key := range keys {
		// Always found: every key is in distinct.
		rank, _ := slices.BinarySearch(distinct, key)
		labels[ii] = int32(rank)
	}
	return labels, len(distinct)
}
