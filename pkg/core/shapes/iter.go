// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import "iter"

// Iter iterates over all possible indices of the given shape, in row-major order (the last axis changes fastest).
//
// It yields the flat index (counter) and a slice of indices for each axis.
// To avoid allocating the slice of indices, the yielded indices is owned by the Iter() method:
// don't change it inside the loop.
func (s Shape) Iter() iter.Seq2[int, []int] {
	return func(yield func(int, []int) bool) {
		if !s.Ok() || s.IsZeroSize() {
			return
		}
		rank := s.Rank()
		indices := make([]int, rank)
		if rank == 0 {
			// Scalar: yield one empty index slice.
			_ = yield(0, indices)
			return
		}
		for flatIdx := 0; ; flatIdx++ {
			if !yield(flatIdx, indices) {
				return
			}
			// Increment the indices with carry-over, from the last axis.
			axis := rank - 1
			for ; axis >= 0; axis-- {
				indices[axis]++
				if indices[axis] < s.Dimensions[axis] {
					break
				}
				indices[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}
