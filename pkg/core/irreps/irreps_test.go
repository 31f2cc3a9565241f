// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package irreps

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		input, want string
		dim, num    int
	}{
		{"2x0e+1x1o", "2x0e+1x1o", 5, 3},
		{" 2x0e + 1o ", "2x0e+1x1o", 5, 3},
		{"1y+2y+3y", "1x1o+1x2e+1x3o", 3 + 5 + 7, 3},
		{"16x0e", "16x0e", 16, 16},
		{"0x1o+3x2e", "0x1o+3x2e", 15, 3},
		{"", "", 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			irreps, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, irreps.String())
			assert.Equal(t, tc.dim, irreps.Dim())
			assert.Equal(t, tc.num, irreps.Num())

			// Round trip.
			again := MustParse(irreps.String())
			assert.True(t, irreps.Equal(again))
		})
	}

	for _, bad := range []string{"x0e", "2x", "2xe", "-1x0e", "1q", "ax1o", "0e++1o", "-1o"} {
		_, err := Parse(bad)
		require.Errorf(t, err, "Parse(%q) should have failed", bad)
	}
	require.Panics(t, func() { MustParse("1q") })
}

func TestIrrep(t *testing.T) {
	ir, err := ParseIrrep("2e")
	require.NoError(t, err)
	assert.Equal(t, Irrep{L: 2, P: Even}, ir)
	assert.Equal(t, 5, ir.Dim())
	assert.Equal(t, "2e", ir.String())
	assert.Equal(t, "3x1o", MulIrrep{Mul: 3, Irrep: Irrep{L: 1, P: Odd}}.String())
}

func TestSlices(t *testing.T) {
	irreps := MustParse("2x0e+1x1o+1x2e")
	assert.Equal(t, [][2]int{{0, 2}, {2, 5}, {5, 10}}, irreps.Slices())
	assert.False(t, irreps.Equal(MustParse("2x0e+1x1o")))
	assert.False(t, irreps.Equal(MustParse("2x0e+1x1e+1x2e")))
}

func TestArray(t *testing.T) {
	irreps := MustParse("1x0e+1x1o")
	features := tensors.FromShape(shapes.Make(dtypes.Float32, 10, 4))
	a, err := New(irreps, features)
	require.NoError(t, err)
	assert.True(t, a.Irreps().Equal(irreps))
	assert.Same(t, features, a.Tensor())
	assert.True(t, a.Shape().Equal(features.Shape()))
	assert.Contains(t, a.String(), "1x0e+1x1o")

	// Last axis doesn't match irreps dimension.
	_, err = New(irreps, tensors.FromShape(shapes.Make(dtypes.Float32, 10, 3)))
	require.Error(t, err)
	_, err = New(irreps, tensors.FromScalar(float32(1)))
	require.Error(t, err)
	_, err = New(irreps, nil)
	require.Error(t, err)
	require.Panics(t, func() { MustNew(MustParse("2x1o"), features) })

	// Rank-1 arrays are a single row of features.
	_, err = New(irreps, tensors.FromShape(shapes.Make(dtypes.Float64, 4)))
	require.NoError(t, err)
}
