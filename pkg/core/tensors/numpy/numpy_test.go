// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/pointcloud/pkg/core/shapes"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
)

// npyBytes builds a version 1.0 .npy file with the given header dictionary and raw data.
func npyBytes(header string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	header += "\n"
	buf.Write([]byte{byte(len(header)), byte(len(header) >> 8)})
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}

func TestNpyRoundTrip(t *testing.T) {
	for _, tensor := range []*tensors.Tensor{
		tensors.FromValue([][]float32{{0, 0, 0}, {0.5, 0, 0}, {1, 0, 0}}),
		tensors.FromValue([]int32{0, 1, -1, -1}),
		tensors.FromValue([]bool{true, false, true}),
		tensors.FromValue(float64(3.5)),
		tensors.FromShape(shapes.Make(dtypes.Int32, 0)),
		tensors.FromShape(shapes.Make(dtypes.Float16, 2, 2)),
	} {
		t.Run(tensor.Shape().String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, ToNpyWriter(tensor, &buf))
			// Preamble plus header is aligned to 64 bytes.
			require.GreaterOrEqual(t, buf.Len(), 64)
			loaded, err := FromNpyReader(&buf)
			require.NoError(t, err)
			assert.True(t, tensor.Shape().Equal(loaded.Shape()), "got %s", loaded.Shape())
			assert.True(t, tensor.Equal(loaded))
		})
	}

	_, err := dtypeToNpy(dtypes.BFloat16)
	require.Error(t, err)
	err = ToNpyWriter(tensors.FromFlatDataAndDimensions([]bfloat16.BFloat16{0}, 1), &bytes.Buffer{})
	require.Error(t, err)
}

func TestFromNpyReaderFortranOrder(t *testing.T) {
	// Column-major [2, 3] int8 array [[1, 2, 3], [4, 5, 6]].
	data := []byte{1, 4, 2, 5, 3, 6}
	raw := npyBytes("{'descr': '|i1', 'fortran_order': True, 'shape': (2, 3), }", data)
	tensor, err := FromNpyReader(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, [][]int8{{1, 2, 3}, {4, 5, 6}}, tensor.Value())
}

func TestFromNpyReaderErrors(t *testing.T) {
	_, err := FromNpyReader(bytes.NewReader([]byte("not a numpy file")))
	require.Error(t, err)

	raw := npyBytes("{'descr': '>f4', 'fortran_order': False, 'shape': (1,), }", []byte{0, 0, 0, 0})
	_, err = FromNpyReader(bytes.NewReader(raw))
	require.ErrorContains(t, err, "big-endian")

	raw = npyBytes("{'descr': '<U8', 'fortran_order': False, 'shape': (1,), }", nil)
	_, err = FromNpyReader(bytes.NewReader(raw))
	require.ErrorContains(t, err, "unsupported NumPy dtype")

	// Truncated data.
	raw = npyBytes("{'descr': '<i4', 'fortran_order': False, 'shape': (4,), }", []byte{1, 0, 0, 0})
	_, err = FromNpyReader(bytes.NewReader(raw))
	require.Error(t, err)
}

func TestParseNpyHeader(t *testing.T) {
	descr, dims, fortran, err := parseNpyHeader("{'descr': '<f8', 'fortran_order': False, 'shape': (10,), }")
	require.NoError(t, err)
	assert.Equal(t, "<f8", descr)
	assert.Equal(t, []int{10}, dims)
	assert.False(t, fortran)

	_, dims, _, err = parseNpyHeader("{'descr': '<f8', 'fortran_order': False, 'shape': (), }")
	require.NoError(t, err)
	assert.Empty(t, dims)

	_, _, _, err = parseNpyHeader("{'descr': '<f8', 'shape': (3,), }")
	require.Error(t, err)
}

func TestNpzFileRoundTrip(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "edges.npz")
	src := tensors.FromValue([]int32{0, 1, 1, 2})
	dst := tensors.FromValue([]int32{1, 0, 2, 1})
	require.NoError(t, ToNpzFile(map[string]*tensors.Tensor{"src": src, "dst": dst}, filePath))

	loaded, err := FromNpzFile(filePath)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.True(t, src.Equal(loaded["src"]))
	assert.True(t, dst.Equal(loaded["dst"]))

	npyPath := filepath.Join(t.TempDir(), "pos.npy")
	pos := tensors.FromValue([][]float64{{0, 0}, {1, 1}})
	require.NoError(t, ToNpyFile(pos, npyPath))
	loadedPos, err := FromNpyFile(npyPath)
	require.NoError(t, err)
	assert.True(t, pos.Equal(loadedPos))

	_, err = FromNpyFile(filepath.Join(t.TempDir(), "missing.npy"))
	require.Error(t, err)
}
