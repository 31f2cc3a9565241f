// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/core/tensors/numpy"
	"github.com/gomlx/pointcloud/pkg/ml/gnn"
	"github.com/gomlx/pointcloud/pkg/support/fsutil"
)

func testConfig(t *testing.T) Config {
	cfg, err := LoadConfig(map[string]string{"POINTGRAPH_NO_COLOR": "true", "POINTGRAPH_PARALLELISM": "2"})
	require.NoError(t, err)
	cfg.applyColorProfile()
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{RMax: 1, Parallelism: -1, MaxRows: 20}, cfg)

	cfg, err = LoadConfig(map[string]string{
		"POINTGRAPH_R_MAX":    "0.25",
		"POINTGRAPH_MAX_ROWS": "5",
		"POINTGRAPH_NO_COLOR": "1",
		"R_MAX":               "7", // No prefix, ignored.
	})
	require.NoError(t, err)
	assert.Equal(t, Config{RMax: 0.25, Parallelism: -1, MaxRows: 5, NoColor: true}, cfg)

	_, err = LoadConfig(map[string]string{"POINTGRAPH_R_MAX": "far"})
	require.Error(t, err)
	_, err = LoadConfig(map[string]string{"POINTGRAPH_MAX_ROWS": "-1"})
	require.Error(t, err)
}

func TestSplitInputPath(t *testing.T) {
	for _, tc := range []struct{ input, file, key string }{
		{"pos.npy", "pos.npy", ""},
		{"data.npz", "data.npz", ""},
		{"data.npz:pos", "data.npz", "pos"},
		{"dir.npz:x/data.npz:batch", "dir.npz:x/data.npz", "batch"},
	} {
		file, key := splitInputPath(tc.input)
		assert.Equal(t, tc.file, file, "input %q", tc.input)
		assert.Equal(t, tc.key, key, "input %q", tc.input)
	}
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y"}, environMap([]string{"A=1", "B=x=y", "C"}))
}

func TestLoadTensor(t *testing.T) {
	dir := t.TempDir()
	npzPath := filepath.Join(dir, "data.npz")
	require.NoError(t, numpy.ToNpzFile(map[string]*tensors.Tensor{
		"a": tensors.FromValue([]int32{1, 2}),
		"b": tensors.FromValue([]float32{3}),
	}, npzPath))

	a, err := loadTensor(npzPath + ":a")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, a.Value())

	_, err = loadTensor(npzPath)
	require.Error(t, err, "more than one array and no key")
	_, err = loadTensor(npzPath + ":c")
	require.Error(t, err)
	_, err = loadTensor(filepath.Join(dir, "missing.npy"))
	require.Error(t, err)

	singlePath := filepath.Join(dir, "single.npz")
	require.NoError(t, numpy.ToNpzFile(map[string]*tensors.Tensor{"x": tensors.FromValue([]int64{5})}, singlePath))
	x, err := loadTensor(singlePath)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, x.Value())
}

func TestRadiusCommand(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	pointsPath := filepath.Join(dir, "points.npy")
	require.NoError(t, numpy.ToNpyFile(tensors.FromValue([][]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}), pointsPath))
	edgesPath := filepath.Join(dir, "edges.npz")

	var out bytes.Buffer
	err := run(cfg, []string{"radius", "-points", pointsPath, "-r_max", "1.5", "-size", "6", "-out", edgesPath}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Radius graph")
	assert.Contains(t, out.String(), "(padding)")

	edges := must.M1(numpy.FromNpzFile(edgesPath))
	require.Contains(t, edges, "src")
	require.Contains(t, edges, "dst")
	assert.Equal(t, []int32{0, 1, 1, 2, -1, -1}, edges["src"].Value())
	assert.Equal(t, []int32{1, 0, 2, 1, -1, -1}, edges["dst"].Value())

	// Batch from an .npz entry.
	batchPath := filepath.Join(dir, "batch.npz")
	require.NoError(t, numpy.ToNpzFile(map[string]*tensors.Tensor{"batch": tensors.FromValue([]bool{true, true, false})},
		batchPath))
	srcPath := filepath.Join(dir, "src.npy")
	out.Reset()
	err = run(cfg, []string{"radius", "-points", pointsPath, "-batch", batchPath + ":batch", "-r_max", "1.5",
		"-out", srcPath}, &out)
	require.Error(t, err, "two arrays can't be saved to a single .npy file")

	out.Reset()
	err = run(cfg, []string{"radius", "-points", pointsPath, "-batch", batchPath + ":batch", "-r_max", "1.5",
		"-out", edgesPath}, &out)
	require.NoError(t, err)
	edges = must.M1(numpy.FromNpzFile(edgesPath))
	assert.Equal(t, []int32{0, 1}, edges["src"].Value())
	assert.Equal(t, []int32{1, 0}, edges["dst"].Value())
}

func TestRadiusCommandRandomAndPlot(t *testing.T) {
	cfg := testConfig(t)
	plotPath := filepath.Join(t.TempDir(), "graph.png")
	var out bytes.Buffer
	err := run(cfg, []string{"radius", "-random", "50", "-seed", "3", "-r_max", "0.3", "-max_rows", "5",
		"-plot", plotPath}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "more")
	assert.True(t, fsutil.MustFileExists(plotPath))

	err = run(cfg, []string{"radius", "-random", "5", "-dim", "1", "-plot", plotPath}, &out)
	require.Error(t, err, "can't plot 1D points")
}

func TestIndexAddCommand(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.npz")
	require.NoError(t, numpy.ToNpzFile(map[string]*tensors.Tensor{
		"indices":  tensors.FromValue([]int32{0, 2, 2, 0}),
		"features": tensors.FromValue([]float32{1, 2, 3, -10}),
		"vectors": tensors.FromValue([][]float32{
			{1, 0, 0, 1}, {2, 1, 0, 0}, {3, 0, 1, 0}, {4, 0, 0, 0}}),
	}, inputPath))
	sumsPath := filepath.Join(dir, "sums.npy")

	var out bytes.Buffer
	err := run(cfg, []string{"indexadd", "-indices", inputPath + ":indices", "-features", inputPath + ":features",
		"-out_dim", "4", "-out", sumsPath}, &out)
	require.NoError(t, err)
	sums := must.M1(numpy.FromNpyFile(sumsPath))
	assert.Equal(t, []float32{-9, 0, 5, 0}, sums.Value())

	out.Reset()
	err = run(cfg, []string{"indexadd", "-indices", inputPath + ":indices", "-features", inputPath + ":vectors",
		"-map_back", "-irreps", "1x0e+1x1o", "-out", sumsPath}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1x0e+1x1o")
	sums = must.M1(numpy.FromNpyFile(sumsPath))
	assert.Equal(t, [][]float32{{5, 0, 0, 1}, {5, 1, 1, 0}, {5, 1, 1, 0}, {5, 0, 0, 1}}, sums.Value())

	// Errors.
	err = run(cfg, []string{"indexadd", "-indices", inputPath + ":indices", "-features", inputPath + ":features",
		"-out_dim", "4", "-map_back"}, &out)
	require.True(t, errors.Is(err, gnn.ErrInvalidConfiguration), "got %v", err)
	err = run(cfg, []string{"indexadd", "-indices", inputPath + ":indices", "-features", inputPath + ":features"}, &out)
	require.True(t, errors.Is(err, gnn.ErrInvalidConfiguration), "got %v", err)
	err = run(cfg, []string{"indexadd", "-indices", inputPath + ":indices", "-features", inputPath + ":vectors",
		"-out_dim", "3", "-irreps", "2x1o"}, &out)
	require.Error(t, err, "irreps dimension doesn't match")
	err = run(cfg, []string{"indexadd", "-features", inputPath + ":features"}, &out)
	require.Error(t, err)
}

func TestBenchCommand(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	err := run(cfg, []string{"bench", "-n", "10,30", "-repeats", "2", "-r_max", "0.5", "-progress=false"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Benchmark")
	assert.Contains(t, out.String(), "30")

	require.Error(t, run(cfg, []string{"bench", "-n", "0"}, &out))
	require.Error(t, run(cfg, []string{"bench", "-repeats", "0"}, &out))
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run(testConfig(t), []string{"cluster"}, &out))
}
