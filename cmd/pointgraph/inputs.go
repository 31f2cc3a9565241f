// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/core/tensors/numpy"
	"github.com/gomlx/pointcloud/pkg/support/fsutil"
	"github.com/gomlx/pointcloud/pkg/support/xslices"
)

// environMap converts a list of "KEY=value" entries, as returned by os.Environ, to a map.
func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, entry := range environ {
		if key, value, found := strings.Cut(entry, "="); found {
			m[key] = value
		}
	}
	return m
}

// splitInputPath splits "file.npz:key" into the file path and the key.
// For any other path the key is empty.
func splitInputPath(inputPath string) (filePath, key string) {
	if idx := strings.LastIndex(inputPath, ".npz:"); idx >= 0 {
		return inputPath[:idx+len(".npz")], inputPath[idx+len(".npz:"):]
	}
	return inputPath, ""
}

// loadTensor reads a tensor from a ".npy" file, or from an entry of a ".npz" file given as "file.npz:key".
// A ".npz" file with a single entry can be given without the key.
func loadTensor(inputPath string) (*tensors.Tensor, error) {
	filePath, key := splitInputPath(inputPath)
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return nil, err
	}
	exists, err := fsutil.FileExists(filePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Errorf("input file %q not found", filePath)
	}
	if strings.ToLower(filepath.Ext(filePath)) != ".npz" {
		return numpy.FromNpyFile(filePath)
	}

	entries, err := numpy.FromNpzFile(filePath)
	if err != nil {
		return nil, err
	}
	names := xslices.SortedKeys(entries)
	if key == "" {
		if len(entries) != 1 {
			return nil, errors.Errorf("%q has %d arrays %q, select one with %q", filePath, len(entries), names,
				filePath+":<name>")
		}
		key = names[0]
	}
	tensor, found := entries[key]
	if !found {
		return nil, errors.Errorf("array %q not found in %q, available arrays: %q", key, filePath, names)
	}
	for name, other := range entries {
		if name != key {
			other.FinalizeAll()
		}
	}
	klog.V(1).Infof("loaded %s from %q", tensor.Shape(), inputPath)
	return tensor, nil
}

// saveTensors writes the named tensors to outputPath: a ".npz" file with all of them, or, if there is a
// single tensor, a ".npy" file.
func saveTensors(outputPath string, named map[string]*tensors.Tensor) error {
	outputPath, err := fsutil.ReplaceTildeInDir(outputPath)
	if err != nil {
		return err
	}
	if strings.ToLower(filepath.Ext(outputPath)) == ".npz" {
		return numpy.ToNpzFile(named, outputPath)
	}
	if len(named) != 1 {
		return errors.Errorf("cannot save %d arrays %q to %q, use a \".npz\" file",
			len(named), xslices.SortedKeys(named), outputPath)
	}
	name := xslices.SortedKeys(named)[0]
	return numpy.ToNpyFile(named[name], outputPath)
}

// randomPoints returns numPoints uniformly distributed in the unit cube [0, 1)^dim, shaped [numPoints, dim].
func randomPoints(numPoints, dim int, seed uint64) *tensors.Tensor {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	coords := make([]float32, numPoints*dim)
	for ii := range coords {
		coords[ii] = rng.Float32()
	}
	return tensors.FromFlatDataAndDimensions(coords, numPoints, dim)
}
