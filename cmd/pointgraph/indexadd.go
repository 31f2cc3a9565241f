// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/gomlx/pointcloud/pkg/core/irreps"
	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/ml/gnn"
)

// runIndexAdd implements the "indexadd" subcommand: sums the rows of features into buckets.
func runIndexAdd(cfg Config, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("indexadd", flag.ContinueOnError)
	fs.SetOutput(w)
	flagIndices := fs.String("indices", "", "Bucket of each row, an integer array shaped [N], in a \".npy\" file "+
		"or as \"file.npz:key\".")
	flagFeatures := fs.String("features", "", "Features to sum, an array shaped [N, ...].")
	flagOutDim := fs.Int("out_dim", -1, "Number of buckets. Indices outside [0, out_dim) are dropped.")
	flagMapBack := fs.Bool("map_back", false, "Instead of -out_dim, map the sums back to the rows: row i gets "+
		"the sum of all rows with the same index as row i.")
	flagIrreps := fs.String("irreps", "", "Optional irreps of the last axis of the features, e.g. \"2x0e+1x1o\".")
	flagOut := fs.String("out", "", "Save the sums to this file (\".npy\" or \".npz\").")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.Errorf("indexadd: unexpected arguments %q", fs.Args())
	}
	if *flagIndices == "" || *flagFeatures == "" {
		return errors.New("indexadd: -indices and -features are required")
	}
	indices, err := loadTensor(*flagIndices)
	if err != nil {
		return err
	}
	features, err := loadTensor(*flagFeatures)
	if err != nil {
		return err
	}

	var sums *tensors.Tensor
	var tag irreps.Irreps
	if *flagIrreps == "" {
		config := gnn.IndexAdd(indices, features).Parallelism(cfg.Parallelism)
		configureIndexAdd(config, *flagOutDim, *flagMapBack)
		sums, err = config.Done()
	} else {
		tag, err = irreps.Parse(*flagIrreps)
		if err != nil {
			return err
		}
		var labeled *irreps.Array
		labeled, err = irreps.New(tag, features)
		if err != nil {
			return err
		}
		config := gnn.IndexAdd(indices, labeled).Parallelism(cfg.Parallelism)
		configureIndexAdd(config, *flagOutDim, *flagMapBack)
		labeled, err = config.Done()
		if err == nil {
			sums = labeled.Tensor()
		}
	}
	if err != nil {
		return err
	}

	printTitle(w, "Index add")
	rows := [][2]string{
		tensorRow("indices", indices),
		tensorRow("features", features),
		tensorRow("sums", sums),
	}
	if tag != nil {
		rows = append(rows, [2]string{"irreps", fmt.Sprintf("%s (dim %d)", tag, tag.Dim())})
	}
	summaryTable(w, rows...)
	_, _ = fmt.Fprintln(w, sums)

	if *flagOut != "" {
		if err := saveTensors(*flagOut, map[string]*tensors.Tensor{"sums": sums}); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Sums saved to %q\n", *flagOut)
	}
	return nil
}

// configureIndexAdd sets the destination size: a negative outDim means not set, and the
// library reports the missing or conflicting options.
func configureIndexAdd[F gnn.Features](config *gnn.IndexAddConfig[F], outDim int, mapBack bool) {
	if outDim >= 0 {
		config.OutDim(outDim)
	}
	if mapBack {
		config.MapBack()
	}
}
