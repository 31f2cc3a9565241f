// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/ml/gnn"
)

// runRadius implements the "radius" subcommand: builds the radius graph of a point cloud.
func runRadius(cfg Config, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("radius", flag.ContinueOnError)
	fs.SetOutput(w)
	flagPoints := fs.String("points", "", "Points, a float array shaped [N, D], in a \".npy\" file or "+
		"as \"file.npz:key\".")
	flagBatch := fs.String("batch", "", "Optional batch ids, an integer or bool array shaped [N]: only points "+
		"with the same batch id are connected.")
	flagRMax := fs.Float64("r_max", cfg.RMax, "Radius: points strictly closer than r_max are connected. "+
		"Defaults to $"+EnvPrefix+"R_MAX.")
	flagSize := fs.Int("size", -1, "If >= 0, the edge list is padded with -1 (or truncated) to exactly this size.")
	flagLoop := fs.Bool("loop", false, "Include pairs at distance 0, in particular self-loops.")
	flagRandom := fs.Int("random", 0, "If > 0, use this number of random points in the unit cube instead of -points.")
	flagDim := fs.Int("dim", 3, "Number of coordinates of the random points.")
	flagSeed := fs.Uint64("seed", 42, "Seed for -random.")
	flagOut := fs.String("out", "", "Save the edges to this file: \".npz\" with arrays \"src\" and \"dst\".")
	flagPlot := fs.String("plot", "", "Plot the points and edges (projected on the first 2 coordinates) to this "+
		"file, e.g. \"graph.png\".")
	flagMaxRows := fs.Int("max_rows", cfg.MaxRows, "Maximum number of edges listed. Defaults to $"+EnvPrefix+"MAX_ROWS.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.Errorf("radius: unexpected arguments %q", fs.Args())
	}

	var pos *tensors.Tensor
	switch {
	case *flagRandom > 0:
		pos = randomPoints(*flagRandom, *flagDim, *flagSeed)
	case *flagPoints != "":
		var err error
		pos, err = loadTensor(*flagPoints)
		if err != nil {
			return err
		}
	default:
		return errors.New("radius: either -points or -random must be given")
	}
	config := gnn.RadiusGraph(pos, *flagRMax).Parallelism(cfg.Parallelism)
	var batch *tensors.Tensor
	if *flagBatch != "" {
		var err error
		batch, err = loadTensor(*flagBatch)
		if err != nil {
			return err
		}
		config.Batch(batch)
	}
	if *flagSize >= 0 {
		config.Size(*flagSize)
	}
	if *flagLoop {
		config.Loop()
	}

	start := time.Now()
	src, dst, err := config.Done()
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	coords, err := tensors.FlatFloat64(pos)
	if err != nil {
		return err
	}
	dim := pos.Shape().Dim(1)
	srcIdx := tensors.MustCopyFlatData[int32](src)
	dstIdx := tensors.MustCopyFlatData[int32](dst)
	distances := make([]float64, len(srcIdx))
	var numSentinels int
	for e, s := range srcIdx {
		if s < 0 {
			numSentinels++
			continue
		}
		d := dstIdx[e]
		distances[e] = floats.Distance(coords[int(s)*dim:int(s+1)*dim], coords[int(d)*dim:int(d+1)*dim], 2)
	}

	printTitle(w, "Radius graph")
	rows := [][2]string{
		tensorRow("points", pos),
		{"r_max", fmt.Sprint(*flagRMax)},
		countRow("edges", len(srcIdx)-numSentinels),
	}
	if batch != nil {
		rows = append(rows, tensorRow("batch", batch))
	}
	if *flagSize >= 0 {
		rows = append(rows, countRow("size", *flagSize), countRow("padding", numSentinels))
	}
	rows = append(rows, [2]string{"elapsed", elapsed.String()})
	summaryTable(w, rows...)
	if *flagMaxRows > 0 && len(srcIdx) > 0 {
		printTitle(w, "Edges")
		edgesTable(w, srcIdx, dstIdx, distances, *flagMaxRows)
	}

	if *flagOut != "" {
		if err := saveTensors(*flagOut, map[string]*tensors.Tensor{"src": src, "dst": dst}); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Edges saved to %q\n", *flagOut)
	}
	if *flagPlot != "" {
		title := fmt.Sprintf("Radius graph, r_max=%g", *flagRMax)
		if err := plotGraph(title, coords, dim, srcIdx, dstIdx, *flagPlot); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Plot saved to %q\n", *flagPlot)
	}
	return nil
}
