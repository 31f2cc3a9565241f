// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/gomlx/pointcloud/pkg/core/tensors"
	"github.com/gomlx/pointcloud/pkg/ml/gnn"
	"github.com/gomlx/pointcloud/pkg/support/xslices"
)

// benchResult holds the timings of one point cloud size.
type benchResult struct {
	numPoints, numEdges    int
	radiusTimes, sumsTimes []time.Duration
}

// runBench implements the "bench" subcommand: times RadiusGraph and IndexAdd (summing edge messages
// into their destination) on random point clouds.
func runBench(cfg Config, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(w)
	flagNumPoints := xslices.FlagSet(fs, "n", []int{100, 1000}, "Comma-separated list of number of points.",
		strconv.Atoi)
	flagRMax := fs.Float64("r_max", cfg.RMax/10, "Radius, for points in the unit cube.")
	flagFeatures := fs.Int("features", 16, "Number of features per edge summed with IndexAdd.")
	flagRepeats := fs.Int("repeats", 5, "Number of times each measure is repeated.")
	flagSeed := fs.Uint64("seed", 42, "Seed of the random points.")
	flagProgress := fs.Bool("progress", true, "Display a progress bar.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *flagRepeats <= 0 {
		return errors.Errorf("bench: -repeats=%d must be > 0", *flagRepeats)
	}
	for _, n := range *flagNumPoints {
		if n <= 0 {
			return errors.Errorf("bench: -n values must be > 0, got %d", n)
		}
	}

	var bar *progressbar.ProgressBar
	if *flagProgress {
		totalRuns := len(*flagNumPoints) * *flagRepeats
		bar = progressbar.NewOptions(totalRuns,
			progressbar.OptionSetDescription("bench"),
			progressbar.OptionSetWriter(w),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("runs"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionClearOnFinish(),
		)
	}
	results := make([]benchResult, 0, len(*flagNumPoints))
	for _, numPoints := range *flagNumPoints {
		pos := randomPoints(numPoints, 3, *flagSeed)
		result := benchResult{numPoints: numPoints}
		for range *flagRepeats {
			start := time.Now()
			src, dst, err := gnn.RadiusGraph(pos, *flagRMax).Parallelism(cfg.Parallelism).Done()
			if err != nil {
				return err
			}
			result.radiusTimes = append(result.radiusTimes, time.Since(start))
			result.numEdges = src.Shape().Dim(0)

			messages := tensors.FromScalarAndDimensions(float32(1), result.numEdges, *flagFeatures)
			start = time.Now()
			sums, err := gnn.IndexAdd(dst, messages).OutDim(numPoints).Parallelism(cfg.Parallelism).Done()
			if err != nil {
				return err
			}
			result.sumsTimes = append(result.sumsTimes, time.Since(start))
			for _, t := range []*tensors.Tensor{src, dst, messages, sums} {
				t.FinalizeAll()
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		pos.FinalizeAll()
		results = append(results, result)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	printTitle(w, "Benchmark")
	table := newPlainTable(true, nil)
	table.Headers("points", "edges", "radius graph (min / max)", "index add (min / max)")
	for _, r := range results {
		table.Row(humanize.Comma(int64(r.numPoints)), humanize.Comma(int64(r.numEdges)),
			formatTimes(r.radiusTimes), formatTimes(r.sumsTimes))
	}
	_, _ = fmt.Fprintln(w, table.Render())
	return nil
}

func formatTimes(times []time.Duration) string {
	return fmt.Sprintf("%s / %s", xslices.Min(times), xslices.Max(times))
}
