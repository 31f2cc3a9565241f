// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotGraph saves the projection on the first two coordinates of the points and the edges of the graph.
// The format is given by the file extension (".png", ".svg", ".pdf", ...).
func plotGraph(title string, coords []float64, dim int, src, dst []int32, filePath string) error {
	if dim < 2 {
		return errors.Errorf("cannot plot points with %d coordinates, at least 2 are needed", dim)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	// Each undirected edge is drawn once.
	for e, s := range src {
		d := dst[e]
		if s < 0 || s >= d {
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{
			{X: coords[int(s)*dim], Y: coords[int(s)*dim+1]},
			{X: coords[int(d)*dim], Y: coords[int(d)*dim+1]},
		})
		if err != nil {
			return errors.Wrapf(err, "plotting edge %d->%d", s, d)
		}
		line.LineStyle.Color = color.Gray{Y: 160}
		line.LineStyle.Width = vg.Points(0.5)
		p.Add(line)
	}

	numPoints := len(coords) / dim
	points := make(plotter.XYs, numPoints)
	for ii := range points {
		points[ii].X = coords[ii*dim]
		points[ii].Y = coords[ii*dim+1]
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return errors.Wrap(err, "plotting points")
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(scatter)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, filePath); err != nil {
		return errors.Wrapf(err, "saving plot to %q", filePath)
	}
	return nil
}
