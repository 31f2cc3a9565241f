// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/gomlx/pointcloud/pkg/core/tensors"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	sentinelRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
				PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

// newPlainTable creates a table where the first row (if withHeader) is the header.
// Rows whose index is in highlighted are rendered with sentinelRowStyle.
func newPlainTable(withHeader bool, highlighted map[int]bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case withHeader && row == lgtable.HeaderRow:
				return headerRowStyle
			case highlighted[row]:
				s = sentinelRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// printTitle renders a section title.
func printTitle(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(title))
}

// summaryTable prints a two-column table of properties.
func summaryTable(w io.Writer, rows ...[2]string) {
	table := newPlainTable(false, nil)
	for _, row := range rows {
		table.Row(row[0], row[1])
	}
	_, _ = fmt.Fprintln(w, table.Render())
}

// tensorRow describes a tensor for summaryTable: its shape and memory.
func tensorRow(name string, t *tensors.Tensor) [2]string {
	return [2]string{name, fmt.Sprintf("%s, %s", t.Shape(), humanize.Bytes(uint64(t.Memory())))}
}

// countRow formats an integer count for summaryTable.
func countRow(name string, count int) [2]string {
	return [2]string{name, humanize.Comma(int64(count))}
}

// edgesTable prints up to maxRows edges, with their distance. Sentinel edges are highlighted.
func edgesTable(w io.Writer, src, dst []int32, distances []float64, maxRows int) {
	numRows := min(len(src), maxRows)
	highlighted := make(map[int]bool)
	table := newPlainTable(true, highlighted)
	table.Headers("#", "source", "destination", "distance")
	for e := range numRows {
		if src[e] < 0 {
			highlighted[e] = true
			table.Row(humanize.Comma(int64(e)), "-1", "-1", "(padding)")
			continue
		}
		table.Row(humanize.Comma(int64(e)), fmt.Sprint(src[e]), fmt.Sprint(dst[e]),
			humanize.FormatFloat("#,###.####", distances[e]))
	}
	if numRows < len(src) {
		table.Row("...", fmt.Sprintf("%s more", humanize.Comma(int64(len(src)-numRows))), "", "")
	}
	_, _ = fmt.Fprintln(w, table.Render())
}
