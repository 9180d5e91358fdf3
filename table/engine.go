package table

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/brunobiangulo/gostrata/block"
)

// Params tunes one secondary extraction attempt. The orchestrator perturbs
// these between attempts; an engine is free to ignore knobs it has no
// analogue for.
type Params struct {
	// LineSensitivity in [0,1]. Higher values keep weakly supported
	// column edges, lower values collapse them into their neighbors.
	LineSensitivity float64 `json:"line_sensitivity" yaml:"line_sensitivity"`
	// CellMergeDistance is the maximum coordinate gap, in layout units,
	// at which two cell edges are treated as the same grid line.
	CellMergeDistance float64 `json:"cell_merge_distance" yaml:"cell_merge_distance"`
}

// DefaultParams is the starting point of every optimization schedule.
func DefaultParams() Params {
	return Params{LineSensitivity: 0.5, CellMergeDistance: 3.0}
}

// Engine re-extracts a table region with alternative parameters. Reextract
// must honor ctx cancellation and return a fresh table that shares no
// mutable state with the region; the caller owns the result.
type Engine interface {
	Reextract(ctx context.Context, region *block.Block, params Params) (*block.Table, error)
}

// GridEngine rebuilds the cell matrix from cell geometry alone: cells are
// banded into rows by top edge and snapped to column grid lines inferred
// from left edges. It recovers tables whose primary extraction fused or
// split columns but whose per-cell boxes are sound, and fails cleanly when
// the region carries no geometry to work from.
type GridEngine struct{}

func (GridEngine) Reextract(ctx context.Context, region *block.Block, params Params) (*block.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if region == nil || !region.IsTable() {
		return nil, fmt.Errorf("region is not a table")
	}

	var cells []block.Cell
	for _, row := range region.Table.Rows {
		for _, c := range row {
			if c.HasRect() {
				cells = append(cells, c)
			}
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("region %s carries no cell geometry", region.ID)
	}

	tol := params.CellMergeDistance
	if tol <= 0 {
		tol = DefaultParams().CellMergeDistance
	}

	bands := bandRows(cells, tol)
	edges := columnEdges(cells, tol, params.LineSensitivity, len(bands))

	rows := make([][]block.Cell, len(bands))
	for i, band := range bands {
		row := make([]block.Cell, len(edges))
		for _, c := range band {
			j := nearestEdge(edges, c.Rect.X0)
			if row[j].Text == "" && row[j].Rect.IsZero() {
				row[j] = c
				continue
			}
			// Two boxes snapped to one grid slot: the primary split a
			// single logical cell.
			row[j].Text = row[j].Text + " " + c.Text
			row[j].Rect = row[j].Rect.Union(c.Rect)
		}
		rows[i] = row
	}

	out := &block.Table{
		Rows:    rows,
		Source:  block.SourceSecondary,
		Borders: region.Table.Borders,
	}
	for idx, isHeader := range region.Table.HeaderRows {
		if isHeader && idx < len(rows) {
			if out.HeaderRows == nil {
				out.HeaderRows = make(map[int]bool)
			}
			out.HeaderRows[idx] = true
		}
	}
	return out, nil
}

// bandRows groups cells into horizontal bands anchored at the first top
// edge seen per band, sorted top to bottom and left to right within a band.
func bandRows(cells []block.Cell, tol float64) [][]block.Cell {
	sorted := append([]block.Cell(nil), cells...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rect.Y0 < sorted[j].Rect.Y0 })

	var bands [][]block.Cell
	anchor := math.Inf(-1)
	for _, c := range sorted {
		if c.Rect.Y0-anchor > tol {
			bands = append(bands, nil)
			anchor = c.Rect.Y0
		}
		bands[len(bands)-1] = append(bands[len(bands)-1], c)
	}
	for _, band := range bands {
		sort.Slice(band, func(i, j int) bool { return band[i].Rect.X0 < band[j].Rect.X0 })
	}
	return bands
}

// columnEdges clusters left edges into candidate grid lines, then drops
// lines supported by fewer cells than sensitivity demands. At least one
// edge always survives.
func columnEdges(cells []block.Cell, tol, sensitivity float64, rows int) []float64 {
	xs := make([]float64, 0, len(cells))
	for _, c := range cells {
		xs = append(xs, c.Rect.X0)
	}
	sort.Float64s(xs)

	type edge struct {
		x       float64
		support int
	}
	var candidates []edge
	for _, x := range xs {
		if len(candidates) == 0 || x-candidates[len(candidates)-1].x > tol {
			candidates = append(candidates, edge{x: x})
		}
		candidates[len(candidates)-1].support++
	}

	need := int(math.Ceil((1 - clamp(sensitivity, 0, 1)) * float64(rows)))
	if need < 1 {
		need = 1
	}
	var kept []float64
	strongest := candidates[0]
	for _, e := range candidates {
		if e.support > strongest.support {
			strongest = e
		}
		if e.support >= need {
			kept = append(kept, e.x)
		}
	}
	if len(kept) == 0 {
		kept = []float64{strongest.x}
	}
	return kept
}

func nearestEdge(edges []float64, x float64) int {
	best, dist := 0, math.Inf(1)
	for i, e := range edges {
		if d := math.Abs(e - x); d < dist {
			best, dist = i, d
		}
	}
	return best
}
