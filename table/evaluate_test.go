package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gostrata/block"
)

// mkTable builds a geometry-less matrix from cell texts.
func mkTable(rows [][]string) *block.Table {
	t := &block.Table{Source: block.SourcePrimary}
	for _, row := range rows {
		cells := make([]block.Cell, len(row))
		for j, text := range row {
			cells[j] = block.Cell{Text: text}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func fullGrid(rows, cols int) *block.Table {
	t := &block.Table{Source: block.SourcePrimary}
	for i := 0; i < rows; i++ {
		row := make([]block.Cell, cols)
		for j := range row {
			row[j] = block.Cell{Text: "x"}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestEvaluateFullGrid(t *testing.T) {
	q := NewEvaluator(DefaultWeights()).Evaluate(fullGrid(3, 3))

	assert.InDelta(t, 1.0, q.Completeness, 1e-9)
	assert.InDelta(t, 1.0, q.Structure, 1e-9)
	assert.InDelta(t, 1.0, q.Score, 1e-9)
	assert.Equal(t, 9, q.CellCount)
	assert.False(t, q.NeedsSecondary(0.6, 4))
}

func TestEvaluateEmptyCellsLowerScore(t *testing.T) {
	e := NewEvaluator(DefaultWeights())

	full := e.Evaluate(fullGrid(3, 3))
	sparse := e.Evaluate(mkTable([][]string{
		{"a", "b", ""},
		{"", "c", ""},
		{"d", "", ""},
	}))

	assert.InDelta(t, 4.0/9.0, sparse.Completeness, 1e-9)
	assert.Less(t, sparse.Score, full.Score)
}

func TestEvaluateRaggedRows(t *testing.T) {
	q := NewEvaluator(DefaultWeights()).Evaluate(mkTable([][]string{
		{"a", "b", "c"},
		{"d", "e", "f"},
		{"g"},
	}))

	// Two modal rows plus one at a third of the modal width.
	assert.InDelta(t, (1+1+1.0/3)/3, q.Structure, 1e-9)
	assert.Less(t, q.Score, 1.0)
}

func TestEvaluateAlignmentSignal(t *testing.T) {
	e := NewEvaluator(DefaultWeights())

	grid := func(secondRowX0 [2]float64) *block.Table {
		mk := func(x0, y0 float64) block.Cell {
			return block.Cell{Text: "x", Rect: block.Rect{X0: x0, Y0: y0, X1: x0 + 40, Y1: y0 + 10}}
		}
		return &block.Table{Rows: [][]block.Cell{
			{mk(10, 0), mk(60, 0)},
			{mk(secondRowX0[0], 12), mk(secondRowX0[1], 12)},
		}}
	}

	aligned := e.Evaluate(grid([2]float64{10, 60}))
	skewed := e.Evaluate(grid([2]float64{25, 75}))

	assert.InDelta(t, 1.0, aligned.Alignment, 1e-9)
	assert.InDelta(t, 0.0, skewed.Alignment, 1e-9)
	assert.Greater(t, aligned.Score, skewed.Score)
}

func TestEvaluateBorderSignal(t *testing.T) {
	e := NewEvaluator(DefaultWeights())

	ruled := fullGrid(3, 3)
	ruled.Borders = &block.BorderHints{HorizontalRules: 4, VerticalRules: 4}
	faint := fullGrid(3, 3)
	faint.Borders = &block.BorderHints{HorizontalRules: 1, VerticalRules: 0}

	qr := e.Evaluate(ruled)
	qf := e.Evaluate(faint)

	assert.InDelta(t, 1.0, qr.Borders, 1e-9)
	assert.InDelta(t, 0.125, qf.Borders, 1e-9)
	assert.Greater(t, qr.Score, qf.Score)
}

// A detector that reports no geometry and no border hints must not be
// penalized for the missing signals.
func TestEvaluateRedistributesMissingSignals(t *testing.T) {
	q := NewEvaluator(DefaultWeights()).Evaluate(fullGrid(2, 4))

	assert.Zero(t, q.Alignment)
	assert.Zero(t, q.Borders)
	assert.InDelta(t, 1.0, q.Score, 1e-9)
}

func TestEvaluateEmptyTable(t *testing.T) {
	q := NewEvaluator(DefaultWeights()).Evaluate(&block.Table{})

	require.NotNil(t, q)
	assert.Zero(t, q.Score)
	assert.Zero(t, q.CellCount)
	assert.True(t, q.NeedsSecondary(0.6, 4))
}

func TestEvaluateCustomWeights(t *testing.T) {
	// All weight on completeness: structure deviations stop mattering.
	e := NewEvaluator(Weights{Completeness: 1})
	q := e.Evaluate(mkTable([][]string{
		{"a", "b", "c"},
		{"d"},
	}))

	assert.InDelta(t, q.Completeness, q.Score, 1e-9)
}

func TestModeColumnsPrefersWiderOnTie(t *testing.T) {
	tbl := mkTable([][]string{
		{"a", "b", "c", "d"},
		{"e", "f", "g"},
	})
	assert.Equal(t, 4, modeColumns(tbl))
}
