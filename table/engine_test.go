package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gostrata/block"
)

func geoCell(text string, x0, y0 float64) block.Cell {
	return block.Cell{Text: text, Rect: block.Rect{X0: x0, Y0: y0, X1: x0 + 40, Y1: y0 + 10}}
}

func tableRegion(id string, t *block.Table) *block.Block {
	return &block.Block{ID: id, Kind: block.KindTable, Table: t}
}

// The primary extractor fused two physical rows into one; the grid engine
// re-bands the cells by their boxes and recovers the 2x3 shape.
func TestGridEngineRebandsFusedRows(t *testing.T) {
	region := tableRegion("t1", &block.Table{Rows: [][]block.Cell{{
		geoCell("a", 0, 0), geoCell("b", 50, 0), geoCell("c", 100, 0),
		geoCell("d", 0, 20), geoCell("e", 50, 20), geoCell("f", 100, 20),
	}}})

	out, err := GridEngine{}.Reextract(context.Background(), region, DefaultParams())

	require.NoError(t, err)
	assert.Equal(t, block.SourceSecondary, out.Source)
	require.Equal(t, 2, out.RowCount())
	require.Equal(t, 3, out.ColumnCount())
	assert.Equal(t, "a", out.Rows[0][0].Text)
	assert.Equal(t, "c", out.Rows[0][2].Text)
	assert.Equal(t, "d", out.Rows[1][0].Text)
	assert.Equal(t, "f", out.Rows[1][2].Text)
}

// Two boxes within merge distance of the same grid line belong to one
// logical cell.
func TestGridEngineJoinsSplitCells(t *testing.T) {
	region := tableRegion("t1", &block.Table{Rows: [][]block.Cell{
		{geoCell("id", 0, 0), geoCell("full", 50, 0)},
		{geoCell("1", 0, 20), geoCell("ada", 50, 20), geoCell("lovelace", 51.5, 20)},
	}})

	out, err := GridEngine{}.Reextract(context.Background(), region, DefaultParams())

	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount())
	require.Equal(t, 2, out.ColumnCount())
	assert.Equal(t, "ada lovelace", out.Rows[1][1].Text)
}

func TestGridEngineSensitivityControlsColumns(t *testing.T) {
	// Three well-supported cells in one column, one stray box far right.
	tbl := &block.Table{Rows: [][]block.Cell{
		{geoCell("a", 0, 0)},
		{geoCell("b", 0, 20), geoCell("stray", 200, 20)},
		{geoCell("c", 0, 40)},
	}}

	strict, err := GridEngine{}.Reextract(context.Background(), tableRegion("t1", tbl),
		Params{LineSensitivity: 0.2, CellMergeDistance: 3})
	require.NoError(t, err)
	loose, err := GridEngine{}.Reextract(context.Background(), tableRegion("t1", tbl),
		Params{LineSensitivity: 0.9, CellMergeDistance: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, strict.ColumnCount())
	assert.Equal(t, "b stray", strict.Rows[1][0].Text)
	assert.Equal(t, 2, loose.ColumnCount())
	assert.Equal(t, "stray", loose.Rows[1][1].Text)
}

func TestGridEngineCarriesHeaderRows(t *testing.T) {
	region := tableRegion("t1", &block.Table{
		Rows: [][]block.Cell{
			{geoCell("k", 0, 0), geoCell("v", 50, 0)},
			{geoCell("1", 0, 20), geoCell("one", 50, 20)},
		},
		HeaderRows: map[int]bool{0: true},
	})

	out, err := GridEngine{}.Reextract(context.Background(), region, DefaultParams())

	require.NoError(t, err)
	assert.True(t, out.HeaderRows[0])
	assert.False(t, out.HeaderRows[1])
}

func TestGridEngineRequiresGeometry(t *testing.T) {
	region := tableRegion("t1", mkTable([][]string{{"a", "b"}, {"c", "d"}}))

	_, err := GridEngine{}.Reextract(context.Background(), region, DefaultParams())
	assert.Error(t, err)
}

func TestGridEngineRejectsNonTables(t *testing.T) {
	_, err := GridEngine{}.Reextract(context.Background(), &block.Block{ID: "x", Kind: block.KindText}, DefaultParams())
	assert.Error(t, err)

	_, err = GridEngine{}.Reextract(context.Background(), nil, DefaultParams())
	assert.Error(t, err)
}

func TestGridEngineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	region := tableRegion("t1", &block.Table{Rows: [][]block.Cell{{geoCell("a", 0, 0)}}})
	_, err := GridEngine{}.Reextract(ctx, region, DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}
