package heading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gostrata/block"
)

func addHeader(d *block.Document, page int, id, title string, lineHeight float64) *block.Block {
	h := d.AddRoot(page, &block.Block{
		ID:     id,
		Kind:   block.KindSectionHeader,
		Header: &block.Header{LineHeight: lineHeight},
	})
	if title != "" {
		d.AddChild(h, &block.Block{ID: id + "-s", Kind: block.KindSpan, Text: title})
	}
	return h
}

func TestClassifyTwoLevels(t *testing.T) {
	d := block.NewDocument("doc")
	h1 := addHeader(d, 0, "h1", "Title", 24.0)
	h2 := addHeader(d, 0, "h2", "Another Title", 23.8)
	h3 := addHeader(d, 1, "h3", "Subsection", 14.2)
	h4 := addHeader(d, 1, "h4", "Other Subsection", 14.0)

	res := New(Config{}).Classify(d)

	assert.Equal(t, 2, res.Levels)
	assert.Equal(t, 4, res.Assigned)
	assert.Equal(t, 1, h1.Header.Level)
	assert.Equal(t, 1, h2.Header.Level, "near-identical heights share a level")
	assert.Equal(t, 2, h3.Header.Level)
	assert.Equal(t, 2, h4.Header.Level)
}

func TestClassifySingleDistinctHeight(t *testing.T) {
	d := block.NewDocument("doc")
	hs := []*block.Block{
		addHeader(d, 0, "h1", "One", 16),
		addHeader(d, 0, "h2", "Two", 16),
		addHeader(d, 1, "h3", "Three", 16),
	}

	res := New(Config{}).Classify(d)

	assert.Equal(t, 1, res.Levels, "degenerate input collapses to one cluster")
	for _, h := range hs {
		assert.Equal(t, 1, h.Header.Level)
	}
}

func TestClassifyNoHeaders(t *testing.T) {
	d := block.NewDocument("doc")
	d.AddRoot(0, &block.Block{ID: "p", Kind: block.KindText})

	res := New(Config{}).Classify(d)

	assert.Zero(t, res.Levels)
	assert.Zero(t, res.Assigned)
	assert.Empty(t, res.Anomalies)
}

func TestClassifyIgnoresPlaceholderHeaders(t *testing.T) {
	d := block.NewDocument("doc")
	empty := addHeader(d, 0, "h-empty", "", 30.0)
	real := addHeader(d, 0, "h-real", "Contents", 18.0)

	res := New(Config{}).Classify(d)

	assert.Equal(t, 1, res.Ignored)
	assert.True(t, empty.Header.Ignore)
	assert.Zero(t, empty.Header.Level, "ignored headers receive no level")
	assert.Equal(t, 1, real.Header.Level)
	assert.Equal(t, 1, res.Levels, "placeholder height does not widen the cluster set")
}

func TestClassifyRespectsMaxLevels(t *testing.T) {
	// Four heights separated by identical 20% relative gaps. With MaxLevels
	// 3 the leftmost pair folds together on the tie.
	d := block.NewDocument("doc")
	h1 := addHeader(d, 0, "h1", "A", 100)
	h2 := addHeader(d, 0, "h2", "B", 80)
	h3 := addHeader(d, 0, "h3", "C", 64)
	h4 := addHeader(d, 0, "h4", "D", 51.2)

	res := New(Config{MaxLevels: 3}).Classify(d)

	assert.Equal(t, 3, res.Levels)
	assert.Equal(t, 1, h1.Header.Level)
	assert.Equal(t, 1, h2.Header.Level, "tie merges the most prominent neighbors")
	assert.Equal(t, 2, h3.Header.Level)
	assert.Equal(t, 3, h4.Header.Level)
}

func TestClassifyUnusableHeights(t *testing.T) {
	d := block.NewDocument("doc")
	good := addHeader(d, 0, "h1", "Fine", 20)
	bad := addHeader(d, 0, "h2", "Broken", math.NaN())
	zero := addHeader(d, 0, "h3", "Zero", 0)

	res := New(Config{}).Classify(d)

	require.Len(t, res.Anomalies, 2)
	assert.Equal(t, 1, good.Header.Level)
	assert.Equal(t, res.Levels, bad.Header.Level, "unusable heights sink to the lowest level")
	assert.Equal(t, res.Levels, zero.Header.Level)
}

func TestClassifyOnlyUnusableHeights(t *testing.T) {
	d := block.NewDocument("doc")
	h := addHeader(d, 0, "h1", "Only", -3)

	res := New(Config{}).Classify(d)

	assert.Equal(t, 1, res.Levels)
	assert.Equal(t, 1, h.Header.Level)
	assert.Len(t, res.Anomalies, 1)
}

func TestLevelMonotonicity(t *testing.T) {
	heights := []float64{7.5, 31, 12, 12.4, 22, 9.8, 30.2, 14, 21.5, 7.5}
	d := block.NewDocument("doc")
	var hs []*block.Block
	for i, lh := range heights {
		hs = append(hs, addHeader(d, i/4, ids(i), "H", lh))
	}

	New(Config{MaxLevels: 4}).Classify(d)

	// A taller header may never land on a less prominent (larger) level.
	for _, a := range hs {
		for _, b := range hs {
			if a.Header.LineHeight > b.Header.LineHeight {
				assert.LessOrEqual(t, a.Header.Level, b.Header.Level,
					"height %v (level %d) vs height %v (level %d)",
					a.Header.LineHeight, a.Header.Level, b.Header.LineHeight, b.Header.Level)
			}
		}
	}
}

func ids(i int) string {
	return string(rune('a'+i)) + "-hdr"
}

func TestClusterCentroidsDescend(t *testing.T) {
	clusters := cluster([]float64{10, 10.2, 24, 23.5, 16}, 6, 0.12)
	require.Len(t, clusters, 3)

	prev := math.Inf(1)
	for _, cl := range clusters {
		c := centroid(cl)
		assert.Less(t, c, prev, "cluster centroids rank strictly descending")
		prev = c
	}
	assert.InDelta(t, 23.75, centroid(clusters[0]), 1e-9)
	assert.InDelta(t, 16.0, centroid(clusters[1]), 1e-9)
	assert.InDelta(t, 10.1, centroid(clusters[2]), 1e-9)
}
