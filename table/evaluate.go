// Package table scores extracted tables, merges cross-page continuations,
// and drives bounded secondary-extraction fallback for low-quality regions.
package table

import (
	"math"
	"sort"

	"github.com/brunobiangulo/gostrata/block"
)

// Weights blends the four quality metrics into one score. Any metric whose
// input signal is missing (no cell geometry, no border hints) drops out and
// its weight is redistributed over the rest, so scores stay comparable
// across detectors of different fidelity.
type Weights struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Structure    float64 `json:"structure" yaml:"structure"`
	Alignment    float64 `json:"alignment" yaml:"alignment"`
	Borders      float64 `json:"borders" yaml:"borders"`
}

// DefaultWeights emphasizes completeness and structure; alignment and
// border evidence refine rather than dominate.
func DefaultWeights() Weights {
	return Weights{Completeness: 0.35, Structure: 0.35, Alignment: 0.15, Borders: 0.15}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w.Completeness == 0 && w.Structure == 0 && w.Alignment == 0 && w.Borders == 0
}

// Evaluator computes quality breakdowns for table regions.
type Evaluator struct {
	w Weights
}

// NewEvaluator creates an evaluator; a zero Weights value selects the
// defaults.
func NewEvaluator(w Weights) *Evaluator {
	if w.IsZero() {
		w = DefaultWeights()
	}
	return &Evaluator{w: w}
}

// Evaluate scores the cell matrix. Ragged rows, empty cells and missing
// geometry are all valid input reflected in the score, never errors. The
// returned breakdown is not attached to the table; callers decide when a
// score becomes the table's quality of record.
func (e *Evaluator) Evaluate(t *block.Table) *block.Quality {
	q := &block.Quality{CellCount: t.CellCount()}
	if t.RowCount() == 0 || q.CellCount == 0 {
		return q
	}

	q.Completeness = completeness(t)
	q.Structure = structureIntegrity(t)

	sum := e.w.Completeness*q.Completeness + e.w.Structure*q.Structure
	wsum := e.w.Completeness + e.w.Structure

	if a, ok := alignmentConsistency(t); ok {
		q.Alignment = a
		sum += e.w.Alignment * a
		wsum += e.w.Alignment
	}
	if b, ok := borderEvidence(t); ok {
		q.Borders = b
		sum += e.w.Borders * b
		wsum += e.w.Borders
	}

	if wsum > 0 {
		q.Score = clamp(sum/wsum, 0, 1)
	}
	return q
}

// completeness is the fraction of non-empty cells over the expected grid
// size, rows times the widest row.
func completeness(t *block.Table) float64 {
	expected := t.RowCount() * t.ColumnCount()
	if expected == 0 {
		return 0
	}
	filled := 0
	for _, row := range t.Rows {
		for _, c := range row {
			if c.Text != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(expected)
}

// structureIntegrity penalizes variance in per-row cell counts against the
// modal count: a row with half the columns of its siblings scores 0.5.
func structureIntegrity(t *block.Table) float64 {
	mode := modeColumns(t)
	if mode == 0 {
		return 0
	}
	total := 0.0
	for _, row := range t.Rows {
		n := len(row)
		if n == mode {
			total += 1
			continue
		}
		lo, hi := n, mode
		if lo > hi {
			lo, hi = hi, lo
		}
		total += float64(lo) / float64(hi)
	}
	return total / float64(t.RowCount())
}

// alignmentConsistency is the fraction of geometry-bearing cells whose left
// edge sits within tolerance of its column's shared edge (the per-column
// median). Returns ok=false when the detector supplied no cell geometry.
func alignmentConsistency(t *block.Table) (float64, bool) {
	byColumn := make(map[int][]float64)
	var widths []float64
	geo := 0
	for _, row := range t.Rows {
		for j, c := range row {
			if !c.HasRect() {
				continue
			}
			geo++
			byColumn[j] = append(byColumn[j], c.Rect.X0)
			widths = append(widths, c.Rect.Width())
		}
	}
	if geo == 0 {
		return 0, false
	}

	tol := 0.15 * median(widths)
	if tol < 2 {
		tol = 2
	}
	edges := make(map[int]float64, len(byColumn))
	for j, xs := range byColumn {
		edges[j] = median(xs)
	}

	aligned := 0
	for _, row := range t.Rows {
		for j, c := range row {
			if !c.HasRect() {
				continue
			}
			if math.Abs(c.Rect.X0-edges[j]) <= tol {
				aligned++
			}
		}
	}
	return float64(aligned) / float64(geo), true
}

// borderEvidence grades detector-reported ruled lines against the count a
// fully ruled grid of this shape would have. Returns ok=false without
// detector hints.
func borderEvidence(t *block.Table) (float64, bool) {
	if t.Borders == nil {
		return 0, false
	}
	expectedH := t.RowCount() + 1
	expectedV := modeColumns(t) + 1
	h := math.Min(1, float64(t.Borders.HorizontalRules)/float64(expectedH))
	v := math.Min(1, float64(t.Borders.VerticalRules)/float64(expectedV))
	return (h + v) / 2, true
}

// modeColumns returns the most frequent row width; ties prefer the wider
// row, matching the grid shape a detector aims for.
func modeColumns(t *block.Table) int {
	counts := make(map[int]int)
	for _, row := range t.Rows {
		counts[len(row)]++
	}
	mode, best := 0, 0
	for n, freq := range counts {
		if freq > best || (freq == best && n > mode) {
			mode, best = n, freq
		}
	}
	return mode
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
