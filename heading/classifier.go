// Package heading assigns prominence levels to section headers by clustering
// their detector-reported line heights.
package heading

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/brunobiangulo/gostrata/block"
)

// Config controls one classification pass.
type Config struct {
	// MaxLevels bounds the number of distinct levels produced. Default 6.
	MaxLevels int

	// GapRatio is the minimum relative gap between neighboring line heights
	// that separates two clusters. Default 0.12, i.e. a 12% drop in line
	// height starts a new level.
	GapRatio float64
}

// Classifier clusters header line heights into at most MaxLevels levels,
// ranked by descending cluster centroid: level 1 is the most prominent.
type Classifier struct {
	cfg Config
}

// New creates a classifier, applying defaults for zero values.
func New(cfg Config) *Classifier {
	if cfg.MaxLevels <= 0 {
		cfg.MaxLevels = 6
	}
	if cfg.GapRatio <= 0 {
		cfg.GapRatio = 0.12
	}
	return &Classifier{cfg: cfg}
}

// Anomaly reports a header the pass could not cluster normally.
type Anomaly struct {
	BlockID string
	Message string
}

// Result summarizes one classification pass.
type Result struct {
	// Levels is the number of distinct levels in use after clustering.
	Levels int

	// Assigned counts headers that received a level.
	Assigned int

	// Ignored counts placeholder headers excluded from clustering.
	Ignored int

	Anomalies []Anomaly
}

// Classify assigns a level to every section header of the document.
// Headers with no measurable text are marked Ignore and receive no level.
// Headers with unusable line heights (zero, negative, NaN) are assigned the
// lowest level and reported as anomalies. Classification never fails:
// degenerate statistics collapse to a single cluster.
func (c *Classifier) Classify(doc *block.Document) Result {
	var res Result
	var candidates []*block.Block

	for _, h := range doc.Headers() {
		if strings.TrimSpace(doc.RawText(h.ID)) == "" {
			h.Header.Ignore = true
			res.Ignored++
			continue
		}
		candidates = append(candidates, h)
	}
	if len(candidates) == 0 {
		return res
	}

	var values []float64
	for _, h := range candidates {
		if usableHeight(h.Header.LineHeight) {
			values = append(values, h.Header.LineHeight)
		}
	}

	clusters := cluster(values, c.cfg.MaxLevels, c.cfg.GapRatio)
	if len(clusters) == 0 {
		// Every height was unusable; a single level still lets the builder
		// produce a flat hierarchy.
		clusters = [][]float64{nil}
	}
	res.Levels = len(clusters)

	levelOf := make(map[float64]int)
	for i, cl := range clusters {
		for _, v := range cl {
			levelOf[v] = i + 1
		}
	}

	lowest := len(clusters)
	for _, h := range candidates {
		lh := h.Header.LineHeight
		if !usableHeight(lh) {
			h.Header.Level = lowest
			res.Assigned++
			res.Anomalies = append(res.Anomalies, Anomaly{
				BlockID: h.ID,
				Message: fmt.Sprintf("unusable line height %v, assigned level %d", lh, lowest),
			})
			continue
		}
		h.Header.Level = levelOf[lh]
		res.Assigned++
	}
	return res
}

func usableHeight(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// cluster partitions line heights into gap-separated groups, descending by
// value, then merges across the smallest gaps until at most maxLevels groups
// remain. The returned groups hold the distinct values they cover; group
// order is the level order.
func cluster(values []float64, maxLevels int, gapRatio float64) [][]float64 {
	if len(values) == 0 {
		return nil
	}

	distinct := make([]float64, 0, len(values))
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))

	var clusters [][]float64
	current := []float64{distinct[0]}
	for _, v := range distinct[1:] {
		prev := current[len(current)-1]
		if (prev-v)/prev > gapRatio {
			clusters = append(clusters, current)
			current = nil
		}
		current = append(current, v)
	}
	clusters = append(clusters, current)

	// More natural clusters than allowed levels: repeatedly fold the pair of
	// neighbors separated by the smallest gap. Ties merge the leftmost (most
	// prominent) pair, so distinctions near body size survive longest.
	for len(clusters) > maxLevels {
		best := 0
		bestGap := math.Inf(1)
		for i := 0; i < len(clusters)-1; i++ {
			hi := clusters[i][len(clusters[i])-1]
			lo := clusters[i+1][0]
			if gap := (hi - lo) / hi; gap < bestGap {
				bestGap = gap
				best = i
			}
		}
		clusters[best] = append(clusters[best], clusters[best+1]...)
		clusters = append(clusters[:best+1], clusters[best+2:]...)
	}
	return clusters
}

// centroid returns the mean of a cluster's values. Exposed to tests as the
// ranking statistic behind level order.
func centroid(cl []float64) float64 {
	if len(cl) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range cl {
		sum += v
	}
	return sum / float64(len(cl))
}
