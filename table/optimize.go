package table

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/brunobiangulo/gostrata/block"
)

// OptimizeConfig bounds the secondary-extraction loop for one table.
type OptimizeConfig struct {
	// MinScore is the quality floor; tables at or above it are left alone.
	MinScore float64
	// MinCells is the minimum cell count below which a table always goes
	// to the secondary engine.
	MinCells int
	// Optimize enables parameter perturbation beyond the first attempt.
	Optimize bool
	// MaxCalls caps engine invocations per table, first attempt included.
	MaxCalls int
	// Timeout bounds each individual engine call.
	Timeout time.Duration

	Logger *slog.Logger
}

func (c OptimizeConfig) withDefaults() OptimizeConfig {
	if c.MinScore <= 0 {
		c.MinScore = 0.6
	}
	if c.MinCells <= 0 {
		c.MinCells = 4
	}
	if c.MaxCalls <= 0 {
		c.MaxCalls = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Outcome summarizes one table's pass through the orchestrator.
type Outcome struct {
	TableID       string
	OriginalScore float64
	FinalScore    float64
	// Calls counts engine invocations; cache hits are free.
	Calls     int
	CacheHits int
	Failures  int
	Replaced  bool
	Flagged   bool
}

// Orchestrator routes low-quality tables through a secondary engine under
// a hard call budget. Every candidate is scored with the same evaluator as
// the original and ranked by gate status, then score; the best seen
// replaces the original. A table that exhausts its budget without
// improvement keeps the primary extraction and is flagged instead.
type Orchestrator struct {
	engine Engine
	eval   *Evaluator
	cache  *Cache
	cfg    OptimizeConfig
}

// NewOrchestrator wires the fallback loop. engine may be nil, in which
// case low-quality tables are only flagged; cache is optional.
func NewOrchestrator(engine Engine, eval *Evaluator, cache *Cache, cfg OptimizeConfig) *Orchestrator {
	if eval == nil {
		eval = NewEvaluator(DefaultWeights())
	}
	return &Orchestrator{engine: engine, eval: eval, cache: cache, cfg: cfg.withDefaults()}
}

// Improve scores the region, and if it falls below the quality gate, runs
// bounded re-extraction attempts, keeping the best candidate seen. The
// region's table and quality are updated in place.
func (o *Orchestrator) Improve(ctx context.Context, region *block.Block) Outcome {
	tbl := region.Table
	if tbl.Quality == nil {
		tbl.Quality = o.eval.Evaluate(tbl)
	}

	out := Outcome{
		TableID:       region.ID,
		OriginalScore: tbl.Quality.Score,
		FinalScore:    tbl.Quality.Score,
	}
	if !tbl.Quality.NeedsSecondary(o.cfg.MinScore, o.cfg.MinCells) {
		return out
	}
	if o.engine == nil {
		tbl.Quality.Flagged = true
		out.Flagged = true
		return out
	}

	log := o.cfg.Logger.With("table_id", region.ID)
	var best *block.Table
	bestQuality := tbl.Quality

	for _, params := range schedule(DefaultParams(), o.cfg.Optimize, o.cfg.MaxCalls) {
		if !bestQuality.NeedsSecondary(o.cfg.MinScore, o.cfg.MinCells) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if out.Calls >= o.cfg.MaxCalls {
			break
		}

		var candidate *block.Table
		var key uint64
		if o.cache != nil {
			key = Key(tbl, params)
			if hit, ok := o.cache.Get(key); ok {
				candidate = hit
				out.CacheHits++
			}
		}
		if candidate == nil {
			attempt, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
			extracted, err := o.engine.Reextract(attempt, region, params)
			cancel()
			out.Calls++
			if err != nil {
				out.Failures++
				log.Debug("secondary extraction rejected",
					"line_sensitivity", params.LineSensitivity,
					"cell_merge_distance", params.CellMergeDistance,
					"error", err)
				continue
			}
			candidate = extracted
			if o.cache != nil {
				o.cache.Put(key, candidate)
			}
		}

		candidate.Quality = o.eval.Evaluate(candidate)
		if o.betterThan(candidate.Quality, bestQuality) {
			best = candidate
			bestQuality = candidate.Quality
		}
	}

	if best != nil {
		best.Source = block.SourceSecondary
		region.Table = best
		out.Replaced = true
		out.FinalScore = bestQuality.Score
	}
	if region.Table.Quality.NeedsSecondary(o.cfg.MinScore, o.cfg.MinCells) {
		region.Table.Quality.Flagged = true
		out.Flagged = true
	}
	if out.Replaced {
		log.Debug("table re-extracted",
			"original_score", out.OriginalScore,
			"final_score", out.FinalScore,
			"calls", out.Calls)
	}
	return out
}

// betterThan prefers the quality that clears the secondary gate; between
// two that agree on the gate, the higher score wins.
func (o *Orchestrator) betterThan(candidate, current *block.Quality) bool {
	cNeeds := candidate.NeedsSecondary(o.cfg.MinScore, o.cfg.MinCells)
	bNeeds := current.NeedsSecondary(o.cfg.MinScore, o.cfg.MinCells)
	if cNeeds != bNeeds {
		return bNeeds
	}
	return candidate.Score > current.Score
}

// schedule builds the parameter sequence for one table: the defaults
// first, then fixed perturbations when optimization is on. The slice never
// exceeds maxCalls entries.
func schedule(base Params, optimize bool, maxCalls int) []Params {
	out := []Params{base}
	if !optimize {
		return out
	}
	steps := []Params{
		{LineSensitivity: base.LineSensitivity + 0.2, CellMergeDistance: base.CellMergeDistance},
		{LineSensitivity: base.LineSensitivity - 0.2, CellMergeDistance: base.CellMergeDistance},
		{LineSensitivity: base.LineSensitivity, CellMergeDistance: base.CellMergeDistance / 2},
		{LineSensitivity: base.LineSensitivity, CellMergeDistance: base.CellMergeDistance * 2},
		{LineSensitivity: base.LineSensitivity + 0.3, CellMergeDistance: base.CellMergeDistance / 2},
		{LineSensitivity: base.LineSensitivity - 0.3, CellMergeDistance: base.CellMergeDistance * 2},
	}
	for _, s := range steps {
		if len(out) >= maxCalls {
			break
		}
		s.LineSensitivity = clamp(s.LineSensitivity, 0.05, 0.95)
		if s.CellMergeDistance < 0.5 {
			s.CellMergeDistance = 0.5
		}
		out = append(out, s)
	}
	return out
}
