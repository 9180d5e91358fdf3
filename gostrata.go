// Package gostrata structures flat, page-ordered layout blocks into a
// hierarchical document. Headers are clustered into levels by line height,
// sections are derived from header order, and tables pass through a
// quality gate with cross-page continuation merging and bounded
// secondary-extraction fallback.
package gostrata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/gostrata/block"
	"github.com/brunobiangulo/gostrata/heading"
	"github.com/brunobiangulo/gostrata/section"
	"github.com/brunobiangulo/gostrata/table"
)

// Result is the outcome of structuring one document. When ProcessAll
// reports a per-document failure, Err is set and the other fields are
// zero.
type Result struct {
	Document    *block.Document    `json:"document"`
	Hierarchy   *section.Hierarchy `json:"hierarchy"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
	Stats       Stats              `json:"stats"`
	Err         error              `json:"-"`
}

// Stats summarizes one pipeline run.
type Stats struct {
	Pages             int   `json:"pages"`
	Blocks            int   `json:"blocks"`
	Headers           int   `json:"headers"`
	HeadingLevels     int   `json:"heading_levels"`
	Sections          int   `json:"sections"`
	Tables            int   `json:"tables"`
	TablesMerged      int   `json:"tables_merged"`
	TablesReextracted int   `json:"tables_reextracted"`
	TablesFlagged     int   `json:"tables_flagged"`
	CacheHits         int   `json:"cache_hits"`
	ElapsedMs         int64 `json:"elapsed_ms"`
}

// Option configures a Processor beyond its Config.
type Option func(*Processor)

// WithLogger routes pipeline events to l.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithEngine replaces the secondary extraction engine.
func WithEngine(e table.Engine) Option {
	return func(p *Processor) { p.engine = e }
}

// WithCache shares a re-extraction cache across processors.
func WithCache(c *table.Cache) Option {
	return func(p *Processor) { p.cache = c }
}

// Processor runs the structuring pipeline. It is safe for concurrent use;
// each Process call owns its document from start to finish.
type Processor struct {
	cfg    Config
	log    *slog.Logger
	engine table.Engine
	cache  *table.Cache

	classifier *heading.Classifier
	eval       *table.Evaluator
	merger     *table.Merger
	orch       *table.Orchestrator
}

// New creates a Processor from the configuration.
func New(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{cfg: cfg, log: cfg.Logger}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.engine == nil {
		p.engine = table.GridEngine{}
	}
	if p.cache == nil && cfg.CacheSize > 0 {
		p.cache = table.NewCache(cfg.CacheSize)
	}

	p.eval = table.NewEvaluator(cfg.QualityWeights)
	p.classifier = heading.New(heading.Config{
		MaxLevels: cfg.MaxHeadingLevels,
		GapRatio:  cfg.HeadingGapRatio,
	})
	p.merger = table.NewMerger(p.eval)
	p.orch = table.NewOrchestrator(p.engine, p.eval, p.cache, table.OptimizeConfig{
		MinScore: cfg.MinTableQuality,
		MinCells: cfg.MinTableCells,
		Optimize: cfg.EnableOptimization,
		MaxCalls: cfg.MaxOptimizationIterations,
		Timeout:  cfg.ExtractionTimeout,
		Logger:   p.log,
	})
	return p, nil
}

// Process runs the full pipeline on one document, mutating it in place:
// table scoring, continuation merging, secondary extraction, heading
// classification, and section building, strictly in that order. The table
// stages run first so the hierarchy is built over the final block forest.
// Cancellation is honored at stage boundaries; a canceled run returns no
// partial result.
func (p *Processor) Process(ctx context.Context, doc *block.Document) (*Result, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	start := time.Now()
	log := p.log.With("document_id", doc.ID)

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}

	var diags []Diagnostic
	var stats Stats

	// Score every table with the primary extraction as-is.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tables := doc.Tables()
	for _, t := range tables {
		t.Table.Quality = p.eval.Evaluate(t.Table)
	}
	log.Debug("tables scored", "tables", len(tables))

	// Fold cross-page continuations into their first fragment.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merges := p.merger.MergeContinuations(doc)
	for _, ev := range merges {
		diags = append(diags, Diagnostic{
			Code:     CodeTableMerged,
			Severity: SeverityInfo,
			Message: fmt.Sprintf("absorbed continuation %s: %d rows, confidence %.2f",
				ev.AbsorbedID, ev.RowsAdded, ev.Confidence),
			Page:    ev.Page,
			BlockID: ev.TableID,
		})
	}
	stats.TablesMerged = len(merges)
	if len(merges) > 0 {
		log.Debug("continuations merged", "merged", len(merges))
	}

	// Send low-quality tables through the secondary engine.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, t := range doc.Tables() {
		if q := t.Table.Quality; q != nil && q.NeedsSecondary(p.cfg.MinTableQuality, p.cfg.MinTableCells) {
			diags = append(diags, Diagnostic{
				Code:     CodeTableLowQuality,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("scored %.2f with %d cells", q.Score, q.CellCount),
				Page:     t.Page,
				BlockID:  t.ID,
			})
		}
		out := p.orch.Improve(ctx, t)
		stats.CacheHits += out.CacheHits
		if out.Failures > 0 {
			diags = append(diags, Diagnostic{
				Code:     CodeExtractionFailed,
				Severity: SeverityWarn,
				Message:  fmt.Sprintf("%d of %d secondary calls failed", out.Failures, out.Calls),
				Page:     t.Page,
				BlockID:  t.ID,
			})
		}
		if out.Replaced {
			stats.TablesReextracted++
			diags = append(diags, Diagnostic{
				Code:     CodeTableReextracted,
				Severity: SeverityInfo,
				Message: fmt.Sprintf("score %.2f after %d calls, was %.2f",
					out.FinalScore, out.Calls, out.OriginalScore),
				Page:    t.Page,
				BlockID: t.ID,
			})
		}
		if out.Flagged {
			stats.TablesFlagged++
			diags = append(diags, Diagnostic{
				Code:     CodeTableFlagged,
				Severity: SeverityWarn,
				Message:  fmt.Sprintf("below quality floor at %.2f", out.FinalScore),
				Page:     t.Page,
				BlockID:  t.ID,
			})
		}
	}

	// Cluster header line heights into levels.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cls := p.classifier.Classify(doc)
	for _, a := range cls.Anomalies {
		d := Diagnostic{
			Code:     CodeHeadingUnclustered,
			Severity: SeverityWarn,
			Message:  a.Message,
			BlockID:  a.BlockID,
		}
		if b := doc.Get(a.BlockID); b != nil {
			d.Page = b.Page
		}
		diags = append(diags, d)
	}
	log.Debug("headings classified",
		"levels", cls.Levels, "assigned", cls.Assigned, "ignored", cls.Ignored)

	// Derive the section hierarchy.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hier := section.Build(doc)
	for _, a := range hier.Anomalies {
		diags = append(diags, Diagnostic{
			Code:     a.Code,
			Severity: SeverityWarn,
			Message:  a.Message,
			Page:     a.Page,
			BlockID:  a.BlockID,
		})
	}

	stats.Pages = len(doc.Pages)
	stats.Blocks = len(doc.Blocks)
	stats.Headers = len(doc.Headers())
	stats.HeadingLevels = cls.Levels
	stats.Sections = hier.SectionCount()
	stats.Tables = len(doc.Tables())
	stats.ElapsedMs = time.Since(start).Milliseconds()

	log.Info("document structured",
		"pages", stats.Pages,
		"sections", stats.Sections,
		"tables", stats.Tables,
		"diagnostics", len(diags),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		Document:    doc,
		Hierarchy:   hier,
		Diagnostics: diags,
		Stats:       stats,
	}, nil
}

// ProcessAll structures documents in parallel, at most Workers at a time.
// Stages within one document stay strictly sequential. A failed document
// records its error in its Result and does not stop the batch; context
// cancellation aborts the whole batch.
func (p *Processor) ProcessAll(ctx context.Context, docs []*block.Document) ([]Result, error) {
	results := make([]Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, doc := range docs {
		g.Go(func() error {
			r, err := p.Process(gctx, doc)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				results[i] = Result{Document: doc, Err: err}
				return nil
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
