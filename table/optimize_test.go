package table

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gostrata/block"
)

// scriptedEngine returns canned results in order; the last entry repeats.
type scriptedEngine struct {
	calls  int
	delay  time.Duration
	script []func() (*block.Table, error)
}

func (s *scriptedEngine) Reextract(ctx context.Context, region *block.Block, p Params) (*block.Table, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if len(s.script) == 0 {
		return nil, errors.New("nothing scripted")
	}
	fn := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	return fn()
}

func returning(t *block.Table) func() (*block.Table, error) {
	return func() (*block.Table, error) { return t.Clone(), nil }
}

// poorTable scores well below the default quality floor: a 3x3 grid with a
// single filled cell.
func poorTable() *block.Table {
	return mkTable([][]string{{"x", "", ""}, {"", "", ""}, {"", "", ""}})
}

// middlingTable improves on poorTable without clearing the floor: same
// sparse grid, plus partial border evidence.
func middlingTable() *block.Table {
	t := poorTable()
	t.Borders = &block.BorderHints{HorizontalRules: 3, VerticalRules: 3}
	return t
}

// worseTable scores below poorTable: sparse and ragged.
func worseTable() *block.Table {
	return mkTable([][]string{{"x", "", ""}, {"", "", ""}, {""}})
}

func newTestOrchestrator(e Engine, cache *Cache, cfg OptimizeConfig) *Orchestrator {
	return NewOrchestrator(e, NewEvaluator(DefaultWeights()), cache, cfg)
}

func TestImproveLeavesGoodTablesAlone(t *testing.T) {
	engine := &scriptedEngine{}
	o := newTestOrchestrator(engine, nil, OptimizeConfig{})
	region := tableRegion("t1", fullGrid(3, 3))

	out := o.Improve(context.Background(), region)

	assert.Zero(t, out.Calls)
	assert.Zero(t, engine.calls)
	assert.False(t, out.Replaced)
	assert.False(t, out.Flagged)
	assert.Equal(t, out.OriginalScore, out.FinalScore)
}

func TestImproveReplacesWithBetterExtraction(t *testing.T) {
	engine := &scriptedEngine{script: []func() (*block.Table, error){returning(fullGrid(3, 3))}}
	o := newTestOrchestrator(engine, nil, OptimizeConfig{Optimize: true, MaxCalls: 5})
	region := tableRegion("t1", poorTable())

	out := o.Improve(context.Background(), region)

	assert.Equal(t, 1, out.Calls, "must stop once the floor is cleared")
	assert.True(t, out.Replaced)
	assert.False(t, out.Flagged)
	assert.Greater(t, out.FinalScore, out.OriginalScore)
	assert.Equal(t, block.SourceSecondary, region.Table.Source)
	require.NotNil(t, region.Table.Quality)
	assert.InDelta(t, 1.0, region.Table.Quality.Score, 1e-9)
}

// The call budget binds even while candidates keep improving: three
// attempts that inch the score upward stop at three calls.
func TestImproveStopsAtCallBudget(t *testing.T) {
	engine := &scriptedEngine{script: []func() (*block.Table, error){returning(middlingTable())}}
	o := newTestOrchestrator(engine, nil, OptimizeConfig{Optimize: true, MaxCalls: 3})
	region := tableRegion("t1", poorTable())

	out := o.Improve(context.Background(), region)

	assert.Equal(t, 3, out.Calls)
	assert.Equal(t, 3, engine.calls)
	assert.True(t, out.Replaced)
	assert.True(t, out.Flagged, "still below the floor after the budget")
	assert.Less(t, out.FinalScore, 0.6)
	assert.Greater(t, out.FinalScore, out.OriginalScore)
}

func TestImproveKeepsOriginalWhenCandidatesWorse(t *testing.T) {
	engine := &scriptedEngine{script: []func() (*block.Table, error){returning(worseTable())}}
	o := newTestOrchestrator(engine, nil, OptimizeConfig{Optimize: true, MaxCalls: 2})
	original := poorTable()
	region := tableRegion("t1", original)

	out := o.Improve(context.Background(), region)

	assert.Equal(t, 2, out.Calls)
	assert.False(t, out.Replaced)
	assert.True(t, out.Flagged)
	assert.Same(t, original, region.Table)
	assert.Equal(t, block.SourcePrimary, region.Table.Source)
	assert.Equal(t, out.OriginalScore, out.FinalScore)
}

func TestImproveTimeoutRejectsSlowAttempts(t *testing.T) {
	engine := &scriptedEngine{
		delay:  50 * time.Millisecond,
		script: []func() (*block.Table, error){returning(fullGrid(3, 3))},
	}
	o := newTestOrchestrator(engine, nil, OptimizeConfig{
		Optimize: true,
		MaxCalls: 2,
		Timeout:  time.Millisecond,
	})
	region := tableRegion("t1", poorTable())

	out := o.Improve(context.Background(), region)

	assert.Equal(t, 2, out.Calls, "a timed-out attempt still consumes budget")
	assert.Equal(t, 2, out.Failures)
	assert.False(t, out.Replaced)
	assert.True(t, out.Flagged)
}

func TestImproveStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &scriptedEngine{script: []func() (*block.Table, error){returning(fullGrid(3, 3))}}
	o := newTestOrchestrator(engine, nil, OptimizeConfig{Optimize: true, MaxCalls: 3})
	region := tableRegion("t1", poorTable())

	out := o.Improve(ctx, region)

	assert.Zero(t, out.Calls)
	assert.Zero(t, engine.calls)
	assert.True(t, out.Flagged)
}

// A structurally perfect but tiny table still goes to the secondary
// engine: too few cells to trust.
func TestImproveCellCountGate(t *testing.T) {
	engine := &scriptedEngine{script: []func() (*block.Table, error){returning(fullGrid(3, 3))}}
	o := newTestOrchestrator(engine, nil, OptimizeConfig{})
	region := tableRegion("t1", mkTable([][]string{{"a"}, {"b"}}))

	out := o.Improve(context.Background(), region)

	assert.Equal(t, 1, out.Calls)
	assert.True(t, out.Replaced)
	assert.Equal(t, 9, region.Table.CellCount())
}

func TestImproveUsesSharedCache(t *testing.T) {
	cache := NewCache(8)
	poor := poorTable()
	cache.Put(Key(poor, DefaultParams()), fullGrid(3, 3))

	engine := &scriptedEngine{script: []func() (*block.Table, error){returning(worseTable())}}
	o := newTestOrchestrator(engine, cache, OptimizeConfig{Optimize: true, MaxCalls: 3})
	region := tableRegion("t1", poor)

	out := o.Improve(context.Background(), region)

	assert.Equal(t, 1, out.CacheHits)
	assert.Zero(t, out.Calls, "cache hits are free")
	assert.Zero(t, engine.calls)
	assert.True(t, out.Replaced)
	assert.InDelta(t, 1.0, out.FinalScore, 1e-9)
}

func TestImproveWithoutEngineFlagsOnly(t *testing.T) {
	o := newTestOrchestrator(nil, nil, OptimizeConfig{})
	region := tableRegion("t1", poorTable())

	out := o.Improve(context.Background(), region)

	assert.Zero(t, out.Calls)
	assert.False(t, out.Replaced)
	assert.True(t, out.Flagged)
	assert.True(t, region.Table.Quality.Flagged)
}

func TestScheduleShape(t *testing.T) {
	base := DefaultParams()

	single := schedule(base, false, 5)
	require.Len(t, single, 1)
	assert.Equal(t, base, single[0])

	full := schedule(base, true, 7)
	assert.Len(t, full, 7)
	assert.Equal(t, base, full[0])
	for _, p := range full {
		assert.GreaterOrEqual(t, p.LineSensitivity, 0.05)
		assert.LessOrEqual(t, p.LineSensitivity, 0.95)
		assert.GreaterOrEqual(t, p.CellMergeDistance, 0.5)
	}

	capped := schedule(base, true, 2)
	assert.Len(t, capped, 2)
}
