package table

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/brunobiangulo/gostrata/block"
)

// Continuation heuristics. Skipping page furniture or a stray caption
// between the fragments is allowed but lowers confidence by a fixed step
// per skip; substantive intervening text vetoes the merge outright.
const (
	headerSimilarity   = 0.8
	noiseRuneLimit     = 20
	softSkipPenalty    = 0.15
	minMergeConfidence = 0.5
)

// Candidate pairs the last table of one page with the first table of the
// next, with the layout blocks that sit between them in reading order.
type Candidate struct {
	A       *block.Block
	B       *block.Block
	Between []*block.Block
}

// Decision records the outcome of the continuation checks for one candidate.
type Decision struct {
	Merge      bool
	Reason     string
	DropHeader bool
	Confidence float64
}

// MergeEvent describes one applied merge for diagnostics.
type MergeEvent struct {
	TableID       string
	AbsorbedID    string
	Page          int
	RowsAdded     int
	DroppedHeader bool
	Confidence    float64
}

// Merger detects and applies cross-page table continuations. Merging
// mutates the document: absorbed fragments are removed and the surviving
// table is rescored, since a stale score would describe a matrix that no
// longer exists.
type Merger struct {
	eval *Evaluator
}

func NewMerger(eval *Evaluator) *Merger {
	if eval == nil {
		eval = NewEvaluator(DefaultWeights())
	}
	return &Merger{eval: eval}
}

// Candidates scans consecutive page pairs for fragments worth checking.
// Pages with no table roots, or page index gaps (a wholly empty page
// between fragments), produce no candidate.
func (m *Merger) Candidates(doc *block.Document) []Candidate {
	var out []Candidate
	for i := 0; i+1 < len(doc.Pages); i++ {
		p, next := doc.Pages[i], doc.Pages[i+1]
		if next.Index != p.Index+1 {
			continue
		}
		a, afterA := lastTableRoot(doc, p)
		b, beforeB := firstTableRoot(doc, next)
		if a == nil || b == nil {
			continue
		}
		out = append(out, Candidate{A: a, B: b, Between: append(afterA, beforeB...)})
	}
	return out
}

// Decide runs the continuation checks in order, short-circuiting on the
// first failure so the reason names the earliest mismatch.
func (m *Merger) Decide(doc *block.Document, c Candidate) Decision {
	no := func(reason string) Decision { return Decision{Reason: reason} }

	if c.A == nil || c.B == nil || !c.A.IsTable() || !c.B.IsTable() {
		return no("candidate is not a table pair")
	}
	a, b := c.A.Table, c.B.Table
	if a.RowCount() == 0 || b.RowCount() == 0 {
		return no("empty fragment")
	}

	softSkips := 0
	for _, blk := range c.Between {
		if blk.Kind.IsFurniture() || blk.Kind == block.KindCaption {
			softSkips++
			continue
		}
		text := strings.TrimSpace(doc.RawText(blk.ID))
		if len([]rune(text)) > noiseRuneLimit {
			return no("intervening content")
		}
		softSkips++
	}

	colsA := modeColumns(a)
	headerRepeated := rowSimilarity(a.Rows[a.HeaderRow()], b.Rows[0]) >= headerSimilarity
	if colsA != modeColumns(b) {
		// The repeated header can carry a different cell count than the
		// continued body; reconcile against the body alone before giving up.
		if !headerRepeated || len(b.Rows) < 2 || colsA != modeColumns(&block.Table{Rows: b.Rows[1:]}) {
			return no("column count mismatch")
		}
		softSkips++
	}

	conf := clamp(1-softSkipPenalty*float64(softSkips), minMergeConfidence, 1)
	return Decision{Merge: true, Reason: "continuation", DropHeader: headerRepeated, Confidence: conf}
}

// Merge applies a positive decision: appends B's data rows to A, drops B's
// repeated header when detected, rescores A, and removes B from the
// document with its child blocks reparented under A. Returns ok=false when
// the decision was negative.
func (m *Merger) Merge(doc *block.Document, c Candidate) (MergeEvent, bool) {
	dec := m.Decide(doc, c)
	if !dec.Merge {
		return MergeEvent{}, false
	}

	a, b := c.A.Table, c.B.Table
	rows := b.Rows
	if dec.DropHeader {
		rows = rows[1:]
	}
	for _, row := range rows {
		a.Rows = append(a.Rows, cloneRow(row))
	}
	a.Quality = m.eval.Evaluate(a)
	a.ContinuedFrom = c.B.ID

	// Hand B's cell blocks to A before dropping B, so the absorbed text
	// stays reachable in the forest.
	c.A.Children = append(c.A.Children, c.B.Children...)
	c.B.Children = nil
	doc.Remove(c.B.ID)

	return MergeEvent{
		TableID:       c.A.ID,
		AbsorbedID:    c.B.ID,
		Page:          c.A.Page,
		RowsAdded:     len(rows),
		DroppedHeader: dec.DropHeader,
		Confidence:    dec.Confidence,
	}, true
}

// MergeContinuations applies every positive candidate in page order. A
// table spanning three or more pages chains: once B is absorbed into A,
// the candidate that paired B with the next fragment is redirected to A.
func (m *Merger) MergeContinuations(doc *block.Document) []MergeEvent {
	var events []MergeEvent
	survivor := make(map[string]*block.Block)
	for _, c := range m.Candidates(doc) {
		if s, ok := survivor[c.A.ID]; ok {
			c.A = s
		}
		ev, ok := m.Merge(doc, c)
		if !ok {
			continue
		}
		events = append(events, ev)
		survivor[c.B.ID] = c.A
	}
	return events
}

// lastTableRoot returns the final table root of a page and any roots that
// follow it in reading order.
func lastTableRoot(doc *block.Document, p block.Page) (*block.Block, []*block.Block) {
	var table *block.Block
	var after []*block.Block
	for _, id := range p.Roots {
		blk := doc.Get(id)
		if blk == nil {
			continue
		}
		if blk.IsTable() {
			table = blk
			after = after[:0]
			continue
		}
		if table != nil {
			after = append(after, blk)
		}
	}
	return table, after
}

// firstTableRoot returns the first table root of a page and the roots that
// precede it.
func firstTableRoot(doc *block.Document, p block.Page) (*block.Block, []*block.Block) {
	var before []*block.Block
	for _, id := range p.Roots {
		blk := doc.Get(id)
		if blk == nil {
			continue
		}
		if blk.IsTable() {
			return blk, before
		}
		before = append(before, blk)
	}
	return nil, nil
}

// rowSimilarity is the fraction of positionally matching normalized cell
// texts over the longer row.
func rowSimilarity(a, b []block.Cell) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	matches := 0
	for i := 0; i < n; i++ {
		if normCell(a[i].Text) == normCell(b[i].Text) {
			matches++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(matches) / float64(denom)
}

// normCell lowers, NFC-normalizes and collapses whitespace so trivial
// re-extraction differences do not defeat the repeated-header check.
func normCell(s string) string {
	s = norm.NFC.String(strings.ToLower(s))
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func cloneRow(row []block.Cell) []block.Cell {
	return append([]block.Cell(nil), row...)
}
