package section

import (
	"fmt"
	"strings"

	"github.com/brunobiangulo/gostrata/block"
)

// open is one stack entry: a section still collecting content, together with
// the text gathered so far for its content hash.
type open struct {
	sec   *Section
	texts []string
}

// stack is the explicit open-section stack. Slice-backed so every push/pop
// transition is plain code the tests can drive directly.
type stack struct {
	entries []*open
}

func (s *stack) depth() int { return len(s.entries) }

func (s *stack) push(e *open) { s.entries = append(s.entries, e) }

func (s *stack) top() *open {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

func (s *stack) pop() *open {
	if len(s.entries) == 0 {
		return nil
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e
}

// Build walks the document's root blocks in order (page order, then reading
// order) and folds leveled headers into a nested section forest. It is run
// after heading classification; headers the classifier marked Ignore open no
// section, and content arriving before any header lands in an implicit
// preamble section. Build mutates header blocks, writing back the section
// hash and hierarchy path for consumers of the flat tree. It never fails:
// malformed nesting is recovered and reported in Hierarchy.Anomalies.
func Build(doc *block.Document) *Hierarchy {
	h := &Hierarchy{DocumentID: doc.ID}
	var st stack
	var preamble *open

	// Closing a section seals its content hash and attaches it to the entry
	// below it, or to the top level when it is the last one open.
	closeTop := func() {
		e := st.pop()
		e.sec.ContentHash = ContentHash(e.sec.Title, e.texts)
		if parent := st.top(); parent != nil {
			parent.sec.Subsections = append(parent.sec.Subsections, e.sec)
			parent.texts = append(parent.texts, e.sec.Title)
			parent.texts = append(parent.texts, e.texts...)
		} else {
			h.Sections = append(h.Sections, e.sec)
		}
	}

	for _, b := range doc.Roots() {
		if b.IsHeader() {
			if b.Header.Ignore {
				continue
			}
			level := b.Header.Level
			if level < 1 {
				// A header without a level breaks the monotonic nesting the
				// stack relies on. Close everything and restart at the top.
				h.Anomalies = append(h.Anomalies, Anomaly{
					Code:    AnomalyHeadingOrder,
					BlockID: b.ID,
					Page:    b.Page,
					Message: fmt.Sprintf("header %q reached the builder without a level; closing %d open section(s)", b.ID, st.depth()),
				})
				for st.top() != nil {
					closeTop()
				}
				level = 1
			}
			for st.top() != nil && st.top().sec.Level >= level {
				closeTop()
			}

			title := strings.TrimSpace(doc.RawText(b.ID))
			hash := TitleHash(title)
			crumbs := make([]Crumb, 0, st.depth()+1)
			for _, e := range st.entries {
				crumbs = append(crumbs, Crumb{Title: e.sec.Title, Hash: e.sec.Hash, Level: e.sec.Level})
			}
			crumbs = append(crumbs, Crumb{Title: title, Hash: hash, Level: level})

			writeBack(b.Header, hash, crumbs)
			st.push(&open{sec: &Section{
				ID:         b.ID,
				Title:      title,
				Hash:       hash,
				Level:      level,
				HeaderID:   b.ID,
				Breadcrumb: crumbs,
			}})
			continue
		}

		if n := nestedHeaders(doc, b); n > 0 {
			h.Anomalies = append(h.Anomalies, Anomaly{
				Code:    AnomalyNestedHeader,
				BlockID: b.ID,
				Page:    b.Page,
				Message: fmt.Sprintf("%d header(s) nested under %s block %q treated as content", n, b.Kind, b.ID),
			})
		}

		target := st.top()
		if target == nil {
			if preamble == nil {
				preamble = &open{sec: &Section{ID: "preamble", Level: 0}}
			}
			target = preamble
		}
		target.sec.Blocks = append(target.sec.Blocks, b.ID)
		if txt := doc.RawText(b.ID); txt != "" {
			target.texts = append(target.texts, txt)
		}
	}

	for st.top() != nil {
		closeTop()
	}
	if preamble != nil {
		preamble.sec.ContentHash = ContentHash("", preamble.texts)
		h.Sections = append([]*Section{preamble.sec}, h.Sections...)
	}
	return h
}

// writeBack annotates the header block with its stack-derived path: every
// breadcrumb entry with a strictly lower level, ascending, then the header
// itself. The crumb slice is built exactly that way, so it maps one to one.
func writeBack(hdr *block.Header, hash string, crumbs []Crumb) {
	hdr.SectionHash = hash
	hdr.HierarchyTitles = make([]string, len(crumbs))
	hdr.HierarchyHashes = make([]string, len(crumbs))
	for i, c := range crumbs {
		hdr.HierarchyTitles[i] = c.Title
		hdr.HierarchyHashes[i] = c.Hash
	}
}

// nestedHeaders counts section headers buried inside a non-header root.
// Headers are expected to be page roots; buried ones stay content but are
// worth reporting.
func nestedHeaders(doc *block.Document, b *block.Block) int {
	n := 0
	var walk func(id string)
	walk = func(id string) {
		c := doc.Get(id)
		if c == nil {
			return
		}
		if c.IsHeader() {
			n++
		}
		for _, cid := range c.Children {
			walk(cid)
		}
	}
	for _, cid := range b.Children {
		walk(cid)
	}
	return n
}
