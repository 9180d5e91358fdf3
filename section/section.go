// Package section derives the nested section forest of a document from its
// flat block tree: an explicit open-section stack turns leveled headers into
// subsection nesting, stable hashes and breadcrumb trails.
package section

// Crumb is one entry of a header's ancestor path at the moment the header
// was encountered.
type Crumb struct {
	Title string `json:"title"`
	Hash  string `json:"hash"`
	Level int    `json:"level"`
}

// Section wraps one header and the content it owns. Content blocks remain
// owned by the block tree; a Section holds their IDs.
type Section struct {
	// ID equals the header block's ID, or "preamble" for the implicit
	// section collecting content that precedes any header.
	ID string `json:"id"`

	Title string `json:"title"`

	// Hash is the stable section hash of the title, computed when the
	// section opens. Empty for the preamble.
	Hash string `json:"hash,omitempty"`

	// ContentHash digests the title plus all recursively collected content
	// text. Computed when the section closes; change-detection identity,
	// distinct from Hash.
	ContentHash string `json:"content_hash,omitempty"`

	// Level is the heading level this section opened at; 0 for the preamble.
	Level int `json:"level"`

	// HeaderID is the section-header block, empty for the preamble.
	HeaderID string `json:"header_id,omitempty"`

	// Blocks lists direct, non-header content at this nesting level, in
	// document order.
	Blocks []string `json:"blocks,omitempty"`

	Subsections []*Section `json:"subsections,omitempty"`

	// Breadcrumb is the stack-derived ancestor path plus this section
	// itself, ascending by level.
	Breadcrumb []Crumb `json:"breadcrumb,omitempty"`
}

// Anomaly records a structural irregularity the builder recovered from.
type Anomaly struct {
	Code    string `json:"code"`
	BlockID string `json:"block_id,omitempty"`
	Page    int    `json:"page"`
	Message string `json:"message"`
}

// Anomaly codes reported by the builder.
const (
	AnomalyHeadingOrder = "heading_order"
	AnomalyNestedHeader = "nested_header"
)

// Hierarchy is the derived document: top-level sections only, each owning
// its subsections. Rebuilt from scratch on every pass.
type Hierarchy struct {
	DocumentID string     `json:"document_id"`
	Sections   []*Section `json:"sections"`
	Anomalies  []Anomaly  `json:"anomalies,omitempty"`
}

// SectionCount returns the total number of sections in the forest.
func (h *Hierarchy) SectionCount() int {
	n := 0
	var count func(s *Section)
	count = func(s *Section) {
		n++
		for _, sub := range s.Subsections {
			count(sub)
		}
	}
	for _, s := range h.Sections {
		count(s)
	}
	return n
}

// Find returns the first section (depth-first) whose title matches, or nil.
func (h *Hierarchy) Find(title string) *Section {
	var find func(s *Section) *Section
	find = func(s *Section) *Section {
		if s.Title == title {
			return s
		}
		for _, sub := range s.Subsections {
			if m := find(sub); m != nil {
				return m
			}
		}
		return nil
	}
	for _, s := range h.Sections {
		if m := find(s); m != nil {
			return m
		}
	}
	return nil
}
