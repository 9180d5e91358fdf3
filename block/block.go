// Package block defines the typed content tree produced by upstream layout
// detection: one Document per input file, one forest of Blocks per page.
// Every other stage of the pipeline consumes and annotates this model.
package block

// Kind identifies the variant of a Block. The set is closed: traversal and
// hashing code switches over it exhaustively, so a new kind is a
// compile-visible change.
type Kind string

const (
	KindText          Kind = "text"
	KindSectionHeader Kind = "section_header"
	KindTable         Kind = "table"
	KindTableCell     Kind = "table_cell"
	KindPicture       Kind = "picture"
	KindCode          Kind = "code"
	KindEquation      Kind = "equation"
	KindList          Kind = "list"
	KindListItem      Kind = "list_item"
	KindLine          Kind = "line"
	KindSpan          Kind = "span"
	KindCaption       Kind = "caption"
	KindFootnote      Kind = "footnote"
	KindPageHeader    Kind = "page_header"
	KindPageFooter    Kind = "page_footer"
)

// IsLeaf reports whether the kind carries its own text. Raw-text assembly
// terminates at leaf kinds; container kinds contribute the concatenation of
// their children and nothing of their own.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindSpan, KindTableCell, KindCode, KindEquation:
		return true
	default:
		return false
	}
}

// IsFurniture reports whether the kind is page decoration (running headers,
// footers, footnotes) rather than body content. Furniture never breaks table
// continuation adjacency.
func (k Kind) IsFurniture() bool {
	switch k {
	case KindPageHeader, KindPageFooter, KindFootnote:
		return true
	default:
		return false
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindSectionHeader, KindTable, KindTableCell, KindPicture,
		KindCode, KindEquation, KindList, KindListItem, KindLine, KindSpan,
		KindCaption, KindFootnote, KindPageHeader, KindPageFooter:
		return true
	default:
		return false
	}
}

// Block is one typed content node. Kind selects the variant; Header and
// Table carry variant payloads and are nil for every other kind.
type Block struct {
	// ID is unique within the document.
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// Page is the zero-based page index the block belongs to.
	Page int `json:"page"`

	Polygon Polygon `json:"polygon,omitempty"`

	// Children lists child block IDs in reading order. Empty for leaves.
	Children []string `json:"children,omitempty"`

	// Text is the raw text of leaf variants (span, table_cell, code,
	// equation). Container variants leave it empty.
	Text string `json:"text,omitempty"`

	Header *Header `json:"header,omitempty"`
	Table  *Table  `json:"table,omitempty"`
}

// Header is the section_header payload.
type Header struct {
	// Level is the heading prominence rank, 1 = most prominent. Zero until
	// classification assigns it; assigned at most once per processing pass.
	Level int `json:"level,omitempty"`

	// LineHeight is the detector-reported line height of the header text,
	// the prominence metric used for level clustering.
	LineHeight float64 `json:"line_height,omitempty"`

	// Ignore marks a placeholder header with no measurable content. Ignored
	// headers receive no level and never open sections.
	Ignore bool `json:"ignore,omitempty"`

	// SectionHash, HierarchyTitles and HierarchyHashes are written back by
	// the hierarchy builder so consumers of the flat tree can reconstruct a
	// header's path without the derived section forest.
	SectionHash     string   `json:"section_hash,omitempty"`
	HierarchyTitles []string `json:"hierarchy_titles,omitempty"`
	HierarchyHashes []string `json:"hierarchy_hashes,omitempty"`
}

// Rect returns the block's bounding box.
func (b *Block) Rect() Rect { return b.Polygon.Rect() }

// IsHeader reports whether the block is a section header with its payload
// present. Detectors occasionally emit the kind without the payload; such
// blocks are treated as plain content.
func (b *Block) IsHeader() bool {
	return b.Kind == KindSectionHeader && b.Header != nil
}

// IsTable reports whether the block is a table region with cell data.
func (b *Block) IsTable() bool {
	return b.Kind == KindTable && b.Table != nil
}
