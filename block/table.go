package block

// Source identifies which extraction engine produced a table's cell matrix.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
)

// Cell is one cell of a table's matrix. Rect is the detected cell boundary;
// the zero Rect means the detector supplied no geometry for this cell.
type Cell struct {
	Text string `json:"text"`
	Rect Rect   `json:"rect"`
}

// HasRect reports whether the cell carries detected geometry.
func (c Cell) HasRect() bool { return !c.Rect.IsZero() }

// BorderHints is optional detector metadata about ruled lines found in the
// table region, used as border evidence by quality scoring.
type BorderHints struct {
	HorizontalRules int `json:"horizontal_rules"`
	VerticalRules   int `json:"vertical_rules"`
}

// Quality is the structured quality breakdown of a table, all components in
// [0,1]. It is attached to the table once scored and invalidated (set nil)
// whenever the cell matrix changes.
type Quality struct {
	Score        float64 `json:"score"`
	Completeness float64 `json:"completeness"`
	Structure    float64 `json:"structure"`
	Alignment    float64 `json:"alignment"`
	Borders      float64 `json:"borders"`

	// CellCount is the number of cells actually present in the matrix.
	CellCount int `json:"cell_count"`

	// Flagged marks a table that stayed below the quality threshold after
	// the secondary-processing budget was spent. The data is kept, never
	// dropped.
	Flagged bool `json:"flagged,omitempty"`
}

// NeedsSecondary reports whether the table should be routed to secondary
// extraction: score below threshold, or too few cells to trust the primary
// extraction at all.
func (q *Quality) NeedsSecondary(minScore float64, minCells int) bool {
	return q.CellCount < minCells || q.Score < minScore
}

// Table is the table-region payload: the raw cell matrix plus extraction
// provenance. Rows may be ragged; scoring treats that as low quality, not as
// an error.
type Table struct {
	Rows [][]Cell `json:"rows"`

	// HeaderRows marks row indices that are column headers.
	HeaderRows map[int]bool `json:"header_rows,omitempty"`

	Source  Source       `json:"source,omitempty"`
	Quality *Quality     `json:"quality,omitempty"`
	Borders *BorderHints `json:"borders,omitempty"`

	// ContinuedFrom records the ID of a table block that was merged into
	// this one as a cross-page continuation. Informational lineage only.
	ContinuedFrom string `json:"continued_from,omitempty"`
}

// RowCount returns the number of rows in the matrix.
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnCount returns the widest row's cell count.
func (t *Table) ColumnCount() int {
	max := 0
	for _, r := range t.Rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// CellCount returns the number of cells present across all rows.
func (t *Table) CellCount() int {
	n := 0
	for _, r := range t.Rows {
		n += len(r)
	}
	return n
}

// HeaderRow returns the index of the first marked header row, or 0 when no
// row is marked (detectors that mark nothing mean the first row).
func (t *Table) HeaderRow() int {
	for i := range t.Rows {
		if t.HeaderRows[i] {
			return i
		}
	}
	return 0
}

// DataRowCount returns the number of rows not marked as header rows.
func (t *Table) DataRowCount() int {
	n := 0
	for i := range t.Rows {
		if !t.HeaderRows[i] {
			n++
		}
	}
	return n
}

// Clone returns a deep copy. Candidate extractions and cache entries must
// never alias the matrix they were derived from.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{
		Source:        t.Source,
		ContinuedFrom: t.ContinuedFrom,
	}
	if t.Rows != nil {
		c.Rows = make([][]Cell, len(t.Rows))
		for i, r := range t.Rows {
			c.Rows[i] = append([]Cell(nil), r...)
		}
	}
	if t.HeaderRows != nil {
		c.HeaderRows = make(map[int]bool, len(t.HeaderRows))
		for k, v := range t.HeaderRows {
			c.HeaderRows[k] = v
		}
	}
	if t.Quality != nil {
		q := *t.Quality
		c.Quality = &q
	}
	if t.Borders != nil {
		b := *t.Borders
		c.Borders = &b
	}
	return c
}
