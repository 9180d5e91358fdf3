package table

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/brunobiangulo/gostrata/block"
)

const previewCellWidth = 24

// Preview renders up to maxRows rows of the cell matrix as an ASCII grid
// for logs and debugging. Column widths follow display width, so CJK and
// combining text stays aligned; maxRows <= 0 renders everything.
func Preview(t *block.Table, maxRows int) string {
	if t == nil || t.RowCount() == 0 {
		return "(empty table)"
	}

	rows := t.Rows
	hidden := 0
	if maxRows > 0 && len(rows) > maxRows {
		hidden = len(rows) - maxRows
		rows = rows[:maxRows]
	}

	cols := t.ColumnCount()
	widths := make([]int, cols)
	for _, row := range rows {
		for j, c := range row {
			w := runewidth.StringWidth(strings.TrimSpace(c.Text))
			if w > widths[j] {
				widths[j] = w
			}
		}
	}
	for j := range widths {
		if widths[j] > previewCellWidth {
			widths[j] = previewCellWidth
		}
		if widths[j] < 1 {
			widths[j] = 1
		}
	}

	var b strings.Builder
	rule := func() {
		b.WriteByte('+')
		for _, w := range widths {
			b.WriteString(strings.Repeat("-", w+2))
			b.WriteByte('+')
		}
		b.WriteByte('\n')
	}

	rule()
	for i, row := range rows {
		b.WriteByte('|')
		for j := 0; j < cols; j++ {
			text := ""
			if j < len(row) {
				text = strings.TrimSpace(row[j].Text)
			}
			text = runewidth.Truncate(text, widths[j], "..")
			b.WriteByte(' ')
			b.WriteString(runewidth.FillRight(text, widths[j]))
			b.WriteString(" |")
		}
		b.WriteByte('\n')
		if i < len(rows)-1 && t.HeaderRows[i] && !t.HeaderRows[i+1] {
			rule()
		}
	}
	rule()
	if hidden > 0 {
		fmt.Fprintf(&b, "(%d more rows)\n", hidden)
	}
	return b.String()
}
