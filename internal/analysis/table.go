package analysis

// Table is a decoded two-dimensional sales export: a header row plus data
// rows. Rows may be ragged; cell lookups are bounds-safe.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Clone returns a deep copy. Cached tables are always handed out as clones
// so one request's writes cannot leak into another's view.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	clone := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		clone.Rows[i] = append([]string(nil), row...)
	}
	return clone
}

// columnIndex returns the position of the first column with the exact
// header, or -1.
func (t *Table) columnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// cell returns the cell at (row, col) or "" when the row is too short.
func (t *Table) cell(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}
