package export

// Table defines ordered tabular export content. Rows shorter than the column
// list are padded with empty cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t Table) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
