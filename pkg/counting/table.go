package counting

// Table counts occurrences per (row, column) cell. Absent cells read as zero.
// Rows and columns only exist once a cell in them has been incremented.
// The zero value is ready to use. A Table is not safe for concurrent use.
type Table[R, C comparable] struct {
	rows    map[R]*Map[C]
	rowKeys []R
	cols    map[C]struct{}
	colKeys []C
}

// NewTable creates an empty Table.
func NewTable[R, C comparable]() *Table[R, C] {
	return &Table[R, C]{
		rows: make(map[R]*Map[C]),
		cols: make(map[C]struct{}),
	}
}

// Increment adds one to the cell (row, col).
func (t *Table[R, C]) Increment(row R, col C) {
	t.Add(row, col, 1)
}

// Add adds n to the cell (row, col). Cells only grow: n <= 0 is a no-op and
// does not create the row or column.
func (t *Table[R, C]) Add(row R, col C, n int) {
	if n <= 0 {
		return
	}
	if t.rows == nil {
		t.rows = make(map[R]*Map[C])
		t.cols = make(map[C]struct{})
	}
	cells, ok := t.rows[row]
	if !ok {
		cells = NewMap[C]()
		t.rows[row] = cells
		t.rowKeys = append(t.rowKeys, row)
	}
	if _, ok := t.cols[col]; !ok {
		t.cols[col] = struct{}{}
		t.colKeys = append(t.colKeys, col)
	}
	cells.Add(col, n)
}

// Get returns the count of the cell (row, col), or zero if absent.
func (t *Table[R, C]) Get(row R, col C) int {
	cells, ok := t.rows[row]
	if !ok {
		return 0
	}
	return cells.Get(col)
}

// RowSum returns the sum over all columns of row. The second result is false
// if the row was never observed, which callers must tell apart from a zero
// total.
func (t *Table[R, C]) RowSum(row R) (int, bool) {
	cells, ok := t.rows[row]
	if !ok {
		return 0, false
	}
	return cells.Sum(), true
}

// RowKeys returns the observed row keys in first-insertion order.
func (t *Table[R, C]) RowKeys() []R {
	out := make([]R, len(t.rowKeys))
	copy(out, t.rowKeys)
	return out
}

// ColumnKeys returns the distinct observed column keys across all rows, in
// first-insertion order.
func (t *Table[R, C]) ColumnKeys() []C {
	out := make([]C, len(t.colKeys))
	copy(out, t.colKeys)
	return out
}

// Len returns the number of observed rows.
func (t *Table[R, C]) Len() int {
	return len(t.rowKeys)
}

// IsEmpty reports whether no cell was ever incremented.
func (t *Table[R, C]) IsEmpty() bool {
	return len(t.rowKeys) == 0
}

// Merge adds every cell of other into t, creating rows and columns as needed.
// Merging the same table twice counts its cells twice.
func (t *Table[R, C]) Merge(other *Table[R, C]) {
	if other == nil {
		return
	}
	for _, row := range other.RowKeys() {
		cells := other.rows[row]
		for _, col := range cells.Keys() {
			t.Add(row, col, cells.Get(col))
		}
	}
}

// Each calls fn for every cell with a non-zero count, rows first, then
// columns, both in first-insertion order. Columns follow the table-wide
// column order, not the order within the row.
func (t *Table[R, C]) Each(fn func(row R, col C, n int)) {
	for _, row := range t.rowKeys {
		cells := t.rows[row]
		for _, col := range t.colKeys {
			if n := cells.Get(col); n != 0 {
				fn(row, col, n)
			}
		}
	}
}
