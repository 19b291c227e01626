// Package tabular provides the ordered-column table type the pipeline is
// built on.
//
// A Table holds raw string cells under named columns, in row order. The
// empty string is the missing value: join misses and unmapped lookups
// produce "", and downstream stages filter missing cells out rather than
// failing. All operations preserve row order and produce new tables -
// a Table is never mutated after it leaves the function that built it.
//
// DETERMINISM: no operation iterates a Go map to produce output order.
// Column order comes from the cols slice, row order from the rows slice.
package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Missing is the cell value used for absent data.
const Missing = ""

// Table is an ordered collection of rows under named columns.
type Table struct {
	cols     []string
	colIndex map[string]int
	rows     [][]string
}

// New creates an empty table with the given column names.
// Column names must be unique.
func New(cols ...string) (*Table, error) {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	return &Table{
		cols:     append([]string(nil), cols...),
		colIndex: idx,
		rows:     nil,
	}, nil
}

// MustNew is New for statically-known column lists.
func MustNew(cols ...string) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// AppendRow adds a row. The row must have one cell per column.
func (t *Table) AppendRow(row []string) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.cols))
	}
	t.rows = append(t.rows, append([]string(nil), row...))
	return nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Cell returns the cell at row i, column name.
func (t *Table) Cell(i int, name string) (string, error) {
	j, ok := t.colIndex[name]
	if !ok {
		return "", fmt.Errorf("no column %q", name)
	}
	return t.rows[i][j], nil
}

// SetCell overwrites the cell at row i, column name.
func (t *Table) SetCell(i int, name, value string) error {
	j, ok := t.colIndex[name]
	if !ok {
		return fmt.Errorf("no column %q", name)
	}
	t.rows[i][j] = value
	return nil
}

// Int parses the cell at row i, column name as an integer.
// Returns ok=false for Missing or unparseable cells.
func (t *Table) Int(i int, name string) (int, bool) {
	s, err := t.Cell(i, name)
	if err != nil || s == Missing {
		return 0, false
	}
	// Tolerate "3.0" style cells carried over from float-typed sources.
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		if rest := s[dot+1:]; strings.Trim(rest, "0") == "" {
			s = s[:dot]
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Float parses the cell at row i, column name as a float.
// Returns ok=false for Missing or unparseable cells.
func (t *Table) Float(i int, name string) (float64, bool) {
	s, err := t.Cell(i, name)
	if err != nil || s == Missing {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Select returns a new table holding only the named columns, in the
// given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	idxs := make([]int, len(cols))
	for i, c := range cols {
		j, ok := t.colIndex[c]
		if !ok {
			return nil, fmt.Errorf("no column %q", c)
		}
		idxs[i] = j
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		cells := make([]string, len(idxs))
		for i, j := range idxs {
			cells[i] = row[j]
		}
		out.rows = append(out.rows, cells)
	}
	return out, nil
}

// Drop returns a new table without the named columns.
// Unknown names are an error so that pruning lists stay honest.
func (t *Table) Drop(cols ...string) (*Table, error) {
	dropping := make(map[string]bool, len(cols))
	for _, c := range cols {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("no column %q", c)
		}
		dropping[c] = true
	}
	var keep []string
	for _, c := range t.cols {
		if !dropping[c] {
			keep = append(keep, c)
		}
	}
	return t.Select(keep...)
}

// Rename returns a new table with column old renamed to new.
func (t *Table) Rename(old, new string) (*Table, error) {
	if !t.HasColumn(old) {
		return nil, fmt.Errorf("no column %q", old)
	}
	cols := make([]string, len(t.cols))
	for i, c := range t.cols {
		if c == old {
			cols[i] = new
		} else {
			cols[i] = c
		}
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		out.rows = append(out.rows, append([]string(nil), row...))
	}
	return out, nil
}

// AddColumn returns a new table with an extra column appended, filled
// with the given values (one per row).
func (t *Table) AddColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}
	out, err := New(append(t.Columns(), name)...)
	if err != nil {
		return nil, err
	}
	for i, row := range t.rows {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, row...)
		cells = append(cells, values[i])
		out.rows = append(out.rows, cells)
	}
	return out, nil
}

// key builds a composite lookup key from the cells at the given column
// indices. The unit separator keeps ("a","bc") distinct from ("ab","c").
func key(row []string, idxs []int) string {
	parts := make([]string, len(idxs))
	for i, j := range idxs {
		parts[i] = row[j]
	}
	return strings.Join(parts, "\x1f")
}

func (t *Table) keyIndices(cols []string) ([]int, error) {
	idxs := make([]int, len(cols))
	for i, c := range cols {
		j, ok := t.colIndex[c]
		if !ok {
			return nil, fmt.Errorf("no column %q", c)
		}
		idxs[i] = j
	}
	return idxs, nil
}

// Distinct returns the distinct combinations of the named columns in
// first-appearance order.
func (t *Table) Distinct(cols ...string) (*Table, error) {
	idxs, err := t.keyIndices(cols)
	if err != nil {
		return nil, err
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, row := range t.rows {
		k := key(row, idxs)
		if seen[k] {
			continue
		}
		seen[k] = true
		cells := make([]string, len(idxs))
		for i, j := range idxs {
			cells[i] = row[j]
		}
		out.rows = append(out.rows, cells)
	}
	return out, nil
}

// DropDuplicates returns a new table keeping, for each distinct
// combination of the named columns, only the last occurrence. Rows
// retain their relative order (the order of each key's last occurrence).
func (t *Table) DropDuplicates(cols ...string) (*Table, error) {
	idxs, err := t.keyIndices(cols)
	if err != nil {
		return nil, err
	}
	last := make(map[string]int, len(t.rows))
	for i, row := range t.rows {
		last[key(row, idxs)] = i
	}
	out, err := New(t.cols...)
	if err != nil {
		return nil, err
	}
	for i, row := range t.rows {
		if last[key(row, idxs)] == i {
			out.rows = append(out.rows, append([]string(nil), row...))
		}
	}
	return out, nil
}

// LeftJoin joins t against right on the named columns. The result keeps
// every row of t in order, with right's non-key columns appended; rows
// with no match get Missing cells. Right must be unique on the key
// columns; when it is not, the first matching row wins.
func (t *Table) LeftJoin(right *Table, on ...string) (*Table, error) {
	leftIdxs, err := t.keyIndices(on)
	if err != nil {
		return nil, fmt.Errorf("left side: %w", err)
	}
	rightIdxs, err := right.keyIndices(on)
	if err != nil {
		return nil, fmt.Errorf("right side: %w", err)
	}

	onSet := make(map[string]bool, len(on))
	for _, c := range on {
		onSet[c] = true
	}
	var extra []string
	var extraIdxs []int
	for j, c := range right.cols {
		if !onSet[c] {
			extra = append(extra, c)
			extraIdxs = append(extraIdxs, j)
		}
	}

	lookup := make(map[string][]string, right.Len())
	for _, row := range right.rows {
		k := key(row, rightIdxs)
		if _, dup := lookup[k]; dup {
			continue // first match wins
		}
		cells := make([]string, len(extraIdxs))
		for i, j := range extraIdxs {
			cells[i] = row[j]
		}
		lookup[k] = cells
	}

	out, err := New(append(t.Columns(), extra...)...)
	if err != nil {
		return nil, err
	}
	missing := make([]string, len(extra))
	for i := range missing {
		missing[i] = Missing
	}
	for _, row := range t.rows {
		matched, ok := lookup[key(row, leftIdxs)]
		if !ok {
			matched = missing
		}
		cells := make([]string, 0, len(row)+len(extra))
		cells = append(cells, row...)
		cells = append(cells, matched...)
		out.rows = append(out.rows, cells)
	}
	return out, nil
}
