package tabular

import "strconv"

// BuildIndex produces a dense id map for the distinct combinations of
// the named columns: one row per distinct combination in first-seen
// order, with a zero-based integer index under indexCol as the first
// column. Equality is exact string match on the key cells, nothing else.
//
// The resulting indices are a bijection onto {0..n-1} for the n distinct
// keys observed. Terms get their ordinal this way too: first appearance
// order stands in for chronological order.
func BuildIndex(t *Table, indexCol string, keyCols ...string) (*Table, error) {
	distinct, err := t.Distinct(keyCols...)
	if err != nil {
		return nil, err
	}
	out, err := New(append([]string{indexCol}, keyCols...)...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < distinct.Len(); i++ {
		row := append([]string{strconv.Itoa(i)}, distinct.rows[i]...)
		out.rows = append(out.rows, row)
	}
	return out, nil
}
