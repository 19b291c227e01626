// Package preprocess cleans raw enrollment records into the dense-id
// dataset every later stage consumes.
//
// The stages, in order: quality-point resolution from letter grades,
// cohort derivation from admissions, natural-key substitution through
// the id maps, and column pruning. Records whose keys miss a map come
// out with missing ids; the splitter filters those, preprocessing never
// fails on them.
package preprocess

import (
	"fmt"

	"github.com/macks22/ers/internal/tabular"
)

// IndexColumn is the id-map index column name.
const IndexColumn = "index"

// KeySpec describes one natural-key group: which raw columns form the
// key, the dense id column that replaces them, and the id-map artifact
// name. Key groups are resolved by table lookup, never by name-based
// dispatch.
type KeySpec struct {
	Tag        string   // symbolic tag for lookup and logging
	IDColumn   string   // dense id column substituted into the dataset
	KeyColumns []string // raw columns forming the natural key
	FileName   string   // id-map output file name
}

// KeySpecs lists the four key groups in substitution order. The order
// is part of the output contract: substitution appends each id column
// in this order.
var KeySpecs = []KeySpec{
	{Tag: "course", IDColumn: "cid", KeyColumns: []string{"DISC", "CNUM", "HRS"}, FileName: "course-id-map.csv"},
	{Tag: "student", IDColumn: "sid", KeyColumns: []string{"id"}, FileName: "student-id-map.csv"},
	{Tag: "instructor", IDColumn: "iid", KeyColumns: []string{"INSTR_LNAME", "INSTR_FNAME"}, FileName: "instructor-id-map.csv"},
	{Tag: "term", IDColumn: "termnum", KeyColumns: []string{"TERMBNR"}, FileName: "ordinal-term-map.csv"},
}

// KeySpecFor returns the key spec registered under tag.
func KeySpecFor(tag string) (KeySpec, error) {
	for _, ks := range KeySpecs {
		if ks.Tag == tag {
			return ks, nil
		}
	}
	return KeySpec{}, fmt.Errorf("no key spec registered for tag %q", tag)
}

// IDMaps holds the four id maps built from one pass over the raw
// enrollment table.
type IDMaps struct {
	byTag map[string]*tabular.Table
}

// ByTag returns the id map for a key-group tag.
func (m *IDMaps) ByTag(tag string) (*tabular.Table, error) {
	t, ok := m.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("no id map for tag %q", tag)
	}
	return t, nil
}

// BuildIDMaps builds a dense id map per key group from the raw
// enrollment table. Maps are always rebuilt from the full record set;
// there is no incremental update.
func BuildIDMaps(courses *tabular.Table) (*IDMaps, error) {
	maps := &IDMaps{byTag: make(map[string]*tabular.Table, len(KeySpecs))}
	for _, ks := range KeySpecs {
		idmap, err := tabular.BuildIndex(courses, IndexColumn, ks.KeyColumns...)
		if err != nil {
			return nil, fmt.Errorf("building %s id map: %w", ks.Tag, err)
		}
		maps.byTag[ks.Tag] = idmap
	}
	return maps, nil
}
