package preprocess

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/macks22/ers/internal/grades"
	"github.com/macks22/ers/internal/tabular"
)

// Columns of the raw enrollment table used by name.
const (
	colGrade    = "GRADE"
	colGrdpts   = "grdpts"
	colTermCode = "TERMBNR"
	colSID      = "id"
	colCohort   = "cohort"
)

// prunedColumns are administrative fields with no predictive value,
// removed at the end of preprocessing.
var prunedColumns = []string{"CRN", "SECTNO", "TITLE", "class", "instr_rank", "instr_tenure"}

// Preprocess cleans the raw enrollment table: fills quality points from
// letter grades, attaches each student's cohort from the admissions
// table, substitutes natural keys with dense ids, and prunes
// non-predictive columns.
//
// Admissions rows are taken positionally: first column student id,
// second column admission term code, whatever the header says.
func Preprocess(courses, admissions *tabular.Table, maps *IDMaps) (*tabular.Table, error) {
	out, err := fillQualityPoints(courses)
	if err != nil {
		return nil, fmt.Errorf("filling quality points: %w", err)
	}

	out, err = attachCohorts(out, admissions, maps)
	if err != nil {
		return nil, fmt.Errorf("attaching cohorts: %w", err)
	}

	for _, ks := range KeySpecs {
		out, err = substituteKeys(out, maps, ks)
		if err != nil {
			return nil, fmt.Errorf("substituting %s keys: %w", ks.Tag, err)
		}
	}

	out, err = out.Drop(prunedColumns...)
	if err != nil {
		return nil, fmt.Errorf("pruning columns: %w", err)
	}

	slog.Info("preprocessed enrollment records",
		"rows", out.Len(),
		"columns", len(out.Columns()))
	return out, nil
}

// fillQualityPoints keeps an existing grdpts cell, otherwise fills it
// from the grade table. Unknown grade codes leave the cell missing.
func fillQualityPoints(courses *tabular.Table) (*tabular.Table, error) {
	for _, col := range []string{colGrade, colGrdpts} {
		if !courses.HasColumn(col) {
			return nil, fmt.Errorf("raw enrollment table has no %q column", col)
		}
	}

	// Copy through Select to leave the input untouched.
	out, err := courses.Select(courses.Columns()...)
	if err != nil {
		return nil, err
	}
	filled := 0
	for i := 0; i < out.Len(); i++ {
		if _, ok := out.Float(i, colGrdpts); ok {
			continue
		}
		grade, err := out.Cell(i, colGrade)
		if err != nil {
			return nil, err
		}
		pts, ok := grades.Points(grade)
		if !ok {
			// Unmapped code: grdpts stays missing, filtered later.
			if err := out.SetCell(i, colGrdpts, tabular.Missing); err != nil {
				return nil, err
			}
			continue
		}
		if err := out.SetCell(i, colGrdpts, strconv.FormatFloat(pts, 'f', -1, 64)); err != nil {
			return nil, err
		}
		filled++
	}
	slog.Debug("quality points filled from letter grades", "rows", filled)
	return out, nil
}

// attachCohorts joins admission terms through the term ordinal map and
// onto the enrollment table by student id, producing a cohort column.
// Students absent from admissions get a missing cohort.
func attachCohorts(courses, admissions *tabular.Table, maps *IDMaps) (*tabular.Table, error) {
	cols := admissions.Columns()
	if len(cols) < 2 {
		return nil, fmt.Errorf("admissions table has %d columns, need at least 2", len(cols))
	}
	admiss, err := admissions.Select(cols[0], cols[1])
	if err != nil {
		return nil, err
	}
	if admiss, err = admiss.Rename(cols[0], colSID); err != nil {
		return nil, err
	}
	if admiss, err = admiss.Rename(cols[1], colTermCode); err != nil {
		return nil, err
	}

	termMap, err := maps.ByTag("term")
	if err != nil {
		return nil, err
	}
	cohorts, err := termMap.Rename(IndexColumn, colCohort)
	if err != nil {
		return nil, err
	}

	admiss, err = admiss.LeftJoin(cohorts, colTermCode)
	if err != nil {
		return nil, err
	}
	if admiss, err = admiss.Select(colSID, colCohort); err != nil {
		return nil, err
	}
	return courses.LeftJoin(admiss, colSID)
}

// substituteKeys replaces one key group's natural-key columns with its
// dense id. A key absent from the map yields a missing id.
func substituteKeys(courses *tabular.Table, maps *IDMaps, ks KeySpec) (*tabular.Table, error) {
	idmap, err := maps.ByTag(ks.Tag)
	if err != nil {
		return nil, err
	}
	idmap, err = idmap.Rename(IndexColumn, ks.IDColumn)
	if err != nil {
		return nil, err
	}
	joined, err := courses.LeftJoin(idmap, ks.KeyColumns...)
	if err != nil {
		return nil, err
	}
	return joined.Drop(ks.KeyColumns...)
}
