package split

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/macks22/ers/internal/grades"
	"github.com/macks22/ers/internal/tabular"
)

// Record is one graded enrollment event with dense ids. Records are
// comparable values: deduplication is plain equality.
type Record struct {
	SID     int
	CID     int
	IID     int
	Termnum int
	Cohort  int
	Grade   string
	Grdpts  float64
}

// FromTable extracts typed records from the preprocessed table. Rows
// with a missing or unparseable id, cohort, or quality-point cell are
// dropped here - this is the single missing-value filtering stage for
// join misses and unmapped grades.
func FromTable(t *tabular.Table) ([]Record, error) {
	for _, col := range []string{"sid", "cid", "iid", "termnum", "cohort", "GRADE", "grdpts"} {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("preprocessed table has no %q column", col)
		}
	}

	var records []Record
	dropped := 0
	for i := 0; i < t.Len(); i++ {
		r := Record{}
		ok := true
		for _, f := range []struct {
			col string
			dst *int
		}{
			{"sid", &r.SID}, {"cid", &r.CID}, {"iid", &r.IID},
			{"termnum", &r.Termnum}, {"cohort", &r.Cohort},
		} {
			v, valid := t.Int(i, f.col)
			if !valid {
				ok = false
				break
			}
			*f.dst = v
		}
		if ok {
			r.Grdpts, ok = t.Float(i, "grdpts")
		}
		if !ok {
			dropped++
			continue
		}
		r.Grade, _ = t.Cell(i, "GRADE")
		records = append(records, r)
	}
	if dropped > 0 {
		slog.Debug("dropped rows with missing values", "rows", dropped)
	}
	return records, nil
}

// Config holds the split parameters. All fields are explicit; a zero
// backfill count disables backfill for that key.
type Config struct {
	Filters          []Filter
	DiscardNongrade  bool // drop W/S/NC from the training side too
	BackfillStudents int  // records to backfill per cold-start student
	BackfillCourses  int  // records to backfill per cold-start course
}

// Split is a train/test partition. Train and test are disjoint, and
// every input record with quality points lands on exactly one side
// before nongrade stripping.
type Split struct {
	Train []Record
	Test  []Record
}

// Run partitions records into train and test sets.
//
// Order of operations: duplicate (student, course) resolution, stable
// sort by (termnum, sid), per-filter union with deduplication, nongrade
// stripping (always for test, optionally for train), then cold-start
// backfill for students and courses in that order.
func (c Config) Run(records []Record) (Split, error) {
	if len(c.Filters) == 0 {
		return Split{}, fmt.Errorf("split config has no filters")
	}

	data := dedupeMostRecent(records)
	sort.SliceStable(data, func(i, j int) bool {
		if data[i].Termnum != data[j].Termnum {
			return data[i].Termnum < data[j].Termnum
		}
		return data[i].SID < data[j].SID
	})

	var train, test []Record
	for _, f := range c.Filters {
		for _, r := range data {
			if f.Match(r) {
				train = append(train, r)
			} else {
				test = append(test, r)
			}
		}
	}
	train = dedupe(train)
	test = dedupe(test)

	// W/S/NC records are never prediction targets.
	test = stripNongrades(test)
	if c.DiscardNongrade {
		train = stripNongrades(train)
	}

	train, test = Backfill(train, test, (Record).studentKey, c.BackfillStudents)
	train, test = Backfill(train, test, (Record).courseKey, c.BackfillCourses)

	slog.Info("split complete",
		"input", len(records),
		"train", len(train),
		"test", len(test))
	return Split{Train: train, Test: test}, nil
}

func (r Record) studentKey() int { return r.SID }
func (r Record) courseKey() int  { return r.CID }

// dedupeMostRecent keeps one record per (sid, cid) pair: the one with
// the highest term number, falling back to the later file position for
// records in the same term. Surviving records keep the input order of
// their last winning occurrence.
func dedupeMostRecent(records []Record) []Record {
	type pair struct{ sid, cid int }
	best := make(map[pair]int, len(records))
	for i, r := range records {
		k := pair{r.SID, r.CID}
		j, seen := best[k]
		if !seen || r.Termnum >= records[j].Termnum {
			best[k] = i
		}
	}
	out := make([]Record, 0, len(best))
	for i, r := range records {
		k := pair{r.SID, r.CID}
		if best[k] == i {
			out = append(out, r)
		}
	}
	return out
}

// dedupe removes exact-duplicate records, keeping first occurrences.
func dedupe(records []Record) []Record {
	seen := make(map[Record]bool, len(records))
	out := records[:0:0]
	for _, r := range records {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func stripNongrades(records []Record) []Record {
	out := records[:0:0]
	for _, r := range records {
		if !grades.IsNongrade(r.Grade) {
			out = append(out, r)
		}
	}
	return out
}

// Backfill moves up to firstn test records per cold-start entity into
// the training set, so every entity left in test has at least minimal
// training exposure. An entity whose test group is smaller than firstn
// moves entirely to train and disappears from test; that entity simply
// cannot be evaluated cold-start-free. firstn == 0 disables backfill.
//
// Records only ever move test to train, never the other way, and the
// total row count is preserved.
func Backfill(train, test []Record, key func(Record) int, firstn int) ([]Record, []Record) {
	if firstn == 0 {
		return train, test
	}

	inTrain := make(map[int]bool, len(train))
	for _, r := range train {
		inTrain[key(r)] = true
	}

	moved := make(map[int]int)
	outTest := test[:0:0]
	for _, r := range test {
		k := key(r)
		if !inTrain[k] && moved[k] < firstn {
			train = append(train, r)
			moved[k]++
			continue
		}
		outTest = append(outTest, r)
	}
	return train, outTest
}
