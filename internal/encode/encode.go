// Package encode serializes a train/test split for the factorization
// solver: sparse triples, or libFM-style feature vectors with optional
// time features.
//
// Feature indices live in one flattened address space shared by both
// output files: rows (student ids) first, then column ids offset past
// the rows, then time past the columns. All offsets are computed over
// the union of the train and test sets so the two files always agree.
package encode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/macks22/ers/internal/split"
	"github.com/macks22/ers/internal/variant"
)

// WriteTriples writes one tab-separated (sid, cid, rating) line per
// record: the sparse matrix form with students as rows and courses as
// columns.
func WriteTriples(w io.Writer, records []split.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\n",
			r.SID, r.CID, strconv.FormatFloat(r.Grdpts, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTriplesFile writes both sides of a split as triple files.
func WriteTriplesFile(trainPath, testPath string, s split.Split) error {
	if err := writeFile(trainPath, func(w io.Writer) error {
		return WriteTriples(w, s.Train)
	}); err != nil {
		return err
	}
	return writeFile(testPath, func(w io.Writer) error {
		return WriteTriples(w, s.Test)
	})
}

// Encoder writes the generalized feature-vector format. The zero value
// encodes no time information.
type Encoder struct {
	Time variant.TimeMode
}

// offsets holds the flattened index-space layout for one split.
type offsets struct {
	col  int // added to every course id
	time int // first index of the time block (modes cat and bin)
}

// layout computes the index-space offsets over the train/test union.
// Column ids start one past the highest student id; the time block
// starts one past the highest offset column id.
func (e Encoder) layout(s split.Split) offsets {
	maxSID, maxCID := -1, -1
	for _, side := range [][]split.Record{s.Train, s.Test} {
		for _, r := range side {
			if r.SID > maxSID {
				maxSID = r.SID
			}
			if r.CID > maxCID {
				maxCID = r.CID
			}
		}
	}
	o := offsets{col: maxSID + 1}
	o.time = o.col + maxCID + 1
	return o
}

// WriteLibFM writes both sides of the split in libFM format, sharing
// one index space. Each line is `rating idx:1 idx:1 [idx:val]`.
func (e Encoder) WriteLibFM(trainW, testW io.Writer, s split.Split) error {
	if !e.Time.Valid() {
		return fmt.Errorf("unknown time mode %q", e.Time)
	}
	o := e.layout(s)
	if err := e.writeSide(trainW, s.Train, o); err != nil {
		return fmt.Errorf("train side: %w", err)
	}
	if err := e.writeSide(testW, s.Test, o); err != nil {
		return fmt.Errorf("test side: %w", err)
	}
	return nil
}

// WriteLibFMFile is WriteLibFM onto files.
func (e Encoder) WriteLibFMFile(trainPath, testPath string, s split.Split) error {
	trainF, err := os.Create(trainPath)
	if err != nil {
		return err
	}
	defer trainF.Close()
	testF, err := os.Create(testPath)
	if err != nil {
		return err
	}
	defer testF.Close()

	if err := e.WriteLibFM(trainF, testF, s); err != nil {
		return err
	}
	if err := trainF.Close(); err != nil {
		return err
	}
	return testF.Close()
}

func (e Encoder) writeSide(w io.Writer, records []split.Record, o offsets) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		var err error
		switch e.Time {
		case variant.TimeCategorical:
			// Term number as a categorical value in the time slot.
			_, err = fmt.Fprintf(bw, "%f %d:1 %d:1 %d:%d\n",
				r.Grdpts, r.SID, r.CID+o.col, o.time, r.Termnum)
		case variant.TimeBinary:
			// Term number as a one-hot feature inside the time block.
			_, err = fmt.Fprintf(bw, "%f %d:1 %d:1 %d:1\n",
				r.Grdpts, r.SID, r.CID+o.col, o.time+r.Termnum)
		default:
			_, err = fmt.Fprintf(bw, "%f %d:1 %d:1\n",
				r.Grdpts, r.SID, r.CID+o.col)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
