package split

import (
	"strconv"

	"github.com/macks22/ers/internal/tabular"
)

// RecordColumns is the column order of serialized record tables. It
// matches the columns FromTable reads, so a written table loads back
// without loss.
var RecordColumns = []string{"sid", "cid", "iid", "termnum", "cohort", "GRADE", "grdpts"}

// ToTable serializes records into a table with RecordColumns, in
// record order.
func ToTable(records []Record) *tabular.Table {
	t := tabular.MustNew(RecordColumns...)
	for _, r := range records {
		// Cannot fail: the row is built to RecordColumns' length.
		_ = t.AppendRow([]string{
			strconv.Itoa(r.SID),
			strconv.Itoa(r.CID),
			strconv.Itoa(r.IID),
			strconv.Itoa(r.Termnum),
			strconv.Itoa(r.Cohort),
			r.Grade,
			strconv.FormatFloat(r.Grdpts, 'g', -1, 64),
		})
	}
	return t
}
