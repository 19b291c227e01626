package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macks22/ers/internal/tabular"
)

func TestFromTable_DropsMissingValues(t *testing.T) {
	tbl := tabular.MustNew("sid", "cid", "iid", "termnum", "cohort", "GRADE", "grdpts")
	rows := [][]string{
		{"0", "0", "0", "0", "0", "A", "4"},
		{"1", "1", "1", "1", "1", "NR", ""},  // missing quality points
		{"2", "2", "2", "2", "", "B", "3"},   // missing cohort (join miss)
		{"", "3", "3", "3", "0", "C", "2"},   // missing sid
		{"3", "3", "3", "3", "0", "C", "2.33"},
	}
	for _, row := range rows {
		require.NoError(t, tbl.AppendRow(row))
	}

	got, err := FromTable(tbl)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Record{SID: 0, CID: 0, IID: 0, Termnum: 0, Cohort: 0, Grade: "A", Grdpts: 4}, got[0])
	assert.Equal(t, 2.33, got[1].Grdpts)
}

func TestFromTable_MissingColumn(t *testing.T) {
	_, err := FromTable(tabular.MustNew("sid", "cid"))
	require.Error(t, err)
}

func TestDedupeMostRecent(t *testing.T) {
	records := []Record{
		{SID: 1, CID: 10, Termnum: 2, Grade: "C", Grdpts: 2},
		{SID: 1, CID: 10, Termnum: 4, Grade: "A", Grdpts: 4},
		{SID: 1, CID: 10, Termnum: 3, Grade: "B", Grdpts: 3},
		{SID: 2, CID: 10, Termnum: 0, Grade: "D", Grdpts: 1},
	}

	got := dedupeMostRecent(records)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Grade, "retake with the highest term wins, not file order")
	assert.Equal(t, 2, got[1].SID)
}

func TestDedupeMostRecent_SameTermLaterWins(t *testing.T) {
	records := []Record{
		{SID: 1, CID: 10, Termnum: 2, Grade: "C", Grdpts: 2},
		{SID: 1, CID: 10, Termnum: 2, Grade: "B", Grdpts: 3},
	}
	got := dedupeMostRecent(records)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Grade)
}

// splitRecords is a small cohort-spread dataset used by the Run tests.
func splitRecords() []Record {
	return []Record{
		{SID: 0, CID: 0, IID: 0, Termnum: 0, Cohort: 0, Grade: "A", Grdpts: 4},
		{SID: 0, CID: 1, IID: 0, Termnum: 1, Cohort: 0, Grade: "B", Grdpts: 3},
		{SID: 1, CID: 0, IID: 0, Termnum: 0, Cohort: 0, Grade: "W", Grdpts: 1},
		{SID: 2, CID: 1, IID: 1, Termnum: 2, Cohort: 1, Grade: "C", Grdpts: 2},
		{SID: 2, CID: 2, IID: 1, Termnum: 3, Cohort: 1, Grade: "S", Grdpts: 3},
		{SID: 3, CID: 2, IID: 1, Termnum: 3, Cohort: 2, Grade: "A-", Grdpts: 3.67},
	}
}

func TestRun_CohortOnlyFilterTakesAllTerms(t *testing.T) {
	cfg := Config{Filters: []Filter{{0, 0, 0, TermMax}}}

	got, err := cfg.Run(splitRecords())
	require.NoError(t, err)

	// Cohort 0 records all fall in train regardless of term.
	for _, r := range got.Train {
		assert.Equal(t, 0, r.Cohort)
	}
	require.Len(t, got.Train, 3)

	// W/S/NC never appear in test.
	for _, r := range got.Test {
		assert.NotContains(t, []string{"W", "S", "NC"}, r.Grade)
	}
}

func TestRun_TermRangeSplitsWithinCohort(t *testing.T) {
	cfg := Config{Filters: []Filter{{0, 0, 0, 0}}}

	got, err := cfg.Run(splitRecords())
	require.NoError(t, err)

	// Only the term-0 records of cohort 0 are train; the term-1 record
	// falls to test.
	for _, r := range got.Train {
		assert.Equal(t, 0, r.Cohort)
		assert.Equal(t, 0, r.Termnum)
	}
	var testSIDs []int
	for _, r := range got.Test {
		testSIDs = append(testSIDs, r.SID)
	}
	assert.Contains(t, testSIDs, 0, "cohort-0 term-1 record should be test")
}

func TestRun_DiscardNongradeFromTrain(t *testing.T) {
	cfg := Config{Filters: []Filter{{0, 0, 0, TermMax}}, DiscardNongrade: true}

	got, err := cfg.Run(splitRecords())
	require.NoError(t, err)
	for _, r := range got.Train {
		assert.NotEqual(t, "W", r.Grade)
	}
	require.Len(t, got.Train, 2)
}

func TestRun_MultipleFiltersDeduplicate(t *testing.T) {
	// Two overlapping filters: union must not duplicate records.
	cfg := Config{Filters: []Filter{{0, 0, 0, TermMax}, {0, 1, 0, TermMax}}}

	got, err := cfg.Run(splitRecords())
	require.NoError(t, err)

	seen := make(map[Record]bool)
	for _, r := range got.Train {
		assert.False(t, seen[r], "duplicate train record %+v", r)
		seen[r] = true
	}
}

func TestRun_TrainTestDisjoint(t *testing.T) {
	cfg := Config{
		Filters:          []Filter{{0, 1, 0, TermMax}},
		BackfillStudents: 1,
		BackfillCourses:  1,
	}

	got, err := cfg.Run(splitRecords())
	require.NoError(t, err)

	inTrain := make(map[Record]bool)
	for _, r := range got.Train {
		inTrain[r] = true
	}
	for _, r := range got.Test {
		assert.False(t, inTrain[r], "record %+v on both sides", r)
	}
}

func TestRun_NoFilters(t *testing.T) {
	_, err := Config{}.Run(splitRecords())
	require.Error(t, err)
}

func TestBackfill_MovesFirstN(t *testing.T) {
	train := []Record{{SID: 1, CID: 0, Grdpts: 4}}
	test := []Record{
		{SID: 2, CID: 1, Termnum: 0, Grdpts: 3},
		{SID: 2, CID: 2, Termnum: 1, Grdpts: 3},
		{SID: 2, CID: 3, Termnum: 2, Grdpts: 2},
		{SID: 1, CID: 4, Termnum: 2, Grdpts: 2},
	}

	outTrain, outTest := Backfill(train, test, (Record).studentKey, 2)

	// First two of student 2's test rows moved, in their test order;
	// the third stays behind.
	require.Len(t, outTrain, 3)
	assert.Equal(t, Record{SID: 2, CID: 1, Termnum: 0, Grdpts: 3}, outTrain[1])
	assert.Equal(t, Record{SID: 2, CID: 2, Termnum: 1, Grdpts: 3}, outTrain[2])
	require.Len(t, outTest, 2)
	assert.Equal(t, 3, outTest[0].CID)
	assert.Equal(t, 1, outTest[1].SID, "warm student's rows never move")
}

func TestBackfill_Properties(t *testing.T) {
	train := []Record{{SID: 1, CID: 0, Grdpts: 4}}
	test := []Record{
		{SID: 2, CID: 1, Termnum: 0, Grdpts: 3},
		{SID: 2, CID: 2, Termnum: 1, Grdpts: 3},
		{SID: 2, CID: 3, Termnum: 2, Grdpts: 2},
		{SID: 3, CID: 4, Termnum: 0, Grdpts: 2},
		{SID: 1, CID: 5, Termnum: 0, Grdpts: 1},
	}

	outTrain, outTest := Backfill(train, test, (Record).studentKey, 2)

	// Row count is preserved.
	assert.Equal(t, len(train)+len(test), len(outTrain)+len(outTest))

	// Every student left in test is represented in train.
	inTrain := make(map[int]bool)
	for _, r := range outTrain {
		inTrain[r.SID] = true
	}
	for _, r := range outTest {
		assert.True(t, inTrain[r.SID], "student %d in test but not train", r.SID)
	}

	// Student 2 had 3 test rows: 2 moved, 1 kept.
	var s2 int
	for _, r := range outTest {
		if r.SID == 2 {
			s2++
		}
	}
	assert.Equal(t, 1, s2)

	// Student 3's group (1 row < firstn) moved entirely: gone from test.
	for _, r := range outTest {
		assert.NotEqual(t, 3, r.SID)
	}
	assert.True(t, inTrain[3])

	// Student 1 was already warm: untouched.
	var s1 int
	for _, r := range outTest {
		if r.SID == 1 {
			s1++
		}
	}
	assert.Equal(t, 1, s1)
}

func TestBackfill_ZeroDisables(t *testing.T) {
	train := []Record{{SID: 1}}
	test := []Record{{SID: 2}}

	outTrain, outTest := Backfill(train, test, (Record).studentKey, 0)
	assert.Equal(t, train, outTrain)
	assert.Equal(t, test, outTest)
}
