// Package split partitions the preprocessed dataset into train and test
// sets by cohort and term, with cold-start backfill.
//
// Everything here is deterministic: sorts are stable, tie-breaks are
// explicit, and union order follows filter declaration order. Split
// output must reproduce bit-for-bit across runs on identical input.
package split

import (
	"fmt"
	"strconv"
	"strings"
)

// TermMax is the open-ended upper term bound: some number greater than
// any term ordinal in the data.
const TermMax = 14

// Filter selects records by inclusive cohort and term ranges. Matching
// records belong to the train side; the complement is the test side.
type Filter struct {
	CohortStart int
	CohortEnd   int
	TermStart   int
	TermEnd     int
}

// ParseError reports a malformed filter specification. Configuration
// errors like this fail fast and are never retried.
type ParseError struct {
	Spec   string // the offending filter spec
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid filter spec %q: %s", e.Spec, e.Reason)
}

// ParseFilter parses a compact filter specification:
//
//	"A-B"      cohort range [A,B], term range [0,termMax]
//	"A-B:C-D"  cohort range [A,B], term range [C,D]
//	"A:C"      single values are open-ended ranges up to termMax
func ParseFilter(spec string, termMax int) (Filter, error) {
	f := Filter{TermStart: 0, TermEnd: termMax}

	cohortPart := spec
	termPart := ""
	switch parts := strings.Split(spec, ":"); len(parts) {
	case 1:
		// cohort-only form; term range stays at the default
	case 2:
		cohortPart, termPart = parts[0], parts[1]
	default:
		return Filter{}, &ParseError{Spec: spec, Reason: "more than one ':'"}
	}

	var err error
	if f.CohortStart, f.CohortEnd, err = parseRange(cohortPart, termMax); err != nil {
		return Filter{}, &ParseError{Spec: spec, Reason: fmt.Sprintf("cohort range: %v", err)}
	}
	if termPart != "" {
		if f.TermStart, f.TermEnd, err = parseRange(termPart, termMax); err != nil {
			return Filter{}, &ParseError{Spec: spec, Reason: fmt.Sprintf("term range: %v", err)}
		}
	}
	return f, nil
}

// ParseFilters parses a space-separated list of filter specifications.
func ParseFilters(specs string, termMax int) ([]Filter, error) {
	var filters []Filter
	for _, spec := range strings.Fields(specs) {
		f, err := ParseFilter(spec, termMax)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if len(filters) == 0 {
		return nil, &ParseError{Spec: specs, Reason: "no filter specs given"}
	}
	return filters, nil
}

// parseRange parses "A-B" as [A,B] and a bare "A" as [A,max].
func parseRange(s string, max int) (int, int, error) {
	if strings.Contains(s, "-") {
		parts := strings.SplitN(s, "-", 2)
		lo, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, 0, fmt.Errorf("non-integer bound %q", parts[0])
		}
		hi, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("non-integer bound %q", parts[1])
		}
		return lo, hi, nil
	}
	lo, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("non-integer bound %q", s)
	}
	return lo, max, nil
}

// Match reports whether a record falls inside the filter's cohort and
// term ranges, all bounds inclusive.
func (f Filter) Match(r Record) bool {
	return r.Cohort >= f.CohortStart && r.Cohort <= f.CohortEnd &&
		r.Termnum >= f.TermStart && r.Termnum <= f.TermEnd
}

// String returns the canonical form used in artifact names, e.g.
// "0_4T0_14". Two splits with the same canonical name are the same
// split.
func (f Filter) String() string {
	return fmt.Sprintf("%d_%dT%d_%d", f.CohortStart, f.CohortEnd, f.TermStart, f.TermEnd)
}

// FilterNames joins the canonical names of several filters with '-',
// the form used in output file names.
func FilterNames(filters []Filter) string {
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = f.String()
	}
	return strings.Join(names, "-")
}
