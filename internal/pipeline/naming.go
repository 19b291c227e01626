// Package pipeline declares the processing steps and runs them in
// order, skipping outputs that are already up to date.
//
// Each step declares its required upstream artifacts, its own output
// paths, and the configuration its outputs are a deterministic function
// of. Scheduling policy beyond sequential skip-if-present - retries,
// parallel branches, cache eviction - belongs to whatever drives the
// binary.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/macks22/ers/internal/split"
	"github.com/macks22/ers/internal/variant"
)

// NameSpec builds the canonical artifact file names. A split's
// parameters are fully legible from its file name, e.g.
// "ucg-0_4T0_14-scs3-ccs3.train.tsv".
type NameSpec struct {
	Prefix           string // artifact family, "ucg" for splits
	Filters          []split.Filter
	KeepNongrades    bool // W/S/NC kept in train: "ng" marker
	BackfillStudents int  // "scs{n}" marker when non-zero
	BackfillCourses  int  // "ccs{n}" marker when non-zero
	Suffix           string
	Ext              string
}

// base assembles the hyphen-joined name parts, without part or
// extension.
func (n NameSpec) base() string {
	var parts []string
	if n.Prefix != "" {
		parts = append(parts, n.Prefix)
	}
	if s := split.FilterNames(n.Filters); s != "" {
		parts = append(parts, s)
	}
	if n.KeepNongrades {
		parts = append(parts, "ng")
	}
	if n.BackfillStudents > 0 {
		parts = append(parts, fmt.Sprintf("scs%d", n.BackfillStudents))
	}
	if n.BackfillCourses > 0 {
		parts = append(parts, fmt.Sprintf("ccs%d", n.BackfillCourses))
	}
	if n.Suffix != "" {
		parts = append(parts, n.Suffix)
	}
	return strings.Join(parts, "-")
}

// File returns the artifact path for one part (e.g. "train", "test",
// or a method name) under dir.
func (n NameSpec) File(dir, part string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.%s", n.base(), part, n.Ext))
}

// SolverSuffix names a solver invocation's parameter combination:
// time marker, iteration count, initial stdev with the dot dropped,
// and a bias marker, e.g. "time-cat-i100-s03-b".
func SolverSuffix(v variant.Variant, iterations int, initStdev float64) string {
	var parts []string
	if ts := v.TimeSuffix(); ts != "" {
		parts = append(parts, ts)
	}
	parts = append(parts, fmt.Sprintf("i%d", iterations))
	std := strings.ReplaceAll(strconv.FormatFloat(initStdev, 'g', -1, 64), ".", "")
	parts = append(parts, "s"+std)
	if v.UseBias {
		parts = append(parts, "b")
	}
	return strings.Join(parts, "-")
}

// TablePath derives the formatted-table path from the leaderboard
// path by swapping the extension for .md.
func TablePath(leaderboardPath string) string {
	ext := filepath.Ext(leaderboardPath)
	return strings.TrimSuffix(leaderboardPath, ext) + ".md"
}
