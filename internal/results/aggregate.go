// Package results collects solver outputs across model variants,
// ranks them by test error, and renders the comparison table.
package results

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Row is one solver result: the factorization dimension and the train
// and test errors it produced.
type Row struct {
	Dim   int
	Train float64
	Test  float64
}

// MethodResult is a row tagged with the model variant that produced it.
type MethodResult struct {
	Method string
	Dim    int
	Train  float64
	Test   float64
}

// MethodRows pairs a variant name with its result rows, in file order.
type MethodRows struct {
	Method string
	Rows   []Row
}

// ReadRows parses a solver result file: one `dim\ttrain\ttest` row per
// line, no header. Blank lines are skipped.
func ReadRows(r io.Reader) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: %d fields, want 3", line, len(fields))
		}
		dim, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: dimension: %w", line, err)
		}
		train, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: train error: %w", line, err)
		}
		test, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: test error: %w", line, err)
		}
		rows = append(rows, Row{Dim: dim, Train: train, Test: test})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadRowsFile reads a solver result file from path.
func ReadRowsFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// TopN returns the n rows with the smallest test error, ascending.
// Ties keep their input order. Fewer than n rows are kept as-is.
func TopN(rows []Row, n int) []Row {
	sorted := append([]Row(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Test < sorted[j].Test
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Aggregate keeps the best topn rows per method, tags them with the
// method name, and merges everything into one list ranked ascending by
// test error. Method order breaks exact ties.
func Aggregate(methods []MethodRows, topn int) []MethodResult {
	var merged []MethodResult
	for _, m := range methods {
		for _, row := range TopN(m.Rows, topn) {
			merged = append(merged, MethodResult{
				Method: m.Method,
				Dim:    row.Dim,
				Train:  row.Train,
				Test:   row.Test,
			})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Test < merged[j].Test
	})
	return merged
}

// LeaderboardHeader is the column header of the ranked result list.
var LeaderboardHeader = []string{"method", "dim", "train", "test"}

// WriteLeaderboard writes the ranked list as tab-separated rows with a
// header line.
func WriteLeaderboard(w io.Writer, results []MethodResult) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, strings.Join(LeaderboardHeader, "\t")); err != nil {
		return err
	}
	for _, r := range results {
		_, err := fmt.Fprintf(bw, "%s\t%d\t%s\t%s\n",
			r.Method, r.Dim,
			strconv.FormatFloat(r.Train, 'f', -1, 64),
			strconv.FormatFloat(r.Test, 'f', -1, 64))
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadLeaderboard parses a leaderboard file written by WriteLeaderboard.
func ReadLeaderboard(r io.Reader) ([]MethodResult, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty leaderboard: missing header")
	}
	if got := scanner.Text(); got != strings.Join(LeaderboardHeader, "\t") {
		return nil, fmt.Errorf("unexpected leaderboard header %q", got)
	}

	var results []MethodResult
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: %d fields, want 4", line, len(fields))
		}
		dim, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: dimension: %w", line, err)
		}
		train, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: train error: %w", line, err)
		}
		test, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: test error: %w", line, err)
		}
		results = append(results, MethodResult{Method: fields[0], Dim: dim, Train: train, Test: test})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
