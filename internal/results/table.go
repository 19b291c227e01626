package results

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TableFormatter renders a ranked result list as a column-aligned text
// table: header, a dash underline per column, then the rows. The
// method column is left-justified, the numeric columns right-justified.
type TableFormatter struct {
	Precision int // decimal places for the error columns
	Margin    int // spaces added to each column's natural width
}

// DefaultFormatter matches the historical table layout.
var DefaultFormatter = TableFormatter{Precision: 5, Margin: 4}

// Write renders the table.
func (f TableFormatter) Write(w io.Writer, results []MethodResult) error {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.Method,
			strconv.Itoa(r.Dim),
			strconv.FormatFloat(r.Train, 'f', f.Precision, 64),
			strconv.FormatFloat(r.Test, 'f', f.Precision, 64),
		}
	}

	// Natural width per column: the longest cell, header included.
	widths := make([]int, len(LeaderboardHeader))
	for i, h := range LeaderboardHeader {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	underline := make([]string, len(widths))
	for i, width := range widths {
		underline[i] = strings.Repeat("-", width)
	}

	bw := bufio.NewWriter(w)
	lines := append([][]string{LeaderboardHeader, underline}, rows...)
	for _, row := range lines {
		if _, err := fmt.Fprintln(bw, f.formatRow(row, widths)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// formatRow pads each cell to its column width plus the margin: the
// first column left-justified, the rest right-justified.
func (f TableFormatter) formatRow(row []string, widths []int) string {
	cells := make([]string, len(row))
	for i, cell := range row {
		width := widths[i] + f.Margin
		if i == 0 {
			cells[i] = cell + strings.Repeat(" ", width-len(cell))
		} else {
			cells[i] = strings.Repeat(" ", width-len(cell)) + cell
		}
	}
	return strings.Join(cells, "")
}
