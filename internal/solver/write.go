package solver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteResults writes sweep results as `dim\ttrain\ttest` rows, the
// form the result aggregator reads back.
func WriteResults(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		_, err := fmt.Fprintf(bw, "%d\t%s\t%s\n",
			r.Dim,
			strconv.FormatFloat(r.TrainError, 'f', -1, 64),
			strconv.FormatFloat(r.TestError, 'f', -1, 64))
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteResultsFile writes sweep results to path.
func WriteResultsFile(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteResults(f, results); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
