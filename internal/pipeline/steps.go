package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/macks22/ers/internal/config"
	"github.com/macks22/ers/internal/encode"
	"github.com/macks22/ers/internal/preprocess"
	"github.com/macks22/ers/internal/results"
	"github.com/macks22/ers/internal/solver"
	"github.com/macks22/ers/internal/split"
	"github.com/macks22/ers/internal/tabular"
	"github.com/macks22/ers/internal/variant"
)

// Stage identifies how far down the chain a command wants to go.
// Running a stage runs every earlier stage too; the runner skips the
// ones whose outputs are already fresh.
type Stage int

const (
	StagePreprocess Stage = iota
	StageSplit
	StageEncode
	StageSolve
	StageCompare
	StageTable
)

// Plan derives every artifact path and step of one pipeline run from
// the configuration.
type Plan struct {
	cfg     config.Config
	filters []split.Filter
	solver  solver.Runner
}

// NewPlan builds a plan from a validated configuration.
func NewPlan(cfg config.Config) (*Plan, error) {
	filters, err := cfg.ParsedFilters()
	if err != nil {
		return nil, fmt.Errorf("parsing filters: %w", err)
	}
	return &Plan{
		cfg:     cfg,
		filters: filters,
		solver:  solver.Solver{Bin: cfg.SolverBin},
	}, nil
}

// WithSolver substitutes the solver runner, for tests and dry runs.
func (p *Plan) WithSolver(r solver.Runner) *Plan {
	p.solver = r
	return p
}

// Steps returns the full step chain in execution order.
func (p *Plan) Steps() []Step {
	return p.StepsThrough(StageTable)
}

// StepsThrough returns the chain up to and including the given stage.
func (p *Plan) StepsThrough(stage Stage) []Step {
	var steps []Step
	steps = append(steps, p.PreprocessStep())
	if stage >= StageSplit {
		steps = append(steps, p.SplitStep())
	}
	if stage >= StageEncode {
		steps = append(steps, p.EncodeSteps()...)
	}
	if stage >= StageSolve {
		for _, v := range variant.All {
			steps = append(steps, p.SolveStep(v))
		}
	}
	if stage >= StageCompare {
		steps = append(steps, p.CompareStep())
	}
	if stage >= StageTable {
		steps = append(steps, p.TableStep())
	}
	return steps
}

// Artifact paths. Split artifacts carry the full parameter markers in
// their names so differently-parameterized runs never collide.

// PreprocessedPath is the cleaned dense-id dataset.
func (p *Plan) PreprocessedPath() string {
	return filepath.Join(p.cfg.OutputDir, "preprocessed.csv")
}

func (p *Plan) idMapPath(ks preprocess.KeySpec) string {
	return filepath.Join(p.cfg.OutputDir, ks.FileName)
}

func (p *Plan) splitSpec(suffix, ext string) NameSpec {
	return NameSpec{
		Prefix:           "ucg",
		Filters:          p.filters,
		KeepNongrades:    !p.cfg.DiscardNongrade,
		BackfillStudents: p.cfg.BackfillStudents,
		BackfillCourses:  p.cfg.BackfillCourses,
		Suffix:           suffix,
		Ext:              ext,
	}
}

// TrainPath and TestPath are the record tables of the split.
func (p *Plan) TrainPath() string { return p.splitSpec("", "csv").File(p.cfg.OutputDir, "train") }
func (p *Plan) TestPath() string  { return p.splitSpec("", "csv").File(p.cfg.OutputDir, "test") }

// TriplesPaths are the sparse (sid, cid, rating) matrix files.
func (p *Plan) TriplesPaths() (train, test string) {
	spec := p.splitSpec("", "tsv")
	return spec.File(p.cfg.OutputDir, "train"), spec.File(p.cfg.OutputDir, "test")
}

// LibFMPaths are the solver input files for a time mode. Variants
// sharing a time mode share the files.
func (p *Plan) LibFMPaths(m variant.TimeMode) (train, test string) {
	spec := p.splitSpec(variant.Variant{Time: m}.TimeSuffix(), "libfm")
	return spec.File(p.cfg.OutputDir, "train"), spec.File(p.cfg.OutputDir, "test")
}

// ResultsPath is the per-variant solver sweep output.
func (p *Plan) ResultsPath(v variant.Variant) string {
	suffix := SolverSuffix(v, p.cfg.Iterations, p.cfg.InitStdev)
	return p.splitSpec(suffix, "tsv").File(p.cfg.OutputDir, "results")
}

// ComparePath is the merged cross-variant leaderboard.
func (p *Plan) ComparePath() string {
	spec := p.splitSpec("", "tsv")
	spec.Prefix = "compare"
	return spec.File(p.cfg.OutputDir, fmt.Sprintf("top%d", p.cfg.TopN))
}

// TableFilePath is the formatted comparison table.
func (p *Plan) TableFilePath() string {
	return TablePath(p.ComparePath())
}

// PreprocessStep cleans the raw files into the dense-id dataset and
// writes the id-map artifacts.
func (p *Plan) PreprocessStep() Step {
	outputs := []string{p.PreprocessedPath()}
	for _, ks := range preprocess.KeySpecs {
		outputs = append(outputs, p.idMapPath(ks))
	}
	return Step{
		Name:     "preprocess",
		Requires: []string{p.cfg.CoursesFile, p.cfg.AdmissionsFile},
		Outputs:  outputs,
		Config: map[string]any{
			"step":       "preprocess",
			"courses":    p.cfg.CoursesFile,
			"admissions": p.cfg.AdmissionsFile,
		},
		Run: p.runPreprocess,
	}
}

func (p *Plan) runPreprocess(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return err
	}
	courses, err := tabular.ReadCSVFile(p.cfg.CoursesFile)
	if err != nil {
		return fmt.Errorf("reading courses: %w", err)
	}
	admissions, err := tabular.ReadCSVFile(p.cfg.AdmissionsFile)
	if err != nil {
		return fmt.Errorf("reading admissions: %w", err)
	}

	maps, err := preprocess.BuildIDMaps(courses)
	if err != nil {
		return err
	}
	for _, ks := range preprocess.KeySpecs {
		m, err := maps.ByTag(ks.Tag)
		if err != nil {
			return err
		}
		if err := m.WriteCSVFile(p.idMapPath(ks)); err != nil {
			return fmt.Errorf("writing %s id map: %w", ks.Tag, err)
		}
	}

	cleaned, err := preprocess.Preprocess(courses, admissions, maps)
	if err != nil {
		return err
	}
	return cleaned.WriteCSVFile(p.PreprocessedPath())
}

// SplitStep partitions the dataset into train and test record tables.
func (p *Plan) SplitStep() Step {
	return Step{
		Name:     "split",
		Requires: []string{p.PreprocessedPath()},
		Outputs:  []string{p.TrainPath(), p.TestPath()},
		Config: map[string]any{
			"step":              "split",
			"filters":           split.FilterNames(p.filters),
			"discard_nongrade":  p.cfg.DiscardNongrade,
			"backfill_students": p.cfg.BackfillStudents,
			"backfill_courses":  p.cfg.BackfillCourses,
		},
		Run: p.runSplit,
	}
}

func (p *Plan) runSplit(ctx context.Context) error {
	t, err := tabular.ReadCSVFile(p.PreprocessedPath())
	if err != nil {
		return err
	}
	records, err := split.FromTable(t)
	if err != nil {
		return err
	}
	s, err := split.Config{
		Filters:          p.filters,
		DiscardNongrade:  p.cfg.DiscardNongrade,
		BackfillStudents: p.cfg.BackfillStudents,
		BackfillCourses:  p.cfg.BackfillCourses,
	}.Run(records)
	if err != nil {
		return err
	}
	if err := split.ToTable(s.Train).WriteCSVFile(p.TrainPath()); err != nil {
		return err
	}
	return split.ToTable(s.Test).WriteCSVFile(p.TestPath())
}

// loadSplit reads the train/test record tables back for encoding.
func (p *Plan) loadSplit() (split.Split, error) {
	var s split.Split
	for _, side := range []struct {
		path string
		dst  *[]split.Record
	}{
		{p.TrainPath(), &s.Train},
		{p.TestPath(), &s.Test},
	} {
		t, err := tabular.ReadCSVFile(side.path)
		if err != nil {
			return split.Split{}, err
		}
		*side.dst, err = split.FromTable(t)
		if err != nil {
			return split.Split{}, err
		}
	}
	return s, nil
}

// EncodeSteps produce the sparse triples and one libFM file pair per
// time mode used by the variant presets.
func (p *Plan) EncodeSteps() []Step {
	triplesTrain, triplesTest := p.TriplesPaths()
	steps := []Step{{
		Name:     "encode-triples",
		Requires: []string{p.TrainPath(), p.TestPath()},
		Outputs:  []string{triplesTrain, triplesTest},
		Config:   map[string]any{"step": "encode", "format": "triples"},
		Run: func(ctx context.Context) error {
			s, err := p.loadSplit()
			if err != nil {
				return err
			}
			return encode.WriteTriplesFile(triplesTrain, triplesTest, s)
		},
	}}

	for _, m := range []variant.TimeMode{variant.TimeNone, variant.TimeCategorical, variant.TimeBinary} {
		mode := m
		train, test := p.LibFMPaths(mode)
		name := "encode-libfm"
		if mode != variant.TimeNone {
			name += "-" + string(mode)
		}
		steps = append(steps, Step{
			Name:     name,
			Requires: []string{p.TrainPath(), p.TestPath()},
			Outputs:  []string{train, test},
			Config:   map[string]any{"step": "encode", "format": "libfm", "time": string(mode)},
			Run: func(ctx context.Context) error {
				s, err := p.loadSplit()
				if err != nil {
					return err
				}
				return encode.Encoder{Time: mode}.WriteLibFMFile(train, test, s)
			},
		})
	}
	return steps
}

// SolveStep sweeps the solver over the dimension range for one
// variant.
func (p *Plan) SolveStep(v variant.Variant) Step {
	train, test := p.LibFMPaths(v.Time)
	out := p.ResultsPath(v)
	return Step{
		Name:     "solve-" + v.Name,
		Requires: []string{train, test},
		Outputs:  []string{out},
		Config: map[string]any{
			"step":       "solve",
			"variant":    v.Name,
			"iterations": p.cfg.Iterations,
			"dim_start":  p.cfg.DimStart,
			"dim_end":    p.cfg.DimEnd,
			"init_stdev": p.cfg.InitStdev,
		},
		Run: func(ctx context.Context) error {
			res, err := p.solver.Sweep(ctx, solver.Params{
				TrainPath:  train,
				TestPath:   test,
				Iterations: p.cfg.Iterations,
				DimStart:   p.cfg.DimStart,
				DimEnd:     p.cfg.DimEnd,
				InitStdev:  p.cfg.InitStdev,
				UseBias:    v.UseBias,
			})
			if err != nil {
				return err
			}
			return solver.WriteResultsFile(out, res)
		},
	}
}

// CompareStep merges the per-variant results into the leaderboard.
func (p *Plan) CompareStep() Step {
	var requires []string
	for _, v := range variant.All {
		requires = append(requires, p.ResultsPath(v))
	}
	out := p.ComparePath()
	return Step{
		Name:     "compare",
		Requires: requires,
		Outputs:  []string{out},
		Config: map[string]any{
			"step": "compare",
			"topn": p.cfg.TopN,
		},
		Run: func(ctx context.Context) error {
			var methods []results.MethodRows
			for _, v := range variant.All {
				rows, err := results.ReadRowsFile(p.ResultsPath(v))
				if err != nil {
					return fmt.Errorf("reading %s results: %w", v.Name, err)
				}
				methods = append(methods, results.MethodRows{Method: v.Name, Rows: rows})
			}
			merged := results.Aggregate(methods, p.cfg.TopN)

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := results.WriteLeaderboard(f, merged); err != nil {
				return err
			}
			return f.Close()
		},
	}
}

// TableStep renders the leaderboard as an aligned text table.
func (p *Plan) TableStep() Step {
	in := p.ComparePath()
	out := p.TableFilePath()
	return Step{
		Name:     "table",
		Requires: []string{in},
		Outputs:  []string{out},
		Config: map[string]any{
			"step":      "table",
			"precision": p.cfg.Precision,
		},
		Run: func(ctx context.Context) error {
			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()
			merged, err := results.ReadLeaderboard(f)
			if err != nil {
				return err
			}

			formatter := results.DefaultFormatter
			formatter.Precision = p.cfg.Precision

			w, err := os.Create(out)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := formatter.Write(w, merged); err != nil {
				return err
			}
			return w.Close()
		},
	}
}
