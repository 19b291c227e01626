// Package config loads and validates the pipeline configuration.
//
// Configuration comes from a CUE or YAML file; CUE files are unified
// against the embedded schema before decoding, so constraint
// violations surface at load time with positions rather than deep in a
// pipeline run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/macks22/ers/internal/split"
)

// Config holds every knob of the pipeline, from input locations
// through solver parameters to comparison output.
type Config struct {
	// Input files.
	CoursesFile    string `json:"courses_file" yaml:"courses_file"`
	AdmissionsFile string `json:"admissions_file" yaml:"admissions_file"`

	// Artifact locations.
	OutputDir   string `json:"output_dir" yaml:"output_dir"`
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`

	// Split parameters.
	Filters          string `json:"filters" yaml:"filters"`
	TermMax          int    `json:"term_max" yaml:"term_max"`
	DiscardNongrade  bool   `json:"discard_nongrade" yaml:"discard_nongrade"`
	BackfillStudents int    `json:"backfill_students" yaml:"backfill_students"`
	BackfillCourses  int    `json:"backfill_courses" yaml:"backfill_courses"`

	// Solver parameters.
	SolverBin  string  `json:"solver_bin" yaml:"solver_bin"`
	Iterations int     `json:"iterations" yaml:"iterations"`
	DimStart   int     `json:"dim_start" yaml:"dim_start"`
	DimEnd     int     `json:"dim_end" yaml:"dim_end"`
	InitStdev  float64 `json:"init_stdev" yaml:"init_stdev"`

	// Comparison output.
	TopN      int `json:"topn" yaml:"topn"`
	Precision int `json:"precision" yaml:"precision"`
}

// Default returns the configuration used when a field is not set in
// the loaded file.
func Default() Config {
	return Config{
		CoursesFile:      "data/nsf_courses.csv",
		AdmissionsFile:   "data/nsf_admissions.csv",
		OutputDir:        "out",
		CatalogPath:      "out/catalog.db",
		Filters:          "0-14",
		TermMax:          split.TermMax,
		DiscardNongrade:  true,
		BackfillStudents: 3,
		BackfillCourses:  3,
		SolverBin:        "libFM",
		Iterations:       100,
		DimStart:         5,
		DimEnd:           20,
		InitStdev:        0.3,
		TopN:             3,
		Precision:        5,
	}
}

// ValidationError is a single constraint violation in a loaded
// configuration.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads the configuration file at path, decoding by extension:
// .cue files go through the embedded schema, .yaml and .yml decode
// directly. Missing fields take their defaults; the result is
// validated before it is returned.
func Load(path string) (Config, error) {
	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		if err := loadCUE(path, &cfg); err != nil {
			return Config{}, err
		}
	case ".yaml", ".yml":
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q (want .cue, .yaml, or .yml)", ext)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return cfg, nil
}

func loadCUE(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filepath.Base(path)))
	if err := value.Err(); err != nil {
		return fmt.Errorf("compiling %s: %s", path, cueerrors.Details(err, nil))
	}

	unified := schema.Unify(value)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("validating %s: %s", path, cueerrors.Details(err, nil))
	}

	if err := unified.Decode(cfg); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Validate checks the cross-field constraints the schema cannot
// express, plus everything the YAML path skips. Returns all
// violations rather than stopping at the first.
func (c Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.CoursesFile == "" {
		errs = append(errs, ValidationError{Field: "courses_file", Message: "is required"})
	}
	if c.AdmissionsFile == "" {
		errs = append(errs, ValidationError{Field: "admissions_file", Message: "is required"})
	}
	if c.OutputDir == "" {
		errs = append(errs, ValidationError{Field: "output_dir", Message: "is required"})
	}
	if c.TermMax <= 0 {
		errs = append(errs, ValidationError{Field: "term_max", Message: "must be positive"})
	}
	if c.TermMax > 0 {
		if _, err := split.ParseFilters(c.Filters, c.TermMax); err != nil {
			errs = append(errs, ValidationError{Field: "filters", Message: err.Error()})
		}
	}
	if c.BackfillStudents < 0 {
		errs = append(errs, ValidationError{Field: "backfill_students", Message: "must not be negative"})
	}
	if c.BackfillCourses < 0 {
		errs = append(errs, ValidationError{Field: "backfill_courses", Message: "must not be negative"})
	}
	if c.Iterations <= 0 {
		errs = append(errs, ValidationError{Field: "iterations", Message: "must be positive"})
	}
	if c.DimStart <= 0 {
		errs = append(errs, ValidationError{Field: "dim_start", Message: "must be positive"})
	}
	if c.DimEnd < c.DimStart {
		errs = append(errs, ValidationError{Field: "dim_end", Message: "must be >= dim_start"})
	}
	if c.InitStdev <= 0 {
		errs = append(errs, ValidationError{Field: "init_stdev", Message: "must be positive"})
	}
	if c.TopN <= 0 {
		errs = append(errs, ValidationError{Field: "topn", Message: "must be positive"})
	}
	if c.Precision <= 0 {
		errs = append(errs, ValidationError{Field: "precision", Message: "must be positive"})
	}
	return errs
}

// ParsedFilters returns the cohort filters the config describes.
func (c Config) ParsedFilters() ([]split.Filter, error) {
	return split.ParseFilters(c.Filters, c.TermMax)
}
