package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macks22/ers/internal/artifact"
	"github.com/macks22/ers/internal/split"
	"github.com/macks22/ers/internal/variant"
)

func TestNameSpec_File(t *testing.T) {
	filters, err := split.ParseFilters("0-4", split.TermMax)
	require.NoError(t, err)

	tests := []struct {
		name string
		spec NameSpec
		part string
		want string
	}{
		{
			name: "default split",
			spec: NameSpec{Prefix: "ucg", Filters: filters, BackfillStudents: 3, BackfillCourses: 3, Ext: "tsv"},
			part: "train",
			want: "ucg-0_4T0_14-scs3-ccs3.train.tsv",
		},
		{
			name: "nongrades kept",
			spec: NameSpec{Prefix: "ucg", Filters: filters, KeepNongrades: true, Ext: "tsv"},
			part: "test",
			want: "ucg-0_4T0_14-ng.test.tsv",
		},
		{
			name: "solver results with suffix",
			spec: NameSpec{Prefix: "ucg", Filters: filters, BackfillStudents: 3, BackfillCourses: 3, Suffix: "i100-s03-b", Ext: "tsv"},
			part: "results",
			want: "ucg-0_4T0_14-scs3-ccs3-i100-s03-b.results.tsv",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.spec.File("out", tt.part)
			assert.Equal(t, filepath.Join("out", tt.want), got)
		})
	}
}

func TestNameSpec_MultipleFilters(t *testing.T) {
	filters, err := split.ParseFilters("2009-2009 2010-2010", split.TermMax)
	require.NoError(t, err)

	spec := NameSpec{Prefix: "ucg", Filters: filters, Ext: "tsv"}
	got := spec.File(".", "all")
	assert.Equal(t, "ucg-2009_2009T0_14-2010_2010T0_14.all.tsv", got)
}

func TestSolverSuffix(t *testing.T) {
	tests := []struct {
		variant string
		want    string
	}{
		{"SVD", "i100-s03"},
		{"BiasedSVD", "i100-s03-b"},
		{"TimeSVD", "time-cat-i100-s03"},
		{"BiasedTimeSVD", "time-cat-i100-s03-b"},
		{"BPTF", "time-bin-i100-s03"},
		{"BiasedBPTF", "time-bin-i100-s03-b"},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			v, err := variant.ByName(tt.variant)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SolverSuffix(v, 100, 0.3))
		})
	}
}

func TestTablePath(t *testing.T) {
	assert.Equal(t, "out/compare-top3.md", TablePath("out/compare-top3.tsv"))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunner_RunsStepsInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.tsv")
	second := filepath.Join(dir, "second.tsv")

	var order []string
	steps := []Step{
		{
			Name:    "first",
			Outputs: []string{first},
			Config:  map[string]any{"n": 1},
			Run: func(ctx context.Context) error {
				order = append(order, "first")
				writeFile(t, first, "a\nb\n")
				return nil
			},
		},
		{
			Name:     "second",
			Requires: []string{first},
			Outputs:  []string{second},
			Config:   map[string]any{"n": 2},
			Run: func(ctx context.Context) error {
				order = append(order, "second")
				writeFile(t, second, "c\n")
				return nil
			},
		},
	}

	r := &Runner{Tokens: artifact.NewFixedGenerator("run-1")}
	require.NoError(t, r.Run(context.Background(), steps))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunner_MissingRequirementFails(t *testing.T) {
	steps := []Step{{
		Name:     "needy",
		Requires: []string{filepath.Join(t.TempDir(), "absent.tsv")},
		Config:   map[string]any{},
		Run:      func(ctx context.Context) error { return nil },
	}}

	r := &Runner{Tokens: artifact.NewFixedGenerator("run-1")}
	err := r.Run(context.Background(), steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required artifact")
}

func TestRunner_SkipsExistingOutputs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.tsv")
	writeFile(t, out, "already here\n")

	ran := false
	steps := []Step{{
		Name:    "skippable",
		Outputs: []string{out},
		Config:  map[string]any{},
		Run: func(ctx context.Context) error {
			ran = true
			return nil
		},
	}}

	r := &Runner{Tokens: artifact.NewFixedGenerator("run-1")}
	require.NoError(t, r.Run(context.Background(), steps))
	assert.False(t, ran, "step should be skipped when outputs exist")
}

func TestRunner_ForceRerunsSteps(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.tsv")
	writeFile(t, out, "stale\n")

	ran := false
	steps := []Step{{
		Name:    "forced",
		Outputs: []string{out},
		Config:  map[string]any{},
		Run: func(ctx context.Context) error {
			ran = true
			writeFile(t, out, "fresh\n")
			return nil
		},
	}}

	r := &Runner{Tokens: artifact.NewFixedGenerator("run-1"), Force: true}
	require.NoError(t, r.Run(context.Background(), steps))
	assert.True(t, ran)
}

func TestRunner_CatalogRecordsOutputs(t *testing.T) {
	dir := t.TempDir()
	cat, err := artifact.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	defer cat.Close()

	out := filepath.Join(dir, "out.tsv")
	config := map[string]any{"filters": []string{"0_4T0_14"}}
	steps := []Step{{
		Name:    "produce",
		Outputs: []string{out},
		Config:  config,
		Run: func(ctx context.Context) error {
			writeFile(t, out, "1\t2\t3.0\n4\t5\t2.67\n")
			return nil
		},
	}}

	r := &Runner{Catalog: cat, Tokens: artifact.NewFixedGenerator("run-1")}
	ctx := context.Background()
	require.NoError(t, r.Run(ctx, steps))

	rec, ok, err := cat.Lookup(ctx, out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "produce", rec.Step)
	assert.Equal(t, int64(2), rec.Rows)

	wantIdentity, err := artifact.Identity(config)
	require.NoError(t, err)
	assert.Equal(t, wantIdentity, rec.Identity)
}

func TestRunner_IdentityChangeTriggersRerun(t *testing.T) {
	dir := t.TempDir()
	cat, err := artifact.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	defer cat.Close()

	out := filepath.Join(dir, "out.tsv")
	ctx := context.Background()

	step := func(config map[string]any, ran *bool) []Step {
		return []Step{{
			Name:    "configurable",
			Outputs: []string{out},
			Config:  config,
			Run: func(ctx context.Context) error {
				*ran = true
				writeFile(t, out, "row\n")
				return nil
			},
		}}
	}

	r := &Runner{Catalog: cat, Tokens: artifact.NewFixedGenerator("run-1", "run-2", "run-3")}

	var ran bool
	require.NoError(t, r.Run(ctx, step(map[string]any{"backfill": 3}, &ran)))
	assert.True(t, ran)

	ran = false
	require.NoError(t, r.Run(ctx, step(map[string]any{"backfill": 3}, &ran)))
	assert.False(t, ran, "unchanged config should reuse the artifact")

	ran = false
	require.NoError(t, r.Run(ctx, step(map[string]any{"backfill": 5}, &ran)))
	assert.True(t, ran, "changed config should invalidate the artifact")
}
