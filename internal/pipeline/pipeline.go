package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/macks22/ers/internal/artifact"
)

// Step is one unit of the pipeline: its upstream artifacts, its own
// outputs, the configuration the outputs are a deterministic function
// of, and the work itself.
type Step struct {
	Name     string
	Requires []string       // upstream artifact paths that must exist
	Outputs  []string       // artifact paths this step produces
	Config   map[string]any // configuration defining the output identity
	Run      func(ctx context.Context) error
}

// Runner executes steps sequentially in declaration order. Mutations
// happen one step at a time in one goroutine; determinism over
// throughput.
type Runner struct {
	Catalog *artifact.Catalog       // nil disables provenance recording
	Tokens  artifact.TokenGenerator // run token source
	Force   bool                    // re-run steps even when up to date
}

// Run executes the steps in order. A step is skipped when every output
// is up to date: present on disk, and matching its recorded identity
// when a catalog is attached. Missing upstream artifacts fail fast.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	tokens := r.Tokens
	if tokens == nil {
		tokens = artifact.UUIDv7Generator{}
	}
	runID := tokens.Generate()
	slog.Info("pipeline starting", "run_id", runID, "steps", len(steps))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStep(ctx, runID, step); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
	}
	slog.Info("pipeline finished", "run_id", runID)
	return nil
}

func (r *Runner) runStep(ctx context.Context, runID string, step Step) error {
	for _, req := range step.Requires {
		if _, err := os.Stat(req); err != nil {
			return fmt.Errorf("missing required artifact %s", req)
		}
	}

	identity, err := artifact.Identity(step.Config)
	if err != nil {
		return fmt.Errorf("computing identity: %w", err)
	}

	if !r.Force {
		fresh, err := r.upToDate(ctx, step, identity)
		if err != nil {
			return err
		}
		if fresh {
			slog.Info("step up to date, skipping", "step", step.Name)
			return nil
		}
	}

	slog.Info("step running", "step", step.Name)
	if err := step.Run(ctx); err != nil {
		return err
	}

	for _, out := range step.Outputs {
		rows, err := countLines(out)
		if err != nil {
			return fmt.Errorf("output %s not produced: %w", out, err)
		}
		if r.Catalog != nil {
			err := r.Catalog.Put(ctx, artifact.Record{
				RunID:    runID,
				Step:     step.Name,
				Path:     out,
				Identity: identity,
				Rows:     rows,
			})
			if err != nil {
				return err
			}
		}
		slog.Debug("artifact produced", "step", step.Name, "path", out, "rows", rows)
	}
	return nil
}

// upToDate reports whether every declared output can be reused.
// Without a catalog this degrades to plain existence checks.
func (r *Runner) upToDate(ctx context.Context, step Step, identity string) (bool, error) {
	if len(step.Outputs) == 0 {
		return false, nil
	}
	for _, out := range step.Outputs {
		if r.Catalog == nil {
			if _, err := os.Stat(out); err != nil {
				return false, nil
			}
			continue
		}
		ok, err := r.Catalog.UpToDate(ctx, out, identity)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// countLines counts newline-terminated lines in a produced artifact.
func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return -1, err
	}
	defer f.Close()

	var n int64
	reader := bufio.NewReader(f)
	for {
		c, err := reader.ReadByte()
		if err != nil {
			break
		}
		if c == '\n' {
			n++
		}
	}
	return n, nil
}
