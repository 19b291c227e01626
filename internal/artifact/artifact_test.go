package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	c1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c2.Close())
}

func TestPutLookup(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	rec := Record{
		RunID:    "run-1",
		Step:     "split",
		Path:     "data/ucg-0_4T0_14-scs3-ccs3.train.tsv",
		Identity: "abc123",
		Rows:     420,
	}
	require.NoError(t, c.Put(ctx, rec))

	got, found, err := c.Lookup(ctx, rec.Path)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)

	_, found, err = c.Lookup(ctx, "no/such/file")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPut_UpsertsByPath(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	rec := Record{RunID: "run-1", Step: "split", Path: "out.tsv", Identity: "v1", Rows: 1}
	require.NoError(t, c.Put(ctx, rec))

	rec.RunID = "run-2"
	rec.Identity = "v2"
	require.NoError(t, c.Put(ctx, rec))

	got, found, err := c.Lookup(ctx, "out.tsv")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, "v2", got.Identity)
}

func TestUpToDate(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.tsv")

	// Missing file: never up to date, even if recorded.
	require.NoError(t, c.Put(ctx, Record{RunID: "r", Step: "s", Path: path, Identity: "h1", Rows: 1}))
	ok, err := c.UpToDate(ctx, path, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("0\t0\t4\n"), 0o644))

	ok, err = c.UpToDate(ctx, path, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Identity mismatch means the step must re-run; not an error.
	ok, err = c.UpToDate(ctx, path, "h2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdentity_Deterministic(t *testing.T) {
	config := map[string]any{
		"filters":  []string{"0-4", "0-7"},
		"backfill": 3,
		"stdev":    0.3,
		"bias":     true,
	}

	h1, err := Identity(config)
	require.NoError(t, err)
	h2, err := Identity(map[string]any{
		"bias":     true,
		"stdev":    0.3,
		"backfill": 3,
		"filters":  []string{"0-4", "0-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "key order must not change the identity")

	h3, err := Identity(map[string]any{
		"filters":  []string{"0-4"},
		"backfill": 3,
		"stdev":    0.3,
		"bias":     true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestMarshalCanonical(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"b": 1,
		"a": "x",
		"c": []any{true, 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,0.5]}`, string(data))

	_, err = MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	token := gen.Generate()

	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, token, gen.Generate())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate(), "last token repeats")

	assert.Equal(t, "test-run-default", NewFixedGenerator().Generate())
}
