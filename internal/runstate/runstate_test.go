package runstate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eps-report/internal/types"
)

func TestDiff(t *testing.T) {
	prior := map[string]types.Bucket{"A": types.BucketGreen, "C": types.BucketNone, "GONE": types.BucketRed}
	current := map[string]types.Bucket{"A": types.BucketRed, "B": types.BucketRed, "C": types.BucketNone}

	changed, next := Diff(current, prior)

	assert.True(t, changed["A"])
	assert.False(t, changed["B"], "no prior entry is never a change")
	assert.False(t, changed["C"])
	assert.Equal(t, current, next)
	_, kept := next["GONE"]
	assert.False(t, kept)
}

func TestDiff_EmptyPrior(t *testing.T) {
	current := map[string]types.Bucket{"A": types.BucketRed, "B": types.BucketGreen, "C": types.BucketNone}
	changed, _ := Diff(current, nil)
	for id := range current {
		assert.False(t, changed[id], id)
	}
}

func TestApply(t *testing.T) {
	results := []types.ValuationResult{
		{StockID: "A", Bucket: types.BucketRed},
		{StockID: "B", Bucket: types.BucketRed},
	}
	next := Apply(context.Background(), results, map[string]types.Bucket{"A": types.BucketGreen})

	assert.True(t, results[0].Changed)
	assert.False(t, results[1].Changed)
	assert.Equal(t, map[string]types.Bucket{"A": types.BucketRed, "B": types.BucketRed}, next)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "last_color.json")
	store := NewFileStore(path)

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	state := map[string]types.Bucket{"2330": types.BucketRed, "6488": types.BucketNone}
	require.NoError(t, store.Replace(ctx, state))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"2330\": \"red\"")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	require.NoError(t, store.Replace(ctx, map[string]types.Bucket{"1101": types.BucketGreen}))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.Bucket{"1101": types.BucketGreen}, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileStore_MalformedIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_color.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	state, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state)
}
