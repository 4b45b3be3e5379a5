package vectorindex

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicodeguard/internal/domain"
)

func testRecords(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Vector: []float64{float64(i + 1), float64(n - i), 1},
			Chunk: domain.Chunk{
				Text:          "chunk " + strconv.Itoa(i),
				SourceID:      domain.SourceID,
				SequenceIndex: i,
				SectionIndex:  0,
			},
		}
	}
	return records
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyIndex))
}

func TestExtendDimensionMismatch(t *testing.T) {
	ix, err := Build(testRecords(2))
	require.NoError(t, err)

	err = ix.Extend([]Record{{Vector: []float64{1, 2}, Chunk: domain.Chunk{Text: "bad"}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Equal(t, 2, ix.Len())
}

func TestSearchOrdering(t *testing.T) {
	ix, err := Build(testRecords(8))
	require.NoError(t, err)

	query := []float64{1, 8, 1}
	results, err := ix.Search(query, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)

	seen := make(map[string]bool)
	for i, r := range results {
		if i > 0 {
			assert.GreaterOrEqual(t, r.Distance, results[i-1].Distance,
				"distances must be non-decreasing")
		}
		assert.False(t, seen[r.Chunk.Text], "chunk returned twice")
		seen[r.Chunk.Text] = true
	}

	// Nearest neighbor of record 0's own vector is record 0.
	self, err := ix.Search([]float64{1, 8, 1}, 1)
	require.NoError(t, err)
	require.Len(t, self, 1)
	assert.Equal(t, "chunk 0", self[0].Chunk.Text)
	assert.InDelta(t, 0, self[0].Distance, 1e-9)
}

func TestSearchKExceedsSize(t *testing.T) {
	ix, err := Build(testRecords(3))
	require.NoError(t, err)

	results, err := ix.Search([]float64{1, 1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = ix.Search([]float64{1, 1, 1}, 0)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	ix, err := Build(testRecords(3))
	require.NoError(t, err)

	_, err = ix.Search([]float64{1, 2, 3, 4, 5}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = ix.Search([]float64{1, 2}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestLoadWithoutDimensionCheckStillRejectsBadQueries(t *testing.T) {
	ix, err := Build(testRecords(3))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, ix.Save(path))

	// A caller that cannot know the gateway dimension yet may load with 0,
	// but a query of the wrong dimension must still fail, never be compared
	// against truncated vectors.
	loaded, err := Load(path, 0)
	require.NoError(t, err)

	_, err = loaded.Search([]float64{1, 2, 3, 4, 5}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	results, err := loaded.Search([]float64{1, 3, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk 0", results[0].Chunk.Text)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ix, err := Build(testRecords(6))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshots", "index.json")
	require.NoError(t, ix.Save(path))
	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "temp file must not remain")

	loaded, err := Load(path, 3)
	require.NoError(t, err)
	assert.Equal(t, ix.Len(), loaded.Len())
	assert.Equal(t, ix.Dimension(), loaded.Dimension())

	query := []float64{2, 5, 1}
	want, err := ix.Search(query, 4)
	require.NoError(t, err)
	got, err := loaded.Search(query, 4)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Chunk, got[i].Chunk)
		assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-12)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.json"), 3)
		assert.True(t, errors.Is(err, domain.ErrCorruptIndex))
	})

	t.Run("garbage payload", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
		_, err := Load(path, 3)
		assert.True(t, errors.Is(err, domain.ErrCorruptIndex))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		ix, err := Build(testRecords(2))
		require.NoError(t, err)
		path := filepath.Join(dir, "dim.json")
		require.NoError(t, ix.Save(path))

		_, err = Load(path, 7)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrCorruptIndex))
	})
}
