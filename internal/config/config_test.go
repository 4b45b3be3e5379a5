package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, 2000, cfg.Chunker.TargetSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 20, cfg.Indexer.BatchSize)
	assert.Equal(t, 2, cfg.Indexer.MaxAttempts)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Retriever.TopK)
	assert.Equal(t, 20, cfg.Analyzer.MaxFiles)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  model: custom-embed
indexer:
  batch_size: 8
chunker:
  target_size: 1000
  overlap: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom-embed", cfg.Embedder.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.BaseURL)
	assert.Equal(t, 8, cfg.Indexer.BatchSize)
	assert.Equal(t, 2, cfg.Indexer.MaxAttempts)
	assert.Equal(t, 1000, cfg.Chunker.TargetSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [not a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.Retriever.TopK = 9

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
