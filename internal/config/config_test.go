package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "inverse", cfg.Retrieval.Similarity)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 100, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, "bolt", cfg.Index.Store)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr())
	assert.False(t, cfg.MySQL.Enabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
port = 9000
strict_errors = true

[retrieval]
similarity = "linear"
top_k = 5

[index]
store = "badger"
path = "/tmp/idx"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RETRIEVAL_TOP_K", "7")
	t.Setenv("RETRIEVAL_PREFILTER", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.Port)
	assert.True(t, cfg.App.StrictErrors)
	assert.Equal(t, "linear", cfg.Retrieval.Similarity)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.True(t, cfg.Retrieval.Prefilter)
	assert.Equal(t, "badger", cfg.Index.Store)
	assert.Equal(t, "/tmp/idx", cfg.Index.Path)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cases := map[string]string{
		"LLM_PROVIDER":         "cohere",
		"RETRIEVAL_SIMILARITY": "cosine",
		"INGEST_CHUNKER":       "sentence",
		"INDEX_STORE":          "faiss",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateChunkOverlap(t *testing.T) {
	cfg := defaultConfig()
	cfg.Ingest.ChunkOverlap = cfg.Ingest.ChunkSize
	assert.Error(t, cfg.Validate())
}

func TestGetEnvAsBoolFallback(t *testing.T) {
	t.Setenv("SOME_FLAG", "not-a-bool")
	assert.True(t, getEnvAsBool("SOME_FLAG", true))
	t.Setenv("SOME_FLAG", "0")
	assert.False(t, getEnvAsBool("SOME_FLAG", true))
}
