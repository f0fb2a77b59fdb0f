package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "./friday.datasource", config.Datasource.Dir)
	assert.Equal(t, 1500, config.Ingest.ChunkSize)
	assert.Equal(t, 200, config.Ingest.ChunkOverlap)
	assert.Equal(t, 500, config.Ingest.BatchSize)
	assert.Equal(t, 0.4, config.Retrieval.MinScore)
	assert.Equal(t, 3, config.Retrieval.TopK)
	assert.Equal(t, 3072, config.Storage.VectorDimension)
	assert.Equal(t, config.Gemini.EmbedDimension, config.Storage.VectorDimension)
}

func TestLoadFromFiles_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "friday.toml")
	content := `
[project]
id = "myproject"

[ingest]
chunk_size = 800
chunk_overlap = 100

[retrieval]
top_k = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "myproject", config.Project.ID)
	assert.Equal(t, 800, config.Ingest.ChunkSize)
	assert.Equal(t, 100, config.Ingest.ChunkOverlap)
	assert.Equal(t, 5, config.Retrieval.TopK)
	// Untouched fields keep their defaults
	assert.Equal(t, 500, config.Ingest.BatchSize)
	assert.Equal(t, 0.4, config.Retrieval.MinScore)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "friday.toml")
	require.NoError(t, os.WriteFile(path, []byte("[project]\nid = \"from-file\"\n"), 0644))

	t.Setenv("FRIDAY_PROJECT_ID", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Project.ID)
	assert.Equal(t, "anthropic-key", config.Claude.APIKey)
	assert.Equal(t, "gemini-key", config.Gemini.APIKey)
}

func TestLoadFromFiles_MissingFileFails(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/friday.toml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := NewDefaultConfig()
	valid.Project.ID = "demo"
	require.NoError(t, valid.Validate())

	t.Run("missing project id", func(t *testing.T) {
		config := NewDefaultConfig()
		err := config.Validate()
		require.Error(t, err)
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("overlap not smaller than chunk size", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Project.ID = "demo"
		config.Ingest.ChunkOverlap = config.Ingest.ChunkSize
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunk_overlap")
	})

	t.Run("embedding dimension mismatch", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Project.ID = "demo"
		config.Gemini.EmbedDimension = 768
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embed_dimension")
	})
}

func TestHasConfluenceCredentials(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.HasConfluenceCredentials())

	config.Confluence.BaseURL = "https://example.atlassian.net"
	config.Confluence.User = "bot@example.com"
	assert.False(t, config.HasConfluenceCredentials(), "all three fields are required")

	config.Confluence.APIKey = "key"
	assert.True(t, config.HasConfluenceCredentials())
}
