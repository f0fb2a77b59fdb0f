package loaders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/services/chunker"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	splitter, err := chunker.NewSplitter(100, 20)
	require.NoError(t, err)
	return &Deps{
		Splitter: splitter,
		Logger:   arbor.NewLogger(),
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"newlines become spaces", "line one\nline two", "line one line two"},
		{"whitespace runs collapse", "too   many\t\tspaces", "too many spaces"},
		{"surrounding whitespace trimmed", "  padded  ", "padded"},
		{"all whitespace empties", " \n\t ", ""},
		{"already clean", "nothing to do", "nothing to do"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestFileLoader_TextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "The deployment runbook lives in the operations wiki.\n\nRotate credentials every ninety days."
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewFileLoader(path, testDeps(t))
	assert.Equal(t, "notes.txt", loader.UniqueID())
	assert.Equal(t, "file", loader.Type())

	chunks, err := loader.Chunks(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.Equal(t, "notes.txt", chunk.Metadata.Source)
		assert.Equal(t, "notes.txt", chunk.Metadata.UniqueFileID)
		assert.Equal(t, "file", chunk.Metadata.Type)
		assert.NotContains(t, chunk.PageContent, "\n", "chunk content must be normalized")
		assert.NotEmpty(t, chunk.PageContent)
	}
}

func TestFileLoader_UnsupportedTypeYieldsNoChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03}, 0644))

	loader := NewFileLoader(path, testDeps(t))
	chunks, err := loader.Chunks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestFileLoader_MissingFileIsExtractionError(t *testing.T) {
	loader := NewFileLoader("/nonexistent/missing.txt", testDeps(t))
	_, err := loader.Chunks(context.Background())
	require.Error(t, err)
	var extractionErr *common.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}

func TestURLLoader_TextResponse(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Remote document body with enough words to chunk at least once."))
	}))
	defer server.Close()

	loader := NewURLLoader(server.URL, "Bearer token-123", server.Client(), testDeps(t))
	assert.Equal(t, server.URL, loader.UniqueID())
	assert.Equal(t, "url", loader.Type())

	chunks, err := loader.Chunks(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, server.URL, chunks[0].Metadata.UniqueFileID)
}

func TestURLLoader_HTMLConvertedToMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Release Notes</h1><p>Version two ships the new importer.</p></body></html>"))
	}))
	defer server.Close()

	loader := NewURLLoader(server.URL, "", server.Client(), testDeps(t))
	chunks, err := loader.Chunks(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].PageContent, "Release Notes")
	assert.NotContains(t, chunks[0].PageContent, "<h1>")
}

func TestURLLoader_ServerErrorIsExtractionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	loader := NewURLLoader(server.URL, "", server.Client(), testDeps(t))
	_, err := loader.Chunks(context.Background())
	require.Error(t, err)
	var extractionErr *common.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}

func TestConfluenceLoader_FetchesPageBody(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot@example.com" || pass != "api-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Onboarding Guide","body":{"storage":{"value":"<p>Welcome to the team. Read the handbook first.</p>"}}}`))
	}))
	defer server.Close()

	config := &common.ConfluenceConfig{
		BaseURL: server.URL,
		User:    "bot@example.com",
		APIKey:  "api-key",
	}
	loader := NewConfluenceLoader("12345", config, server.Client(), testDeps(t))
	assert.Equal(t, "12345", loader.UniqueID())
	assert.Equal(t, "confluence", loader.Type())

	chunks, err := loader.Chunks(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "/wiki/rest/api/content/12345", gotPath)
	assert.Equal(t, "12345", chunks[0].Metadata.UniqueFileID)
	assert.Equal(t, "Onboarding Guide", chunks[0].Metadata.Extra["title"])
	assert.Contains(t, chunks[0].PageContent, "Welcome to the team")
}

func TestConfluenceLoader_AuthFailureIsExtractionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	config := &common.ConfluenceConfig{BaseURL: server.URL, User: "u", APIKey: "wrong"}
	loader := NewConfluenceLoader("12345", config, server.Client(), testDeps(t))
	_, err := loader.Chunks(context.Background())
	require.Error(t, err)
	var extractionErr *common.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}
