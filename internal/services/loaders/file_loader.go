package loaders

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
)

// FileLoader produces chunks from a local document file. The file name is
// the document identity, so re-ingesting the same file replaces rather than
// duplicates.
type FileLoader struct {
	path string
	deps *Deps
}

var _ interfaces.Loader = (*FileLoader)(nil)

// NewFileLoader creates a loader for the file at path
func NewFileLoader(path string, deps *Deps) *FileLoader {
	return &FileLoader{path: path, deps: deps}
}

// UniqueID returns the file's base name
func (l *FileLoader) UniqueID() string {
	return filepath.Base(l.path)
}

// Type identifies the loader variant
func (l *FileLoader) Type() string {
	return "file"
}

// Chunks reads the file, extracts its text by type, and returns the
// normalized segments. Files of unsupported types yield no chunks and no
// error.
func (l *FileLoader) Chunks(ctx context.Context) ([]models.RawChunk, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &common.ExtractionError{Source: l.path, Err: err}
	}

	text, err := l.extract(ctx, data)
	if err != nil {
		return nil, &common.ExtractionError{Source: l.path, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	metadata := models.ChunkMetadata{
		Source:       l.UniqueID(),
		Type:         l.Type(),
		UniqueFileID: l.UniqueID(),
	}
	return buildChunks(l.deps.Splitter, text, metadata), nil
}

// extract routes by extension first, falling back to content sniffing for
// files without a recognized extension.
func (l *FileLoader) extract(ctx context.Context, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(l.path))
	switch {
	case ext == ".pdf":
		return l.deps.PDF.ExtractText(ctx, data)
	case textExtensions[ext]:
		return string(data), nil
	case imageExtensions[ext]:
		if !l.deps.ExtractImages || l.deps.Describer == nil {
			l.deps.Logger.Debug().Str("path", l.path).Msg("Image extraction disabled, skipping")
			return "", nil
		}
		return l.deps.Describer.Describe(ctx, data)
	default:
		return l.deps.extractByContent(ctx, l.path, data)
	}
}
