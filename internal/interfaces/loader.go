package interfaces

import (
	"context"

	"github.com/ternarybob/friday/internal/models"
)

// Loader produces normalized chunks from one logical document source.
// Implementations exist for local files, remote file URLs, and Confluence
// pages; each is selected by source kind at ingestion time.
type Loader interface {
	// UniqueID returns the stable identity key for the logical source:
	// file name, URL string, or page ID. Deterministic across repeated
	// ingestion runs for the same source.
	UniqueID() string

	// Type identifies the loader variant, recorded in chunk metadata
	Type() string

	// Chunks extracts, normalizes, and splits the source. Every call
	// restarts extraction from scratch. Chunks reduced to empty strings by
	// normalization are dropped before being returned.
	Chunks(ctx context.Context) ([]models.RawChunk, error)
}

// ImageDescriber converts image bytes to a text description suitable for
// semantic search. Unsupported MIME types yield an empty string, never an
// error.
type ImageDescriber interface {
	Describe(ctx context.Context, data []byte) (string, error)
}
