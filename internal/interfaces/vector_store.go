package interfaces

import (
	"context"

	"github.com/ternarybob/friday/internal/models"
)

// VectorStore is the capability contract for the persistent chunk store and
// its parallel per-file metadata table. Chunks and file metadata are mutated
// only through these operations; the ingestion orchestrator is the sole
// writer.
type VectorStore interface {
	// IsActive reports whether a live connection exists
	IsActive() bool

	// Init creates the backing tables for a project. Idempotent: a no-op
	// if they already exist.
	Init(ctx context.Context, project string) error

	// ListIngestedFileIDs returns the identity keys of every ingested
	// logical document for the project.
	ListIngestedFileIDs(ctx context.Context, project string) ([]string, error)

	// InsertChunks persists a batch of embedded chunks. Batch atomicity is
	// not guaranteed; on partial success the returned count is still
	// accurate. Callers bound batch size.
	InsertChunks(ctx context.Context, chunks []models.InsertChunk, project string) (int, error)

	// SaveFileMeta writes the per-document bookkeeping record
	SaveFileMeta(ctx context.Context, fileID string, entryCount int, project string) error

	// DeleteFile removes all chunks whose metadata matches fileID and the
	// file metadata record, as a unit. If either half fails the error
	// propagates; a partial delete is reported as a ConsistencyError.
	DeleteFile(ctx context.Context, fileID string, project string) error

	// SimilaritySearch returns up to topK chunks strictly ordered by
	// descending similarity; only results with score > minScore are
	// returned.
	SimilaritySearch(ctx context.Context, project string, queryVector []float32, minScore float64, topK int) ([]models.ScoredChunk, error)

	// Close closes the store connection
	Close() error
}
