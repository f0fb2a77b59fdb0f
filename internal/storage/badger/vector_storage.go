package badger

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// chunkRecord is the persisted form of an embedded chunk. FileID is
// duplicated out of the metadata so deletion by document identity does not
// need to decode metadata for every record.
type chunkRecord struct {
	ID          string `badgerhold:"key"`
	Project     string `badgerhold:"index"`
	FileID      string
	PageContent string
	Metadata    models.ChunkMetadata
	Vector      []float32
}

// VectorStorage implements the VectorStore interface over BadgerDB. Chunks
// and their per-file metadata records live in the same store; similarity
// search is an in-process cosine scan over the project's chunks.
type VectorStorage struct {
	db        *BadgerDB
	logger    arbor.ILogger
	dimension int
}

// NewVectorStorage creates a new VectorStorage instance. dimension is the
// width every stored vector must have.
func NewVectorStorage(db *BadgerDB, dimension int, logger arbor.ILogger) interfaces.VectorStore {
	return &VectorStorage{
		db:        db,
		logger:    logger,
		dimension: dimension,
	}
}

// NewVectorStorageFromStore wraps an already-open badgerhold store. Useful
// for callers that manage the connection themselves.
func NewVectorStorageFromStore(store *badgerhold.Store, dimension int, logger arbor.ILogger) interfaces.VectorStore {
	return &VectorStorage{
		db:        &BadgerDB{store: store, logger: logger},
		logger:    logger,
		dimension: dimension,
	}
}

// IsActive reports whether a live connection exists
func (s *VectorStorage) IsActive() bool {
	return s.db != nil && s.db.Store() != nil
}

// Init prepares the store for a project. Badger is schemaless so there are
// no tables to create; this verifies the connection and is safe to call
// repeatedly.
func (s *VectorStorage) Init(ctx context.Context, project string) error {
	if !s.IsActive() {
		return common.ErrNotConnected
	}
	s.logger.Debug().Str("project", project).Msg("Vector store initialized")
	return nil
}

// ListIngestedFileIDs returns the identity keys of every ingested logical
// document for the project, sorted for deterministic iteration.
func (s *VectorStorage) ListIngestedFileIDs(ctx context.Context, project string) ([]string, error) {
	if !s.IsActive() {
		return nil, common.ErrNotConnected
	}

	var metas []models.FileMeta
	if err := s.db.Store().Find(&metas, badgerhold.Where("Project").Eq(project).Index("Project")); err != nil {
		return nil, fmt.Errorf("failed to list file metadata: %w", err)
	}

	ids := make([]string, 0, len(metas))
	for _, meta := range metas {
		ids = append(ids, meta.FileID)
	}
	sort.Strings(ids)
	return ids, nil
}

// InsertChunks persists a batch of embedded chunks. Records are written one
// at a time; on failure the count of chunks already committed is returned
// with the error.
func (s *VectorStorage) InsertChunks(ctx context.Context, chunks []models.InsertChunk, project string) (int, error) {
	if !s.IsActive() {
		return 0, common.ErrNotConnected
	}

	inserted := 0
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		if len(chunk.Vector) != s.dimension {
			return inserted, &common.ConfigurationError{
				Field:  "storage.vector_dimension",
				Reason: fmt.Sprintf("chunk vector has %d dimensions, store expects %d", len(chunk.Vector), s.dimension),
			}
		}

		record := chunkRecord{
			ID:          common.NewChunkID(),
			Project:     project,
			FileID:      chunk.Metadata.UniqueFileID,
			PageContent: chunk.PageContent,
			Metadata:    chunk.Metadata,
			Vector:      chunk.Vector,
		}
		if err := s.db.Store().Insert(record.ID, record); err != nil {
			return inserted, fmt.Errorf("failed to insert chunk: %w", err)
		}
		inserted++
	}

	s.logger.Debug().Str("project", project).Int("count", inserted).Msg("Inserted chunk batch")
	return inserted, nil
}

// SaveFileMeta writes the per-document bookkeeping record
func (s *VectorStorage) SaveFileMeta(ctx context.Context, fileID string, entryCount int, project string) error {
	if !s.IsActive() {
		return common.ErrNotConnected
	}
	if fileID == "" {
		return fmt.Errorf("file ID is required")
	}

	meta := models.FileMeta{
		Project:    project,
		FileID:     fileID,
		EntryCount: entryCount,
	}
	if err := s.db.Store().Upsert(metaKey(project, fileID), meta); err != nil {
		return fmt.Errorf("failed to save file metadata: %w", err)
	}
	return nil
}

// DeleteFile removes all chunks for the document and its metadata record as
// a unit. A failure after the chunks are gone but before the metadata row is
// removed surfaces as a ConsistencyError so callers know the store needs
// repair for this document.
func (s *VectorStorage) DeleteFile(ctx context.Context, fileID string, project string) error {
	if !s.IsActive() {
		return common.ErrNotConnected
	}

	query := badgerhold.Where("Project").Eq(project).Index("Project").And("FileID").Eq(fileID)
	if err := s.db.Store().DeleteMatching(&chunkRecord{}, query); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", fileID, err)
	}

	err := s.db.Store().Delete(metaKey(project, fileID), models.FileMeta{})
	if err != nil && err != badgerhold.ErrNotFound {
		return &common.ConsistencyError{
			FileID: fileID,
			Op:     "delete metadata",
			Err:    err,
		}
	}

	s.logger.Debug().Str("project", project).Str("file_id", fileID).Msg("Deleted file from vector store")
	return nil
}

// SimilaritySearch scans the project's chunks, scores each against the query
// vector by cosine similarity, and returns up to topK results with
// score > minScore in descending order.
func (s *VectorStorage) SimilaritySearch(ctx context.Context, project string, queryVector []float32, minScore float64, topK int) ([]models.ScoredChunk, error) {
	if !s.IsActive() {
		return nil, common.ErrNotConnected
	}
	if len(queryVector) != s.dimension {
		return nil, &common.ConfigurationError{
			Field:  "storage.vector_dimension",
			Reason: fmt.Sprintf("query vector has %d dimensions, store expects %d", len(queryVector), s.dimension),
		}
	}

	var records []chunkRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("Project").Eq(project).Index("Project")); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	scored := make([]models.ScoredChunk, 0, len(records))
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := cosineSimilarity(queryVector, record.Vector)
		if score <= minScore {
			continue
		}
		scored = append(scored, models.ScoredChunk{
			Score:       score,
			PageContent: record.PageContent,
			Metadata:    record.Metadata,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}

	s.logger.Debug().Str("project", project).Int("results", len(scored)).Msg("Similarity search complete")
	return scored, nil
}

// Close closes the store connection
func (s *VectorStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func metaKey(project, fileID string) string {
	return project + "/" + fileID
}

// cosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
