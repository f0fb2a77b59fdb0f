package models

// ChunkMetadata carries the identity and provenance fields attached to every
// chunk. Source and UniqueFileID are the fields the vector store must be able
// to filter on for deletion and provenance reporting; Extra holds
// loader-specific fields and is stored opaquely.
type ChunkMetadata struct {
	// Source is the human-readable origin: file name, URL, or page ID
	Source string `json:"source"`

	// Type identifies the loader variant that produced the chunk
	Type string `json:"type"`

	// UniqueFileID is the stable identity key for the logical document.
	// It is the sole deduplication and deletion key downstream.
	UniqueFileID string `json:"uniqueFileId,omitempty"`

	// Extra holds loader-specific metadata fields
	Extra map[string]string `json:"extra,omitempty"`
}

// RawChunk is a normalized segment of document text as emitted by a loader.
// Immutable once yielded; ephemeral, scoped to one ingestion call.
type RawChunk struct {
	PageContent string        `json:"pageContent"`
	Metadata    ChunkMetadata `json:"metadata"`
}

// InsertChunk is the unit persisted to the vector store: a normalized chunk
// tagged with its file identity and embedding vector.
type InsertChunk struct {
	PageContent string        `json:"pageContent"`
	Metadata    ChunkMetadata `json:"metadata"`
	Vector      []float32     `json:"vector"`
}

// ScoredChunk is a similarity search result. Score is the cosine similarity
// against the query vector; results are ordered by descending score.
type ScoredChunk struct {
	Score       float64       `json:"score"`
	PageContent string        `json:"pageContent"`
	Metadata    ChunkMetadata `json:"metadata"`
}

// FileMeta is the per-document bookkeeping record: one row per ingested
// logical document regardless of how many chunks it produced.
//
// Invariant: a FileMeta exists iff at least one chunk with the same FileID
// exists in the store for the same project. Both are created and deleted
// together.
type FileMeta struct {
	Project    string `json:"project" badgerhold:"index"`
	FileID     string `json:"file_id"`
	EntryCount int    `json:"entry_count"`
}

// SourceDetail is a deduplicated provenance pair reported after a turn that
// performed retrieval.
type SourceDetail struct {
	Source       string `json:"source"`
	UniqueFileID string `json:"uniqueFileId"`
}

// UniqueSources derives the provenance list from a set of context chunks.
// The first occurrence per unique Source wins.
func UniqueSources(chunks []RawChunk) []SourceDetail {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]SourceDetail, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Metadata.Source == "" {
			continue
		}
		if _, ok := seen[chunk.Metadata.Source]; ok {
			continue
		}
		seen[chunk.Metadata.Source] = struct{}{}
		sources = append(sources, SourceDetail{
			Source:       chunk.Metadata.Source,
			UniqueFileID: chunk.Metadata.UniqueFileID,
		})
	}
	return sources
}
