package interfaces

import "context"

// EmbeddingService generates vector embeddings for documents and queries.
// The produced dimensionality must match the vector store's configured
// width; a mismatch is a fatal configuration error caught at construction.
type EmbeddingService interface {
	// EmbedDocuments generates one embedding per input text in order.
	// One call per ingestion batch.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the configured output dimensionality
	Dimension() int

	// IsAvailable checks if the embedding service is reachable
	IsAvailable(ctx context.Context) bool
}
