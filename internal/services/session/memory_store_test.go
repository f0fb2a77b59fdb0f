package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/friday/internal/models"
)

func TestMemoryStore_ContextReplacedWholesale(t *testing.T) {
	store := NewMemoryStore()

	first := []models.RawChunk{
		{PageContent: "alpha", Metadata: models.ChunkMetadata{Source: "a.txt"}},
		{PageContent: "beta", Metadata: models.ChunkMetadata{Source: "b.txt"}},
	}
	store.SetContext(first)
	assert.Len(t, store.Context(), 2)

	second := []models.RawChunk{
		{PageContent: "gamma", Metadata: models.ChunkMetadata{Source: "c.txt"}},
	}
	store.SetContext(second)

	got := store.Context()
	assert.Len(t, got, 1)
	assert.Equal(t, "gamma", got[0].PageContent)
}

func TestMemoryStore_ContextCopyIsIsolated(t *testing.T) {
	store := NewMemoryStore()
	store.SetContext([]models.RawChunk{{PageContent: "original"}})

	got := store.Context()
	got[0].PageContent = "mutated"

	assert.Equal(t, "original", store.Context()[0].PageContent)
}

func TestMemoryStore_IntentAndHistory(t *testing.T) {
	store := NewMemoryStore()

	store.SetIntent("how to deploy the service")
	assert.Equal(t, "how to deploy the service", store.Intent())

	store.Append("user", "how do I deploy?")
	store.Append("assistant", "use the deploy script")
	history := store.History()
	assert.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestMemoryStore_Reset(t *testing.T) {
	store := NewMemoryStore()
	store.SetIntent("something")
	store.SetContext([]models.RawChunk{{PageContent: "chunk"}})
	store.Append("user", "hello")

	store.Reset()

	assert.Empty(t, store.Intent())
	assert.Empty(t, store.Context())
	assert.Empty(t, store.History())
}
