package session

import (
	"sync"

	"github.com/ternarybob/friday/internal/models"
)

// MemoryStore holds the per-session conversation state: the last resolved
// intent, the retrieval context currently in force, and the message history.
// The retrieval context is replaced wholesale on each retrieval so answers
// never mix chunks from different intents.
type MemoryStore struct {
	mu      sync.RWMutex
	intent  string
	context []models.RawChunk
	history []models.Message
}

// NewMemoryStore creates an empty session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Intent returns the last resolved retrieval intent
func (m *MemoryStore) Intent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.intent
}

// SetIntent records the resolved intent for the current turn. Called on
// every turn regardless of whether retrieval ran.
func (m *MemoryStore) SetIntent(intent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intent = intent
}

// Context returns the retrieval context currently in force
func (m *MemoryStore) Context() []models.RawChunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RawChunk, len(m.context))
	copy(out, m.context)
	return out
}

// SetContext replaces the retrieval context wholesale
func (m *MemoryStore) SetContext(chunks []models.RawChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.context = make([]models.RawChunk, len(chunks))
	copy(m.context, chunks)
}

// History returns the conversation messages in chronological order
func (m *MemoryStore) History() []models.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Message, len(m.history))
	copy(out, m.history)
	return out
}

// Append adds a message to the conversation history
func (m *MemoryStore) Append(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, models.Message{Role: role, Content: content})
}

// Reset clears all session state
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intent = ""
	m.context = nil
	m.history = nil
}
