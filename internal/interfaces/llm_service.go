package interfaces

import (
	"context"

	"github.com/ternarybob/friday/internal/models"
)

// LLMService defines the language-model collaborator used for chat
// completions, JSON-constrained queries, and streaming responses.
type LLMService interface {
	// Chat generates a completion response based on the conversation
	// history. The messages slice should contain the full conversation
	// context in chronological order, including system prompts, user
	// messages, and previous assistant responses.
	Chat(ctx context.Context, messages []models.Message) (string, error)

	// ChatJSON generates a completion constrained to a single JSON object.
	// Used by the intent-check step; the returned string parses as JSON.
	ChatJSON(ctx context.Context, messages []models.Message) (string, error)

	// ChatStream generates a completion and delivers it incrementally.
	// The token channel is closed when the response is complete or the
	// context is cancelled. The error channel carries at most one value,
	// delivered after the token channel closes, describing a failure that
	// ended the stream early; it closes without a value on success.
	ChatStream(ctx context.Context, messages []models.Message) (<-chan string, <-chan error, error)

	// HealthCheck verifies the service is operational and can handle requests
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations
	Close() error
}
