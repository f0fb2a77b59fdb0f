package models

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string `json:"role"`

	// Content contains the text content of the message
	Content string `json:"content"`
}

// IntentDecision is the parsed result of the intent-check step. The model
// preserves Intent verbatim unless the query introduces new subject matter;
// NeedRetrieval signals whether the context must be refreshed before
// answering.
type IntentDecision struct {
	NeedRetrieval bool   `json:"needRetrieval"`
	Intent        string `json:"intent"`
}
