package common

import (
	"github.com/google/uuid"
)

// NewChunkID generates a unique chunk ID with the "chk_" prefix
// Format: chk_<uuid>
func NewChunkID() string {
	return "chk_" + uuid.New().String()
}
