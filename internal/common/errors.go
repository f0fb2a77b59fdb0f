package common

import (
	"errors"
	"fmt"
)

// ErrNotConnected indicates the vector store is unreachable or was never
// initialized. Fatal to the current operation, surfaced verbatim, never
// retried automatically.
var ErrNotConnected = errors.New("vector store is not connected")

// ExtractionError reports that a single source failed to parse or embed.
// It is recorded against the source and the ingestion run continues.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %q: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ConsistencyError reports that a delete or insert completed partially,
// leaving chunks and file metadata out of step. Surfaced distinctly so
// callers can decide whether to re-run reconciliation.
type ConsistencyError struct {
	FileID string
	Op     string
	Err    error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("store left inconsistent during %s of %q: %v", e.Op, e.FileID, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid configuration value: dimension
// mismatch, chunk overlap >= chunk size, missing required credentials.
// Always raised before any I/O.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}
