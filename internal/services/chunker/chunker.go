package chunker

import (
	"fmt"
	"strings"

	"github.com/ternarybob/friday/internal/common"
)

// Break preference when choosing where a segment ends, strongest first.
// The empty string means a hard character cut.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter divides normalized document text into overlapping fixed-size
// segments. Segment boundaries prefer paragraph, sentence, then word breaks,
// falling back to hard character cuts only when no break exists within the
// window. Consecutive segments overlap by up to chunkOverlap characters so
// cross-boundary context survives embedding.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter validates the chunking parameters and returns a Splitter.
// chunkOverlap >= chunkSize is a configuration error.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, &common.ConfigurationError{
			Field:  "chunk_size",
			Reason: fmt.Sprintf("must be positive, got %d", chunkSize),
		}
	}
	if chunkOverlap < 0 {
		return nil, &common.ConfigurationError{
			Field:  "chunk_overlap",
			Reason: fmt.Sprintf("must not be negative, got %d", chunkOverlap),
		}
	}
	if chunkOverlap >= chunkSize {
		return nil, &common.ConfigurationError{
			Field:  "chunk_overlap",
			Reason: fmt.Sprintf("overlap (%d) must be smaller than chunk size (%d)", chunkOverlap, chunkSize),
		}
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split returns the segments covering text. No character is dropped:
// concatenating the segments with overlaps removed reconstructs the input
// exactly. Each segment is at most chunkSize characters.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	var segments []string
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			segments = append(segments, string(runes[start:]))
			break
		}

		end = s.breakPoint(runes, start, end)
		segments = append(segments, string(runes[start:end]))

		next := end - s.chunkOverlap
		if next <= start {
			// Overlap would stall the walk on a short segment
			next = end
		}
		start = next
	}
	return segments
}

// breakPoint picks the segment end within (start, limit], preferring the
// strongest separator closest to the limit. Returns limit when the window
// contains no separator.
func (s *Splitter) breakPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx <= 0 {
			continue
		}
		// Cut after the separator so no character is lost
		cut := start + len([]rune(window[:idx+len(sep)]))
		if cut > start {
			return cut
		}
	}
	return limit
}
