package loaders

import (
	"context"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
	"github.com/ternarybob/friday/internal/services/chunker"
)

// Deps bundles the collaborators shared by every loader
type Deps struct {
	Splitter      *chunker.Splitter
	PDF           interfaces.PDFExtractor
	Describer     interfaces.ImageDescriber
	ExtractImages bool
	Logger        arbor.ILogger
}

// textExtensions are the file extensions read verbatim as text
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".log":  true,
}

// imageExtensions are the file extensions routed to the image describer
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize flattens a text segment for embedding: newlines become spaces,
// whitespace runs collapse to a single space, and surrounding whitespace is
// trimmed. A segment that is all whitespace normalizes to the empty string.
func Normalize(text string) string {
	flattened := strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(flattened, " "))
}

// buildChunks splits extracted text and normalizes each segment. Segments
// that normalize to empty are dropped.
func buildChunks(splitter *chunker.Splitter, text string, metadata models.ChunkMetadata) []models.RawChunk {
	segments := splitter.Split(text)
	chunks := make([]models.RawChunk, 0, len(segments))
	for _, segment := range segments {
		normalized := Normalize(segment)
		if normalized == "" {
			continue
		}
		chunks = append(chunks, models.RawChunk{
			PageContent: normalized,
			Metadata:    metadata,
		})
	}
	return chunks
}

// extractByContent routes raw bytes to the right extractor based on detected
// MIME type. Unsupported content yields an empty string without error so the
// source is skipped rather than failing the run.
func (d *Deps) extractByContent(ctx context.Context, source string, data []byte) (string, error) {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is("application/pdf"):
		return d.PDF.ExtractText(ctx, data)
	case strings.HasPrefix(detected.String(), "image/"):
		if !d.ExtractImages || d.Describer == nil {
			d.Logger.Debug().Str("source", source).Msg("Image extraction disabled, skipping")
			return "", nil
		}
		return d.Describer.Describe(ctx, data)
	case strings.HasPrefix(detected.String(), "text/"), detected.Is("application/json"):
		return string(data), nil
	default:
		d.Logger.Debug().Str("source", source).Str("mime", detected.String()).Msg("Unsupported content type, skipping")
		return "", nil
	}
}
