package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
)

// URLLoader produces chunks from a remote file fetched over HTTP. The full
// URL string is the document identity.
type URLLoader struct {
	url        string
	authHeader string
	client     *http.Client
	deps       *Deps
}

var _ interfaces.Loader = (*URLLoader)(nil)

// NewURLLoader creates a loader for the remote file at url. authHeader, when
// non-empty, is sent as the Authorization header on the fetch.
func NewURLLoader(url, authHeader string, client *http.Client, deps *Deps) *URLLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &URLLoader{
		url:        url,
		authHeader: authHeader,
		client:     client,
		deps:       deps,
	}
}

// UniqueID returns the full URL string
func (l *URLLoader) UniqueID() string {
	return l.url
}

// Type identifies the loader variant
func (l *URLLoader) Type() string {
	return "url"
}

// Chunks fetches the URL, extracts text by content type, and returns the
// normalized segments. HTML responses are converted to markdown before
// splitting so markup noise does not pollute the embeddings.
func (l *URLLoader) Chunks(ctx context.Context) ([]models.RawChunk, error) {
	data, contentType, err := l.fetch(ctx)
	if err != nil {
		return nil, &common.ExtractionError{Source: l.url, Err: err}
	}

	text, err := l.extract(ctx, data, contentType)
	if err != nil {
		return nil, &common.ExtractionError{Source: l.url, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	metadata := models.ChunkMetadata{
		Source:       l.url,
		Type:         l.Type(),
		UniqueFileID: l.url,
	}
	return buildChunks(l.deps.Splitter, text, metadata), nil
}

func (l *URLLoader) fetch(ctx context.Context) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	if l.authHeader != "" {
		req.Header.Set("Authorization", l.authHeader)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return data, contentType, nil
}

func (l *URLLoader) extract(ctx context.Context, data []byte, contentType string) (string, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return l.deps.PDF.ExtractText(ctx, data)
	case strings.Contains(ct, "text/html"):
		return htmlToMarkdown(string(data), l.url, l.deps.Logger), nil
	case strings.HasPrefix(ct, "image/"):
		if !l.deps.ExtractImages || l.deps.Describer == nil {
			l.deps.Logger.Debug().Str("url", l.url).Msg("Image extraction disabled, skipping")
			return "", nil
		}
		return l.deps.Describer.Describe(ctx, data)
	case strings.HasPrefix(ct, "text/"), strings.Contains(ct, "application/json"):
		return string(data), nil
	default:
		return l.deps.extractByContent(ctx, l.url, data)
	}
}
