package loaders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
)

// ConfluenceLoader produces chunks from one Confluence wiki page fetched
// through the REST content API. The page ID is the document identity so page
// moves and renames do not duplicate content.
type ConfluenceLoader struct {
	pageID string
	config *common.ConfluenceConfig
	client *http.Client
	deps   *Deps
}

var _ interfaces.Loader = (*ConfluenceLoader)(nil)

// NewConfluenceLoader creates a loader for the wiki page with the given ID
func NewConfluenceLoader(pageID string, config *common.ConfluenceConfig, client *http.Client, deps *Deps) *ConfluenceLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &ConfluenceLoader{
		pageID: pageID,
		config: config,
		client: client,
		deps:   deps,
	}
}

// UniqueID returns the page ID
func (l *ConfluenceLoader) UniqueID() string {
	return l.pageID
}

// Type identifies the loader variant
func (l *ConfluenceLoader) Type() string {
	return "confluence"
}

// confluencePage is the slice of the content API response the loader needs
type confluencePage struct {
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

// Chunks fetches the page body in storage format, converts it to markdown,
// and returns the normalized segments.
func (l *ConfluenceLoader) Chunks(ctx context.Context) ([]models.RawChunk, error) {
	page, err := l.fetchPage(ctx)
	if err != nil {
		return nil, &common.ExtractionError{Source: l.pageID, Err: err}
	}

	text := htmlToMarkdown(page.Body.Storage.Value, l.config.BaseURL, l.deps.Logger)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	metadata := models.ChunkMetadata{
		Source:       l.pageID,
		Type:         l.Type(),
		UniqueFileID: l.pageID,
		Extra:        map[string]string{"title": page.Title},
	}
	return buildChunks(l.deps.Splitter, text, metadata), nil
}

func (l *ConfluenceLoader) fetchPage(ctx context.Context) (*confluencePage, error) {
	url := fmt.Sprintf("%s/wiki/rest/api/content/%s?expand=body.storage", strings.TrimSuffix(l.config.BaseURL, "/"), l.pageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(l.config.User, l.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var page confluencePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode page response: %w", err)
	}
	return &page, nil
}
