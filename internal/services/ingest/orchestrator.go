package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
	"github.com/ternarybob/friday/internal/services/chunker"
	"github.com/ternarybob/friday/internal/services/loaders"
)

// Options selects the ingestion mode. Default is additive: sources already
// in the store are skipped. Sync additionally removes documents no longer
// present in any datasource. Hard re-ingests everything from scratch.
type Options struct {
	Sync bool
	Hard bool
}

// Report summarizes one ingestion run
type Report struct {
	Ingested []string
	Skipped  []string
	Deleted  []string
	Failed   map[string]error
}

// Orchestrator drives ingestion runs: it discovers sources from the
// datasource directory and list files, runs each source's loader, embeds the
// chunks in batches, and keeps the store's per-file metadata consistent.
type Orchestrator struct {
	config   *common.Config
	store    interfaces.VectorStore
	embedder interfaces.EmbeddingService
	deps     *loaders.Deps
	client   *http.Client
	logger   arbor.ILogger
}

// NewOrchestrator builds an orchestrator and its shared loader dependencies
func NewOrchestrator(config *common.Config, store interfaces.VectorStore, embedder interfaces.EmbeddingService, pdf interfaces.PDFExtractor, describer interfaces.ImageDescriber, logger arbor.ILogger) (*Orchestrator, error) {
	splitter, err := chunker.NewSplitter(config.Ingest.ChunkSize, config.Ingest.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		config:   config,
		store:    store,
		embedder: embedder,
		deps: &loaders.Deps{
			Splitter:      splitter,
			PDF:           pdf,
			Describer:     describer,
			ExtractImages: config.Ingest.ExtractImages,
			Logger:        logger,
		},
		client: http.DefaultClient,
		logger: logger,
	}, nil
}

// Run executes one ingestion pass over every configured datasource. Sources
// fail independently: an extraction failure is recorded and the run moves
// on, but a dead store connection or a cancelled context aborts the run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	if !o.store.IsActive() {
		return nil, common.ErrNotConnected
	}

	project := o.config.Project.ID
	if err := o.store.Init(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	existing, err := o.store.ListIngestedFileIDs(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingested documents: %w", err)
	}
	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	sources, err := o.discoverSources()
	if err != nil {
		return nil, err
	}

	report := &Report{Failed: make(map[string]error)}
	seen := make(map[string]bool, len(sources))

	for _, loader := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		id := loader.UniqueID()
		if seen[id] {
			continue
		}
		seen[id] = true

		if existingSet[id] && !opts.Hard {
			o.logger.Debug().Str("file_id", id).Msg("Already ingested, skipping")
			report.Skipped = append(report.Skipped, id)
			continue
		}
		if existingSet[id] && opts.Hard {
			if err := o.store.DeleteFile(ctx, id, project); err != nil {
				return report, fmt.Errorf("failed to remove %s before re-ingest: %w", id, err)
			}
		}

		count, err := o.ingestSource(ctx, loader, project)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, common.ErrNotConnected) {
				return report, err
			}
			o.logger.Warn().Err(err).Str("file_id", id).Msg("Source ingestion failed, continuing")
			report.Failed[id] = err
			continue
		}
		if count == 0 {
			o.logger.Debug().Str("file_id", id).Msg("Source produced no chunks, skipping")
			report.Skipped = append(report.Skipped, id)
			continue
		}

		if err := o.store.SaveFileMeta(ctx, id, count, project); err != nil {
			// Committed chunks must not outlive a failed metadata write
			o.rollback(id, project)
			return report, &common.ConsistencyError{FileID: id, Op: "save metadata", Err: err}
		}
		o.logger.Info().Str("file_id", id).Int("chunks", count).Msg("Source ingested")
		report.Ingested = append(report.Ingested, id)
	}

	// Stale cleanup runs last so a failed source never causes its
	// still-valid older chunks to be removed mid-run
	if opts.Sync || opts.Hard {
		stale := make([]string, 0)
		for _, id := range existing {
			if !seen[id] {
				stale = append(stale, id)
			}
		}
		sort.Strings(stale)
		for _, id := range stale {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := o.store.DeleteFile(ctx, id, project); err != nil {
				return report, fmt.Errorf("failed to delete stale document %s: %w", id, err)
			}
			o.logger.Info().Str("file_id", id).Msg("Stale document removed")
			report.Deleted = append(report.Deleted, id)
		}
	}

	return report, nil
}

// List returns the identity keys of every ingested document
func (o *Orchestrator) List(ctx context.Context) ([]string, error) {
	if !o.store.IsActive() {
		return nil, common.ErrNotConnected
	}
	return o.store.ListIngestedFileIDs(ctx, o.config.Project.ID)
}

// ingestSource runs one loader and streams its chunks through the embedder
// into the store in batches. On a mid-batch failure the document's partial
// chunks are rolled back so no chunks exist without a metadata record.
func (o *Orchestrator) ingestSource(ctx context.Context, loader interfaces.Loader, project string) (int, error) {
	chunks, err := loader.Chunks(ctx)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	batchSize := o.config.Ingest.BatchSize
	total := 0
	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			o.rollback(loader.UniqueID(), project)
			return 0, err
		}

		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.PageContent
		}

		vectors, err := o.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			o.rollback(loader.UniqueID(), project)
			return 0, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			o.rollback(loader.UniqueID(), project)
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		inserts := make([]models.InsertChunk, len(batch))
		for i, chunk := range batch {
			inserts[i] = models.InsertChunk{
				PageContent: chunk.PageContent,
				Metadata:    chunk.Metadata,
				Vector:      vectors[i],
			}
		}

		inserted, err := o.store.InsertChunks(ctx, inserts, project)
		total += inserted
		if err != nil {
			o.rollback(loader.UniqueID(), project)
			return 0, fmt.Errorf("insert batch failed: %w", err)
		}
	}

	return total, nil
}

// rollback removes a document's partial chunks after a failed ingestion so
// the chunk/metadata pairing invariant holds.
func (o *Orchestrator) rollback(fileID, project string) {
	if err := o.store.DeleteFile(context.Background(), fileID, project); err != nil {
		o.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to roll back partial ingestion")
	}
}

// discoverSources builds the loader list in deterministic order: directory
// files sorted by name, then remote URLs in list order, then Confluence
// pages in list order.
func (o *Orchestrator) discoverSources() ([]interfaces.Loader, error) {
	sources := make([]interfaces.Loader, 0)

	dir := o.config.Datasource.Dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read datasource directory: %w", err)
		}
		o.logger.Debug().Str("dir", dir).Msg("Datasource directory does not exist")
	}

	listFiles := map[string]bool{
		o.config.Datasource.FileURLList:        true,
		o.config.Datasource.ConfluencePageList: true,
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || listFiles[entry.Name()] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		sources = append(sources, loaders.NewFileLoader(filepath.Join(dir, name), o.deps))
	}

	urls, err := readListFile(filepath.Join(dir, o.config.Datasource.FileURLList))
	if err != nil {
		return nil, err
	}
	for _, url := range urls {
		sources = append(sources, loaders.NewURLLoader(url, o.config.Datasource.URLAuthHeader, o.client, o.deps))
	}

	pageIDs, err := readListFile(filepath.Join(dir, o.config.Datasource.ConfluencePageList))
	if err != nil {
		return nil, err
	}
	if len(pageIDs) > 0 && !o.config.HasConfluenceCredentials() {
		return nil, &common.ConfigurationError{
			Field:  "confluence",
			Reason: "page list is present but base_url, user, and api_key are not all set",
		}
	}
	for _, pageID := range pageIDs {
		sources = append(sources, loaders.NewConfluenceLoader(pageID, &o.config.Confluence, o.client, o.deps))
	}

	return sources, nil
}

// readListFile reads a newline-delimited list, skipping blanks and comments.
// A missing file is an empty list.
func readListFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read list file %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	entries := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		entries = append(entries, trimmed)
	}
	return entries, nil
}
