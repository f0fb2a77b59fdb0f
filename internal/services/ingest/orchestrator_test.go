package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
	"github.com/ternarybob/friday/internal/storage/badger"
)

const testDimension = 3

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Dimension() int                       { return testDimension }
func (f *fakeEmbedder) IsAvailable(ctx context.Context) bool { return true }

func newTestStore(t *testing.T) (interfaces.VectorStore, *badgerhold.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return badger.NewVectorStorageFromStore(store, testDimension, arbor.NewLogger()), store
}

// entryCount reads the persisted per-document chunk count
func entryCount(t *testing.T, raw *badgerhold.Store, project, fileID string) int {
	t.Helper()
	var meta models.FileMeta
	require.NoError(t, raw.Get(project+"/"+fileID, &meta))
	return meta.EntryCount
}

func newTestOrchestrator(t *testing.T, datasourceDir string, store interfaces.VectorStore) *Orchestrator {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Project.ID = "demo"
	config.Datasource.Dir = datasourceDir
	config.Storage.VectorDimension = testDimension
	config.Gemini.EmbedDimension = testDimension
	config.Ingest.ChunkSize = 100
	config.Ingest.ChunkOverlap = 20
	config.Ingest.BatchSize = 2

	orchestrator, err := NewOrchestrator(config, store, &fakeEmbedder{}, nil, nil, arbor.NewLogger())
	require.NoError(t, err)
	return orchestrator
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestRun_IngestThenAdditiveSkip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.txt", "The first document describes the ingestion pipeline in detail.")
	writeFile(t, dir, "beta.txt", "The second document covers retrieval and scoring behavior.")

	store, _ := newTestStore(t)
	orchestrator := newTestOrchestrator(t, dir, store)
	ctx := context.Background()

	report, err := orchestrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha.txt", "beta.txt"}, report.Ingested)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)

	ids, err := orchestrator.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.txt", "beta.txt"}, ids)

	// A second additive run touches nothing
	report, err = orchestrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Ingested)
	assert.ElementsMatch(t, []string{"alpha.txt", "beta.txt"}, report.Skipped)
}

func TestRun_SyncRemovesStaleDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.txt", "Document one stays in the datasource.")
	writeFile(t, dir, "beta.txt", "Document two will be removed before the sync run.")

	store, raw := newTestStore(t)
	orchestrator := newTestOrchestrator(t, dir, store)
	ctx := context.Background()

	_, err := orchestrator.Run(ctx, Options{})
	require.NoError(t, err)
	alphaCount := entryCount(t, raw, "demo", "alpha.txt")
	require.Greater(t, alphaCount, 0)

	require.NoError(t, os.Remove(filepath.Join(dir, "beta.txt")))

	report, err := orchestrator.Run(ctx, Options{Sync: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta.txt"}, report.Deleted)
	assert.Equal(t, []string{"alpha.txt"}, report.Skipped)
	assert.Equal(t, alphaCount, entryCount(t, raw, "demo", "alpha.txt"), "sync must not touch a surviving document's entry count")

	ids, err := orchestrator.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.txt"}, ids)

	// Without sync, stale documents survive
	writeFile(t, dir, "gamma.txt", "A third document arrives later.")
	report, err = orchestrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)
	assert.Equal(t, []string{"gamma.txt"}, report.Ingested)
}

func TestRun_HardReingestsEverything(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.txt", "Original content before the rebuild.")

	store, raw := newTestStore(t)
	orchestrator := newTestOrchestrator(t, dir, store)
	ctx := context.Background()

	_, err := orchestrator.Run(ctx, Options{})
	require.NoError(t, err)

	writeFile(t, dir, "alpha.txt", "Replacement content written before the hard run.")

	report, err := orchestrator.Run(ctx, Options{Hard: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.txt"}, report.Ingested, "hard mode re-ingests documents that already exist")
	assert.Empty(t, report.Skipped)

	results, err := store.SimilaritySearch(ctx, "demo", []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, result := range results {
		assert.Contains(t, result.PageContent, "Replacement content")
	}

	// The entry count after a hard run matches a fresh ingestion of the
	// same content, and matches the chunks actually stored
	assert.Len(t, results, entryCount(t, raw, "demo", "alpha.txt"), "hard mode must not double-count chunks")

	freshDir := t.TempDir()
	writeFile(t, freshDir, "alpha.txt", "Replacement content written before the hard run.")
	freshStore, freshRaw := newTestStore(t)
	_, err = newTestOrchestrator(t, freshDir, freshStore).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, entryCount(t, freshRaw, "demo", "alpha.txt"), entryCount(t, raw, "demo", "alpha.txt"))
}

// metaFailingStore fails every metadata write while delegating everything
// else to the real store
type metaFailingStore struct {
	interfaces.VectorStore
}

func (s *metaFailingStore) SaveFileMeta(ctx context.Context, fileID string, entryCount int, project string) error {
	return errors.New("metadata write failed")
}

func TestRun_MetadataFailureRollsBackChunks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.txt", "A document whose chunks must not outlive a failed metadata write.")

	store, _ := newTestStore(t)
	orchestrator := newTestOrchestrator(t, dir, &metaFailingStore{VectorStore: store})
	ctx := context.Background()

	_, err := orchestrator.Run(ctx, Options{})
	require.Error(t, err)
	var consistencyErr *common.ConsistencyError
	assert.ErrorAs(t, err, &consistencyErr)

	ids, err := store.ListIngestedFileIDs(ctx, "demo")
	require.NoError(t, err)
	assert.Empty(t, ids)

	results, err := store.SimilaritySearch(ctx, "demo", []float32{1, 0, 0}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results, "chunks must not survive without their metadata record")
}

func TestRun_FailedSourceDoesNotAbortRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.txt", "A healthy document alongside a broken remote source.")
	// Port 1 refuses connections, so this URL always fails to fetch
	writeFile(t, dir, "friday.file-urls.txt", "http://127.0.0.1:1/unreachable.txt\n")

	store, _ := newTestStore(t)
	orchestrator := newTestOrchestrator(t, dir, store)
	ctx := context.Background()

	report, err := orchestrator.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.txt"}, report.Ingested)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed, "http://127.0.0.1:1/unreachable.txt")

	var extractionErr *common.ExtractionError
	assert.ErrorAs(t, report.Failed["http://127.0.0.1:1/unreachable.txt"], &extractionErr)
}

func TestRun_ConfluencePagesWithoutCredentials(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "friday.confluence-pages.txt", "12345\n")

	store, _ := newTestStore(t)
	orchestrator := newTestOrchestrator(t, dir, store)

	_, err := orchestrator.Run(context.Background(), Options{})
	require.Error(t, err)
	var cfgErr *common.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestReadListFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n\n# a comment\n  second  \n"), 0644))

	entries, err := readListFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, entries)

	missing, err := readListFile(filepath.Join(dir, "absent.txt"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
