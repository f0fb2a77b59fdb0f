package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
)

// GeminiService generates embedding vectors through the Google Gemini API.
// Calls are throttled by a rate limiter so large ingestion runs stay inside
// the API quota.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGeminiService initializes the genai client and validates the embedding
// configuration. The API key comes from config or the GEMINI_API_KEY
// environment override applied during config load.
func NewGeminiService(config *common.Config, logger arbor.ILogger) (*GeminiService, error) {
	if config.Gemini.APIKey == "" {
		return nil, &common.ConfigurationError{
			Field:  "gemini.api_key",
			Reason: "Google API key is required (set gemini.api_key or GEMINI_API_KEY)",
		}
	}
	if config.Gemini.EmbedDimension != config.Storage.VectorDimension {
		return nil, &common.ConfigurationError{
			Field:  "gemini.embed_dimension",
			Reason: fmt.Sprintf("embedding dimension (%d) must match storage vector_dimension (%d)", config.Gemini.EmbedDimension, config.Storage.VectorDimension),
		}
	}

	timeout, err := time.ParseDuration(config.Gemini.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini timeout '%s': %w", config.Gemini.Timeout, err)
	}
	interval, err := time.ParseDuration(config.Gemini.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini rate_limit '%s': %w", config.Gemini.RateLimit, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  &config.Gemini,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: timeout,
	}

	logger.Info().
		Str("embed_model", config.Gemini.EmbedModel).
		Int("embed_dimension", config.Gemini.EmbedDimension).
		Dur("timeout", timeout).
		Msg("Gemini embedding service initialized")

	return service, nil
}

// EmbedDocuments generates one embedding vector per input text, in input
// order. The whole batch is a single API call behind the rate limiter.
func (s *GeminiService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := s.embedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document batch of %d: %w", len(texts), err)
	}
	return vectors, nil
}

// EmbedQuery generates the embedding vector for a retrieval query
func (s *GeminiService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return vectors[0], nil
}

// Dimension returns the configured output dimensionality
func (s *GeminiService) Dimension() int {
	return s.config.EmbedDimension
}

// IsAvailable reports whether the service can serve embedding requests by
// issuing a minimal probe call.
func (s *GeminiService) IsAvailable(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	_, err := s.embedBatch(ctx, []string{"ping"})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Embedding service availability probe failed")
		return false
	}
	return true
}

// embedBatch issues one EmbedContent call for all texts and validates that
// every returned vector has the configured dimension.
func (s *GeminiService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.client == nil {
		return nil, common.ErrNotConnected
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	outputDim := int32(s.config.EmbedDimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := s.client.Models.EmbedContent(callCtx, s.config.EmbedModel, contents, embeddingConfig)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		returned := 0
		if result != nil {
			returned = len(result.Embeddings)
		}
		return nil, fmt.Errorf("API returned %d embeddings for %d texts", returned, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range result.Embeddings {
		if embedding == nil || len(embedding.Values) != s.config.EmbedDimension {
			got := 0
			if embedding != nil {
				got = len(embedding.Values)
			}
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.config.EmbedDimension, got)
		}
		vectors[i] = embedding.Values
	}
	return vectors, nil
}

var _ interfaces.EmbeddingService = (*GeminiService)(nil)
