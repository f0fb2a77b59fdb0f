package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
)

// describeImagePrompt asks for a caption dense enough to embed and retrieve.
const describeImagePrompt = "Provide a concise summary of the image for semantic search. Describe the key subjects, any visible text, diagrams, and their relationships."

// supportedImageTypes are the media types the Anthropic vision API accepts.
var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ClaudeService implements the LLMService interface using the Anthropic
// Claude API. It also serves as the image describer for ingestion.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    *anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// convertMessagesToClaude converts []models.Message to Claude MessageParam
// format. System messages are extracted separately for the System parameter;
// the first one wins. Returns the user/assistant messages, the system text,
// and an error when no user message is present.
func convertMessagesToClaude(messages []models.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			// Unknown roles fall through as user
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}

// NewClaudeService creates a new Claude LLM service instance. The API key
// comes from config or the ANTHROPIC_API_KEY environment override applied
// during config load.
func NewClaudeService(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if claudeConfig.APIKey == "" {
		return nil, &common.ConfigurationError{
			Field:  "claude.api_key",
			Reason: "Anthropic API key is required (set claude.api_key or ANTHROPIC_API_KEY)",
		}
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    &client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Float32("temperature", claudeConfig.Temperature).
		Int("max_tokens", maxTokens).
		Msg("Claude LLM service initialized")

	return service, nil
}

// Chat generates a completion response based on the conversation history
func (s *ClaudeService) Chat(ctx context.Context, messages []models.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	response, err := s.generateCompletion(timeoutCtx, messages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Claude chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude chat completion completed")

	return response, nil
}

// ChatJSON generates a completion constrained to a single JSON object. The
// constraint is enforced by instruction and the response is stripped of any
// code fences the model wraps around the object.
func (s *ClaudeService) ChatJSON(ctx context.Context, messages []models.Message) (string, error) {
	response, err := s.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return stripCodeFences(response), nil
}

// ChatStream generates a completion and delivers it incrementally. Tokens
// arrive on the returned channel in response order; the channel closes when
// the response completes, the stream errors, or the context is cancelled. A
// failure that ends the stream early is delivered on the error channel after
// the token channel closes.
func (s *ClaudeService) ChatStream(ctx context.Context, messages []models.Message) (<-chan string, <-chan error, error) {
	if s.client == nil {
		return nil, nil, common.ErrNotConnected
	}

	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert messages to Claude format: %w", err)
	}

	params := s.buildParams(claudeMessages, systemText)

	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)

		streamCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		stream := s.client.Messages.NewStreaming(streamCtx, params)
		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					select {
					case out <- deltaVariant.Text:
					case <-streamCtx.Done():
						errs <- streamCtx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			s.logger.Error().Err(err).Msg("Claude streaming completion failed")
			errs <- fmt.Errorf("streaming completion failed: %w", err)
		}
	}()

	return out, errs, nil
}

// Describe converts image bytes to a text description suitable for semantic
// search. Images with unsupported media types yield an empty string.
func (s *ClaudeService) Describe(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	mediaType := mimetype.Detect(data).String()
	if !supportedImageTypes[mediaType] {
		s.logger.Debug().Str("media_type", mediaType).Msg("Skipping unsupported image type")
		return "", nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(describeImagePrompt),
			),
		},
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("image description failed: %w", err)
	}

	var description strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			description.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(description.String()), nil
}

// HealthCheck verifies the Claude service is operational with a minimal probe
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("Claude client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.generateCompletion(healthCheckCtx, []models.Message{
		{Role: "user", Content: "ping"},
	})
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}

	s.logger.Debug().Str("model", s.config.Model).Msg("Claude LLM service health check passed")
	return nil
}

// Close releases resources and performs cleanup operations
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude LLM service")
	// Claude client doesn't require explicit cleanup
	s.client = nil
	return nil
}

func (s *ClaudeService) buildParams(claudeMessages []anthropic.MessageParam, systemText string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}
	return params
}

func (s *ClaudeService) generateCompletion(ctx context.Context, messages []models.Message) (string, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Claude format: %w", err)
	}

	resp, err := s.client.Messages.New(ctx, s.buildParams(claudeMessages, systemText))
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return response.String(), nil
}

// stripCodeFences removes a surrounding markdown code fence so the payload
// parses as bare JSON.
func stripCodeFences(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var _ interfaces.LLMService = (*ClaudeService)(nil)
var _ interfaces.ImageDescriber = (*ClaudeService)(nil)
