package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/friday/internal/common"
	"github.com/ternarybob/friday/internal/interfaces"
	"github.com/ternarybob/friday/internal/models"
	"github.com/ternarybob/friday/internal/services/session"
)

// Answer is the result of one conversational turn. Stream delivers the
// response tokens; Sources lists the documents behind the supporting context
// when this turn performed retrieval.
type Answer struct {
	Stream  <-chan string
	Sources []models.SourceDetail
	errs    <-chan error
}

// Err reports a failure that ended the stream early. Call it after Stream is
// drained; it returns nil when the response completed.
func (a *Answer) Err() error {
	if a.errs == nil {
		return nil
	}
	return <-a.errs
}

// Service runs the retrieval-gated query pipeline: resolve the user's
// intent, retrieve supporting context only when the intent calls for new
// information, then stream a grounded completion.
type Service struct {
	config   *common.Config
	llm      interfaces.LLMService
	embedder interfaces.EmbeddingService
	store    interfaces.VectorStore
	memory   *session.MemoryStore
	logger   arbor.ILogger
}

// NewService creates a chat service bound to one session memory store
func NewService(config *common.Config, llm interfaces.LLMService, embedder interfaces.EmbeddingService, store interfaces.VectorStore, memory *session.MemoryStore, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		llm:      llm,
		embedder: embedder,
		store:    store,
		memory:   memory,
		logger:   logger,
	}
}

// Ask runs one conversational turn. The session history is read from the
// memory store; the caller records the user query and the consumed response
// back into it after draining the stream.
func (s *Service) Ask(ctx context.Context, userQuery string) (*Answer, error) {
	if strings.TrimSpace(userQuery) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	history := s.memory.History()

	decision, err := s.updateIntent(ctx, userQuery)
	if err != nil {
		return nil, fmt.Errorf("intent check failed: %w", err)
	}

	var sources []models.SourceDetail
	if decision.NeedRetrieval {
		if err := s.retrieve(ctx, decision.Intent); err != nil {
			return nil, fmt.Errorf("retrieval failed: %w", err)
		}
		sources = models.UniqueSources(s.memory.Context())
	}

	messages := s.compose(userQuery, history)
	stream, errs, err := s.llm.ChatStream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return &Answer{Stream: stream, Sources: sources, errs: errs}, nil
}

// updateIntent resolves the retrieval intent for the query and records it in
// session memory. Runs on every turn; the recorded intent carries forward
// when the model decides the query continues the previous subject.
func (s *Service) updateIntent(ctx context.Context, userQuery string) (models.IntentDecision, error) {
	messages := []models.Message{
		{Role: "system", Content: intentSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("User Query: %q\nPrevious Intent: %q", userQuery, s.memory.Intent())},
	}

	raw, err := s.llm.ChatJSON(ctx, messages)
	if err != nil {
		return models.IntentDecision{}, err
	}

	var decision models.IntentDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		// An unparsable decision falls back to treating the query as a
		// fresh intent so the user still gets a grounded answer
		s.logger.Warn().Err(err).Str("response", raw).Msg("Intent decision did not parse, assuming new intent")
		decision = models.IntentDecision{NeedRetrieval: true, Intent: userQuery}
	}
	if decision.Intent == "" {
		decision.Intent = userQuery
	}

	s.memory.SetIntent(decision.Intent)

	s.logger.Debug().
		Bool("need_retrieval", decision.NeedRetrieval).
		Str("intent", decision.Intent).
		Msg("Intent resolved")

	return decision, nil
}

// retrieve embeds the resolved intent, searches the vector store, and
// replaces the session context wholesale with the results. An empty result
// set still replaces the context so stale chunks never leak into the answer.
func (s *Service) retrieve(ctx context.Context, intent string) error {
	queryVector, err := s.embedder.EmbedQuery(ctx, intent)
	if err != nil {
		return err
	}

	scored, err := s.store.SimilaritySearch(ctx, s.config.Project.ID, queryVector, s.config.Retrieval.MinScore, s.config.Retrieval.TopK)
	if err != nil {
		return err
	}

	chunks := make([]models.RawChunk, 0, len(scored))
	for _, result := range scored {
		chunks = append(chunks, models.RawChunk{
			PageContent: result.PageContent,
			Metadata:    result.Metadata,
		})
	}
	s.memory.SetContext(chunks)

	s.logger.Debug().Int("chunks", len(chunks)).Msg("Supporting context replaced")
	return nil
}

// compose assembles the completion request: persona and supporting context
// as the system message, the conversation history verbatim, and the user
// query last.
func (s *Service) compose(userQuery string, history []models.Message) []models.Message {
	systemMessage := s.config.Retrieval.SystemMessage
	if systemMessage == "" {
		systemMessage = common.DefaultSystemMessage
	}

	contextParts := make([]string, 0)
	for _, chunk := range s.memory.Context() {
		contextParts = append(contextParts, chunk.PageContent)
	}
	systemMessage = systemMessage + "\n\nSupporting context: " + strings.Join(contextParts, "; ")

	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{Role: "system", Content: systemMessage})
	messages = append(messages, history...)
	messages = append(messages, models.Message{Role: "user", Content: userQuery})
	return messages
}
