package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ragchat/internal/ai"
	"ragchat/internal/model"
	"ragchat/internal/repository"
	"ragchat/internal/rerank"
)

var (
	ErrSessionNotFound = errors.New("chat session not found or inactive")
	ErrEmptyQuery      = errors.New("query is empty")
	ErrEmptyGeneration = errors.New("model produced no output")
	ErrInvalidInput    = errors.New("invalid input")
)

// NoRelevantDocuments is the context handed to the model when retrieval or
// reranking yields nothing. An empty knowledge base does not fail a turn.
const NoRelevantDocuments = "No relevant documents found."

const systemInstruction = "Use the following context to answer the question."

// Searcher is the retrieval slice of the vector store the engine depends on.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]model.Document, error)
}

// Reranker reorders candidates by relevance; swappable so the label-parsing
// strategy can be replaced without touching the engine.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []model.Document, topN int) ([]model.Document, error)
}

// Generator produces model output for an ordered message list, either in one
// call or as an incremental stream.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
	Stream(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// AuditSink receives one record per completed turn. Implemented by the audit
// repository (synchronous) and the RabbitMQ publisher (asynchronous).
type AuditSink interface {
	Append(ctx context.Context, record *model.AuditRecord) error
}

// TranscriptCache is optional; nil disables caching.
type TranscriptCache interface {
	Get(ctx context.Context, sessionID uint) ([]model.ChatMessage, bool, error)
	Set(ctx context.Context, sessionID uint, messages []model.ChatMessage) error
	Delete(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// RetrievalConfig controls the retrieve-wide/rerank-narrow skew. Rerank off
// means candidates are fetched at TopN directly; it is a flag, not a second
// code path.
type RetrievalConfig struct {
	RetrieveK int
	TopN      int
	Rerank    bool
}

// ChatService orchestrates chat turns: session validation, transcript
// recording, retrieval, reranking, prompting, streaming, and auditing. One
// turn is one sequential pipeline; concurrent turns on the same session are
// not serialized here and may interleave transcript writes.
type ChatService struct {
	sessions  *repository.SessionRepository
	messages  *repository.MessageRepository
	audit     AuditSink
	store     Searcher
	reranker  Reranker
	generator Generator
	cache     TranscriptCache
	retrieval RetrievalConfig
	logger    *slog.Logger
}

func NewChatService(
	sessions *repository.SessionRepository,
	messages *repository.MessageRepository,
	audit AuditSink,
	store Searcher,
	reranker Reranker,
	generator Generator,
	cache TranscriptCache,
	retrieval RetrievalConfig,
	logger *slog.Logger,
) *ChatService {
	if retrieval.RetrieveK <= 0 {
		retrieval.RetrieveK = 25
	}
	if retrieval.TopN <= 0 {
		retrieval.TopN = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		sessions:  sessions,
		messages:  messages,
		audit:     audit,
		store:     store,
		reranker:  reranker,
		generator: generator,
		cache:     cache,
		retrieval: retrieval,
		logger:    logger,
	}
}

func (s *ChatService) CreateSession(ctx context.Context) (*model.ChatSession, error) {
	return s.sessions.Create(ctx)
}

func (s *ChatService) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	return s.sessions.ListActive(ctx)
}

// DeleteSession soft-deletes the session. History rows stay in storage but
// become unreachable through the turn API.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID uint) error {
	session, err := s.sessions.GetActive(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.sessions.SoftDelete(ctx, sessionID); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, sessionID)
	}
	return nil
}

// ListMessages returns the session transcript. An empty transcript on an
// active session is a valid result; an inactive session is ErrSessionNotFound.
func (s *ChatService) ListMessages(ctx context.Context, sessionID uint) ([]model.ChatMessage, error) {
	session, err := s.sessions.GetActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.transcript(ctx, sessionID)
}

// TurnResult reports a completed turn after the stream has been fully
// forwarded through onChunk.
type TurnResult struct {
	Answer    string `json:"answer"`
	Context   string `json:"context"`
	LatencyMS int64  `json:"latency_ms"`
}

// StreamTurn runs one chat turn, forwarding each model increment to onChunk
// as it arrives. The user message is committed before retrieval and is not
// rolled back on later failure; the assistant message and the audit record
// are written only after the stream completes.
func (s *ChatService) StreamTurn(
	ctx context.Context,
	sessionID uint,
	query string,
	topK int,
	onChunk func(string) error,
) (*TurnResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.retrieval.TopN
	}

	session, err := s.sessions.GetActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	// The transcript must reflect the question even if generation fails.
	if _, err := s.messages.Append(ctx, sessionID, query, model.SenderUser); err != nil {
		return nil, err
	}
	s.invalidate(ctx, sessionID)

	contextBlock, err := s.retrieveContext(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	transcript, err := s.transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(transcript, contextBlock, query)

	answer, err := s.generator.Stream(ctx, prompt, onChunk)
	if err != nil {
		return nil, fmt.Errorf("stream generation failed: %w", err)
	}
	if answer == "" {
		return nil, ErrEmptyGeneration
	}

	if _, err := s.messages.Append(ctx, sessionID, answer, model.SenderAssistant); err != nil {
		return nil, err
	}
	s.invalidate(ctx, sessionID)

	latency := time.Since(start).Milliseconds()
	record := &model.AuditRecord{
		ChatID:        &sessionID,
		Question:      query,
		Response:      answer,
		RetrievedDocs: contextBlock,
		LatencyMS:     latency,
		Timestamp:     time.Now(),
	}
	if err := s.audit.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("audit turn failed: %w", err)
	}

	s.logger.Info("turn completed",
		"session_id", sessionID,
		"latency_ms", latency,
		"answer_len", len(answer),
	)

	return &TurnResult{Answer: answer, Context: contextBlock, LatencyMS: latency}, nil
}

// Answer is the sessionless variant: single retrieval, no reranking, no
// history and no audit trail. It returns the complete generation.
func (s *ChatService) Answer(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	docs, err := s.store.Search(ctx, query, s.retrieval.TopN)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	contextBlock := joinContext(docs)

	messages := []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: systemInstruction},
		{Role: ai.RoleUser, Content: contextQuestion(contextBlock, query)},
	}
	answer, err := s.generator.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", ErrEmptyGeneration
	}
	return answer, nil
}

// retrieveContext fetches candidates and optionally reranks them. Empty
// retrieval and empty rerank results degrade to the sentinel; a rerank parse
// failure aborts the turn.
func (s *ChatService) retrieveContext(ctx context.Context, query string, topK int) (string, error) {
	k := topK
	if s.retrieval.Rerank && s.reranker != nil {
		k = s.retrieval.RetrieveK
	}

	candidates, err := s.store.Search(ctx, query, k)
	if err != nil {
		return "", fmt.Errorf("retrieve candidates failed: %w", err)
	}
	if len(candidates) == 0 {
		return NoRelevantDocuments, nil
	}

	docs := candidates
	if s.retrieval.Rerank && s.reranker != nil {
		docs, err = s.reranker.Rerank(ctx, query, candidates, topK)
		if err != nil {
			if errors.Is(err, rerank.ErrNoCandidates) {
				return NoRelevantDocuments, nil
			}
			return "", fmt.Errorf("rerank failed: %w", err)
		}
	} else if len(docs) > topK {
		docs = docs[:topK]
	}

	if len(docs) == 0 {
		return NoRelevantDocuments, nil
	}
	return joinContext(docs), nil
}

// transcript reads the session history, through the cache when it is clean.
func (s *ChatService) transcript(ctx context.Context, sessionID uint) ([]model.ChatMessage, error) {
	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.Get(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messages.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.cache.Set(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) invalidate(ctx context.Context, sessionID uint) {
	if s.cache == nil {
		return
	}
	_ = s.cache.MarkDirty(ctx, sessionID)
	_ = s.cache.Delete(ctx, sessionID)
}

// buildPrompt replays the full transcript oldest first, then closes with one
// user turn carrying the retrieved context and the question. History is never
// truncated here; the unbounded replay cost is deliberate.
func buildPrompt(transcript []model.ChatMessage, contextBlock, query string) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(transcript)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: systemInstruction})
	for _, m := range transcript {
		role := ai.RoleAssistant
		if m.Sender == model.SenderUser {
			role = ai.RoleUser
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: m.Message})
	}
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: contextQuestion(contextBlock, query)})
	return messages
}

func contextQuestion(contextBlock, query string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)
}

func joinContext(docs []model.Document) string {
	if len(docs) == 0 {
		return NoRelevantDocuments
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
