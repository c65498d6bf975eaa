package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"hotline/models"
)

// ChatStore is the persistence surface the chat pipeline writes to. A nil
// store disables persistence without changing pipeline behavior.
type ChatStore interface {
	SaveSession(sessionID, source string) error
	SaveMessage(sessionID, question, answer string, parts, filesUsed []string, source string) (int64, error)
	SaveError(sessionID, question, message, source string) error
}

// Typing delay bounds per delivered part, in milliseconds.
const (
	typingDelayPerChar = 20
	minTypingDelay     = 800
	maxTypingDelay     = 4000
)

// Chatbot runs the full question-to-answer pipeline: retrieval, prompt
// assembly, generation, relevance verification, citation, splitting, history
// and persistence.
type Chatbot struct {
	ranker    *RelevanceRanker
	sessions  SessionStore
	prompts   *PromptAssembler
	generator Completer
	gate      *RelevanceGate
	citations *CitationBuilder
	splitter  *MessageSplitter
	store     ChatStore
	trending  *TrendingService

	model     string
	maxTokens int
	maxTurns  int
	topK      int
}

// ChatbotConfig bundles the pipeline defaults a request can override.
type ChatbotConfig struct {
	Model     string
	MaxTokens int
	MaxTurns  int
	TopK      int
}

// NewChatbot wires the pipeline. store and trending may be nil; the pipeline
// then skips persistence and trending refresh.
func NewChatbot(
	ranker *RelevanceRanker,
	sessions SessionStore,
	prompts *PromptAssembler,
	generator Completer,
	gate *RelevanceGate,
	citations *CitationBuilder,
	splitter *MessageSplitter,
	store ChatStore,
	trending *TrendingService,
	cfg ChatbotConfig,
) *Chatbot {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 6000
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 10
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	return &Chatbot{
		ranker:    ranker,
		sessions:  sessions,
		prompts:   prompts,
		generator: generator,
		gate:      gate,
		citations: citations,
		splitter:  splitter,
		store:     store,
		trending:  trending,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		maxTurns:  cfg.MaxTurns,
		topK:      cfg.TopK,
	}
}

// ProcessQuestion runs one exchange through the pipeline and returns the
// split, timed, persisted response. Failures before generation abort the
// request; everything after a successful generation (verification, citation,
// persistence, trending) degrades instead of failing.
func (c *Chatbot) ProcessQuestion(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	source := req.Source
	if source == "" {
		source = "user"
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	performance := make(map[string]int64)
	totalStart := time.Now()

	retrievalStart := time.Now()
	retrieval, err := c.ranker.Retrieve(ctx, req.Question, req.KnowledgeBase, c.topK)
	performance["retrieval_ms"] = time.Since(retrievalStart).Milliseconds()
	if err != nil {
		c.recordError(req.SessionID, req.Question, err, source)
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	window := Window(c.sessions.History(req.SessionID), c.maxTurns)
	messages := c.prompts.Build(retrieval.Context, window, req.Question)

	generationStart := time.Now()
	answer, err := c.generator.Complete(ctx, model, messages, maxTokens)
	performance["generation_ms"] = time.Since(generationStart).Milliseconds()
	if err != nil {
		c.recordError(req.SessionID, req.Question, err, source)
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	// The retrieved file list is always reported; the verifier's verdict
	// controls only whether the citation part is appended. An empty
	// retrieval skips the verifier entirely.
	verificationStart := time.Now()
	filesUsed := retrieval.FilesUsed
	citation := ""
	if len(retrieval.FilesUsed) > 0 {
		if c.gate.Check(ctx, req.Question, retrieval.Context) == Relevant {
			citation = c.citations.Build(filesUsed)
		}
	}
	performance["verification_ms"] = time.Since(verificationStart).Milliseconds()

	splitStart := time.Now()
	parts := c.splitter.SplitWithModel(ctx, answer, DefaultMinParts, DefaultMaxParts)
	if citation != "" {
		parts = append(parts, citation)
	}
	performance["split_ms"] = time.Since(splitStart).Milliseconds()

	c.sessions.AppendExchange(req.SessionID, req.Question, answer)

	messageID := c.persistExchange(req.SessionID, req.Question, parts, filesUsed, source)

	if c.trending != nil {
		go c.refreshTrending(source)
	}

	performance["total_ms"] = time.Since(totalStart).Milliseconds()

	return &models.ChatResponse{
		Answer:       answer,
		FilesUsed:    filesUsed,
		MessageParts: parts,
		Performance:  performance,
		TypingDelays: typingDelays(parts),
		MessageID:    messageID,
	}, nil
}

// ClearHistory empties a session's conversation history. Returns false when
// the session was never seen.
func (c *Chatbot) ClearHistory(sessionID string) bool {
	return c.sessions.Clear(sessionID)
}

// GetStatus returns the service status information
func (c *Chatbot) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"service":     "chatbot",
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"max_turns":   c.maxTurns,
		"top_k":       c.topK,
		"persistence": c.store != nil,
	}
}

// persistExchange stores the exchange and returns the message ID, or -1 when
// persistence is disabled or failed. Storage problems never fail a chat.
func (c *Chatbot) persistExchange(sessionID, question string, parts, filesUsed []string, source string) int64 {
	if c.store == nil {
		return -1
	}

	if err := c.store.SaveSession(sessionID, source); err != nil {
		log.Printf("Failed to save session %s: %v", sessionID, err)
		return -1
	}

	messageID, err := c.store.SaveMessage(sessionID, question, JoinForStorage(parts), parts, filesUsed, source)
	if err != nil {
		log.Printf("Failed to save message for session %s: %v", sessionID, err)
		return -1
	}
	return messageID
}

// recordError persists a pipeline failure; best effort.
func (c *Chatbot) recordError(sessionID, question string, cause error, source string) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveError(sessionID, question, cause.Error(), source); err != nil {
		log.Printf("Failed to record error for session %s: %v", sessionID, err)
	}
}

// refreshTrending recomputes trending questions in the background. The
// goroutine must never take the process down.
func (c *Chatbot) refreshTrending(source string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Trending refresh panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	c.trending.Refresh(ctx, source)
}

// typingDelays computes one simulated typing delay per part, proportional to
// the part's length and clamped to keep delivery responsive.
func typingDelays(parts []string) []int {
	delays := make([]int, len(parts))
	for i, part := range parts {
		d := len(part) * typingDelayPerChar
		if d < minTypingDelay {
			d = minTypingDelay
		}
		if d > maxTypingDelay {
			d = maxTypingDelay
		}
		delays[i] = d
	}
	return delays
}
