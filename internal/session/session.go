// Package session sequences retrieval and extraction across a conversation.
//
// The per-turn ordering is a contract: retrieval runs against the user text
// before extraction, so a turn's own disclosures are never visible to the
// turn that made them.
package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/longform-memory/internal/embedding"
	"github.com/rcliao/longform-memory/internal/extract"
	"github.com/rcliao/longform-memory/internal/llm"
	"github.com/rcliao/longform-memory/internal/model"
	"github.com/rcliao/longform-memory/internal/retrieve"
	"github.com/rcliao/longform-memory/internal/store"
)

// DefaultMinConfidence is the retrieval confidence floor when none is given.
const DefaultMinConfidence = 0.5

// Config holds session construction parameters.
type Config struct {
	DBPath    string
	Completer llm.Completer      // optional external model
	Embedder  embedding.Embedder // optional semantic scoring
	Rules     *extract.Rules     // nil means extract.DefaultRules

	TopK          int     // retrieval cap, default 5
	MinConfidence float64 // retrieval floor, default 0.5
	AutoExtract   bool    // extract on every processed turn
	UseModel      bool    // prefer the external model over patterns
	Logger        *zap.Logger
}

// Session owns one conversation: the store, the engines, the turn counter
// and the append-only history.
type Session struct {
	store     *store.SQLiteStore
	extractor *extract.Extractor
	retriever *retrieve.Retriever
	logger    *zap.Logger

	minConfidence float64
	autoExtract   bool
	useModel      bool

	turnCount int
	history   []model.ConversationTurn

	extractionTimes []float64
	retrievalTimes  []float64
	totalExtracted  int
	totalRetrieved  int
}

// TurnResult reports what one processed turn retrieved and extracted.
type TurnResult struct {
	TurnID           int            `json:"turn_id"`
	Retrieved        []model.Memory `json:"retrieved_memories"`
	Extracted        []model.Memory `json:"extracted_memories"`
	RetrievalTimeMs  float64        `json:"retrieval_time_ms"`
	ExtractionTimeMs float64        `json:"extraction_time_ms"`
}

// New opens the store and wires the engines.
func New(cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rules := extract.DefaultRules()
	if cfg.Rules != nil {
		rules = *cfg.Rules
	}

	minConfidence := cfg.MinConfidence
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}

	return &Session{
		store:         st,
		extractor:     extract.New(rules, cfg.Completer, logger),
		retriever:     retrieve.New(st, cfg.Embedder, cfg.TopK, logger),
		logger:        logger,
		minConfidence: minConfidence,
		autoExtract:   cfg.AutoExtract,
		useModel:      cfg.UseModel,
	}, nil
}

// ProcessTurn advances the turn counter, retrieves relevant memories for
// the user text, then extracts and saves new candidates, and finally
// appends an immutable turn record. Retrieval runs before extraction on
// purpose: new facts become visible from the next turn on.
func (s *Session) ProcessTurn(ctx context.Context, userMsg, assistantMsg string) (*TurnResult, error) {
	s.turnCount++

	result := &TurnResult{TurnID: s.turnCount}

	start := time.Now()
	retrieved, err := s.retriever.Retrieve(ctx, userMsg, s.turnCount, retrieve.Options{
		MinConfidence: s.minConfidence,
	})
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		s.logger.Warn("retrieval failed", zap.Int("turn", s.turnCount), zap.Error(err))
		retrieved = nil
	}
	result.Retrieved = retrieved
	result.RetrievalTimeMs = elapsed
	s.retrievalTimes = append(s.retrievalTimes, elapsed)
	s.totalRetrieved++

	if s.autoExtract {
		start = time.Now()
		extracted := s.extractor.Extract(ctx, userMsg, assistantMsg, s.turnCount, s.useModel)
		saved := s.store.SaveBatch(ctx, memoryPtrs(extracted))
		elapsed = float64(time.Since(start).Microseconds()) / 1000

		result.Extracted = extracted
		result.ExtractionTimeMs = elapsed
		s.extractionTimes = append(s.extractionTimes, elapsed)
		s.totalExtracted += saved
		if saved < len(extracted) {
			s.logger.Warn("partial batch save",
				zap.Int("turn", s.turnCount),
				zap.Int("saved", saved),
				zap.Int("candidates", len(extracted)))
		}
	}

	s.history = append(s.history, model.ConversationTurn{
		TurnID:            s.turnCount,
		UserMessage:       userMsg,
		AssistantMessage:  assistantMsg,
		Timestamp:         time.Now(),
		ExtractedMemories: memoryIDs(result.Extracted),
		RetrievedMemories: memoryIDs(result.Retrieved),
	})

	return result, nil
}

// Retrieve runs a query against the current turn counter without advancing
// it. Types and minConfidence of zero fall back to the session defaults.
func (s *Session) Retrieve(ctx context.Context, query string, types []string, minConfidence float64) ([]model.Memory, error) {
	if minConfidence == 0 {
		minConfidence = s.minConfidence
	}
	return s.retriever.Retrieve(ctx, query, s.turnCount, retrieve.Options{
		Types:         types,
		MinConfidence: minConfidence,
	})
}

// CurrentTurn returns the turn counter.
func (s *Session) CurrentTurn() int { return s.turnCount }

// History returns the recorded turns, oldest first.
func (s *Session) History() []model.ConversationTurn { return s.history }

// Store exposes the underlying store for ops commands.
func (s *Session) Store() *store.SQLiteStore { return s.store }

// Retriever exposes the retrieval engine for type and window queries.
func (s *Session) Retriever() *retrieve.Retriever { return s.retriever }

// Reset clears the in-memory session state. The database is untouched.
func (s *Session) Reset() {
	s.turnCount = 0
	s.history = nil
	s.extractionTimes = nil
	s.retrievalTimes = nil
	s.totalExtracted = 0
	s.totalRetrieved = 0
}

// Close shuts down the underlying store.
func (s *Session) Close() error {
	return s.store.Close()
}

func memoryPtrs(mems []model.Memory) []*model.Memory {
	out := make([]*model.Memory, len(mems))
	for i := range mems {
		out[i] = &mems[i]
	}
	return out
}

func memoryIDs(mems []model.Memory) []string {
	if len(mems) == 0 {
		return nil
	}
	ids := make([]string, len(mems))
	for i, m := range mems {
		ids[i] = m.ID
	}
	return ids
}
