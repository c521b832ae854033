// Package retrieve ranks stored memories against a query.
//
// The composite score is a weighted sum of keyword overlap, optional
// semantic similarity, recency decay, access frequency and extraction
// confidence. Retrieval marks every returned memory as accessed, which
// feeds the frequency factor of later queries: often-surfaced memories
// become more likely to surface again. That feedback loop is part of the
// ranking design, not an accident.
package retrieve

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/longform-memory/internal/embedding"
	"github.com/rcliao/longform-memory/internal/model"
	"github.com/rcliao/longform-memory/internal/store"
)

// Factor weights. When the semantic factor is inapplicable its weight is
// dropped and the rest are renormalized, never zero-padded.
const (
	weightKeyword    = 0.30
	weightSemantic   = 0.30
	weightRecency    = 0.15
	weightFrequency  = 0.10
	weightConfidence = 0.15

	// recencyHalfLife is the turn gap at which the recency factor halves.
	// The slow decay is what keeps turn-1 facts reachable past turn 1000.
	recencyHalfLife = 100.0

	// frequencySaturation is where the log-scaled frequency factor hits 1.
	frequencySaturation = 20.0

	// frequencyBaseline is the floor for never-accessed memories.
	frequencyBaseline = 0.1

	// DefaultMaxResults caps the result set when no override is given.
	DefaultMaxResults = 5
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true,
}

var punctRe = regexp.MustCompile(`[^\w\s]`)

// Options filters a retrieval call.
type Options struct {
	// Types keeps only memories of the listed types. Empty means all.
	Types []string

	// MinConfidence drops memories below the threshold.
	MinConfidence float64
}

// Retriever scores and ranks the store's active memories. It holds no
// persistent state of its own.
type Retriever struct {
	store      store.Store
	embedder   embedding.Embedder
	logger     *zap.Logger
	maxResults int
}

// New creates a retriever. The embedder is optional; without one the
// semantic factor is disabled.
func New(st store.Store, embedder embedding.Embedder, maxResults int, logger *zap.Logger) *Retriever {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		store:      st,
		embedder:   embedder,
		logger:     logger,
		maxResults: maxResults,
	}
}

// Retrieve returns the highest-scoring active memories for the query, at
// most maxResults, best first. Ties keep store read order. Every returned
// memory is marked accessed at currentTurn as a side effect.
func (r *Retriever) Retrieve(ctx context.Context, query string, currentTurn int, opts Options) ([]model.Memory, error) {
	memories, err := r.store.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}

	if len(opts.Types) > 0 {
		keep := make(map[string]bool, len(opts.Types))
		for _, t := range opts.Types {
			keep[t] = true
		}
		filtered := memories[:0]
		for _, m := range memories {
			if keep[m.Type] {
				filtered = append(filtered, m)
			}
		}
		memories = filtered
	}

	filtered := memories[:0]
	for _, m := range memories {
		if m.Confidence >= opts.MinConfidence {
			filtered = append(filtered, m)
		}
	}
	memories = filtered

	if len(memories) == 0 {
		return nil, nil
	}

	queryTokens := tokenize(query)

	var queryVec embedding.Vector
	if r.embedder != nil {
		vec, err := r.embedder.Embed(ctx, query)
		if err != nil {
			r.logger.Warn("query embedding unavailable, semantic factor disabled", zap.Error(err))
		} else {
			queryVec = vec
		}
	}

	scores := make([]float64, len(memories))
	for i := range memories {
		scores[i] = r.score(&memories[i], queryTokens, queryVec, currentTurn)
	}

	order := make([]int, len(memories))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	var top []model.Memory
	for _, idx := range order {
		if len(top) == r.maxResults {
			break
		}
		if scores[idx] <= 0 {
			continue
		}
		top = append(top, memories[idx])
	}

	for _, m := range top {
		if err := r.store.MarkAccessed(ctx, m.ID, currentTurn); err != nil {
			r.logger.Warn("access tracking failed", zap.String("id", m.ID), zap.Error(err))
		}
	}

	return top, nil
}

// GetByType returns memories of one type ranked by the average of recency
// and confidence. No keyword term and no access tracking.
func (r *Retriever) GetByType(ctx context.Context, memType string, currentTurn, limit int) ([]model.Memory, error) {
	memories, err := r.store.FindByType(ctx, memType)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(memories))
	for i := range memories {
		scores[i] = (recencyScore(memories[i].SourceTurn, currentTurn) + memories[i].Confidence) / 2
	}

	order := make([]int, len(memories))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if limit <= 0 {
		limit = r.maxResults
	}
	var out []model.Memory
	for _, idx := range order {
		if len(out) == limit {
			break
		}
		out = append(out, memories[idx])
	}
	return out, nil
}

// GetRecent returns active memories from the last window turns, newest
// first. Pure recency, no scoring.
func (r *Retriever) GetRecent(ctx context.Context, currentTurn, window int) ([]model.Memory, error) {
	memories, err := r.store.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}

	startTurn := currentTurn - window
	if startTurn < 0 {
		startTurn = 0
	}

	var recent []model.Memory
	for _, m := range memories {
		if m.SourceTurn >= startTurn {
			recent = append(recent, m)
		}
	}

	sort.SliceStable(recent, func(a, b int) bool {
		return recent[a].SourceTurn > recent[b].SourceTurn
	})

	if len(recent) > r.maxResults {
		recent = recent[:r.maxResults]
	}
	return recent, nil
}

func (r *Retriever) score(m *model.Memory, queryTokens map[string]bool, queryVec embedding.Vector, currentTurn int) float64 {
	scores := []float64{keywordScore(queryTokens, m)}
	weights := []float64{weightKeyword}

	if len(m.Embedding) > 0 && queryVec != nil {
		scores = append(scores, semanticScore(queryVec, m.Embedding))
		weights = append(weights, weightSemantic)
	}

	scores = append(scores, recencyScore(m.SourceTurn, currentTurn))
	weights = append(weights, weightRecency)

	scores = append(scores, frequencyScore(m.AccessCount))
	weights = append(weights, weightFrequency)

	scores = append(scores, m.Confidence)
	weights = append(weights, weightConfidence)

	return combine(scores, weights)
}

// combine computes the weighted sum after renormalizing the weights to 1.
func combine(scores, weights []float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}
	var sum float64
	for i, s := range scores {
		sum += s * weights[i] / total
	}
	return sum
}

// keywordScore is the Jaccard similarity of the stopword-filtered token
// sets of the query and of key+value. Zero if either set is empty.
func keywordScore(queryTokens map[string]bool, m *model.Memory) float64 {
	memTokens := tokenize(m.Key + " " + m.Value)
	if len(queryTokens) == 0 || len(memTokens) == 0 {
		return 0
	}

	overlap := 0
	for tok := range queryTokens {
		if memTokens[tok] {
			overlap++
		}
	}
	union := len(queryTokens) + len(memTokens) - overlap
	return float64(overlap) / float64(union)
}

// semanticScore rescales cosine similarity from [-1,1] to [0,1].
// Zero vectors yield 0, not 0.5.
func semanticScore(queryVec, memVec embedding.Vector) float64 {
	if embedding.IsZero(queryVec) || embedding.IsZero(memVec) || len(queryVec) != len(memVec) {
		return 0
	}
	return (embedding.CosineSimilarity(queryVec, memVec) + 1) / 2
}

// recencyScore decays exponentially with the turn gap, halving every
// recencyHalfLife turns, clamped to [0,1].
func recencyScore(sourceTurn, currentTurn int) float64 {
	turnsAgo := float64(currentTurn - sourceTurn)
	score := math.Exp(-math.Ln2 / recencyHalfLife * turnsAgo)
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// frequencyScore grows logarithmically with access count, saturating near
// frequencySaturation accesses. Never-accessed memories get a small floor
// so brand-new facts are not buried outright.
func frequencyScore(accessCount int) float64 {
	if accessCount == 0 {
		return frequencyBaseline
	}
	score := math.Log1p(float64(accessCount)) / math.Log1p(frequencySaturation)
	if score > 1 {
		return 1
	}
	return score
}

// tokenize lowercases, strips punctuation and drops stopwords.
func tokenize(text string) map[string]bool {
	text = punctRe.ReplaceAllString(strings.ToLower(text), " ")
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		if !stopwords[w] {
			tokens[w] = true
		}
	}
	return tokens
}
