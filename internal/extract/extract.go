// Package extract converts dialogue turns into candidate memory records.
//
// Two mutually exclusive strategies exist: a deterministic pattern scanner
// (the default) and an external-model strategy that asks a Completer for a
// JSON array of memories. Model errors always degrade to the pattern path;
// malformed model output yields no candidates. Persistence is the caller's
// responsibility.
package extract

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/longform-memory/internal/llm"
	"github.com/rcliao/longform-memory/internal/model"
)

const extractionPrompt = `You are a memory extraction system. Extract ONLY important information worth remembering.

Memory Types:
- preference: User preferences (e.g., "prefers calls after 11 AM")
- fact: Facts about the user (e.g., "lives in San Francisco")
- entity: Important people/places (e.g., "mother's name is Sarah")
- constraint: Limitations (e.g., "cannot work weekends")
- commitment: Plans/promises (e.g., "meeting Friday at 2 PM")
- instruction: Standing rules (e.g., "always use formal tone")

Conversation:
User: %s
Assistant: %s

Return JSON array of memories (or [] if nothing important):
[
  {
    "type": "preference",
    "key": "language_preference",
    "value": "Kannada",
    "confidence": 0.95,
    "rationale": "User explicitly stated"
  }
]

Be selective - casual chat doesn't need to be stored.`

// Extractor scans dialogue turns for memorable information.
type Extractor struct {
	rules     Rules
	completer llm.Completer
	logger    *zap.Logger
	entropy   *rand.Rand
}

// New creates an extractor with the given rule set. The completer is
// optional; without one the pattern strategy is always used.
func New(rules Rules, completer llm.Completer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		rules:     rules,
		completer: completer,
		logger:    logger,
		entropy:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Extract returns zero or more candidate memories for one turn. Only the
// user text is scanned; the assistant text is passed to the external model
// for context but never pattern-matched.
func (e *Extractor) Extract(ctx context.Context, userMsg, assistantMsg string, turn int, useModel bool) []model.Memory {
	if useModel && e.completer != nil {
		return e.extractWithModel(ctx, userMsg, assistantMsg, turn)
	}
	return e.extractWithPatterns(userMsg, turn)
}

func (e *Extractor) extractWithPatterns(userMsg string, turn int) []model.Memory {
	var memories []model.Memory

	if len(strings.Fields(userMsg)) < e.rules.MinWords {
		return memories
	}

	text := strings.ToLower(userMsg)
	for _, phrase := range e.rules.BoringPhrases {
		if strings.Contains(text, phrase) {
			return memories
		}
	}

	now := time.Now()

	for _, match := range matchFamily(text, e.rules.Preference) {
		memories = append(memories, model.Memory{
			ID:         patternID("pref_"+match, turn),
			Type:       e.rules.Preference.Type,
			Key:        "preference_" + keyFragment(match),
			Value:      match,
			SourceTurn: turn,
			Confidence: e.rules.Preference.Confidence,
			CreatedAt:  now,
		})
	}

	for _, match := range matchFamily(text, e.rules.Fact) {
		memories = append(memories, model.Memory{
			ID:         patternID("fact_"+match, turn),
			Type:       e.rules.Fact.Type,
			Key:        "user_" + keyFragment(match),
			Value:      match,
			SourceTurn: turn,
			Confidence: e.rules.Fact.Confidence,
			CreatedAt:  now,
		})
	}

	for _, match := range matchFamily(text, e.rules.Commitment) {
		memories = append(memories, model.Memory{
			ID:         patternID("commitment_"+match, turn),
			Type:       e.rules.Commitment.Type,
			Key:        fmt.Sprintf("commitment_%d", len(memories)),
			Value:      match,
			SourceTurn: turn,
			Confidence: e.rules.Commitment.Confidence,
			CreatedAt:  now,
		})
	}

	return memories
}

// matchFamily collects every match of every pattern in the family.
// Patterns with multiple capture groups yield the groups joined by a space.
func matchFamily(text string, fam Family) []string {
	var out []string
	for _, re := range fam.Patterns {
		for _, sub := range re.FindAllStringSubmatch(text, -1) {
			match := strings.TrimSpace(strings.Join(sub[1:], " "))
			if len(match) > fam.MinMatchLen {
				out = append(out, match)
			}
		}
	}
	return out
}

// modelItem is one entry of the external model's JSON array.
type modelItem struct {
	Type       string   `json:"type"`
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

func (e *Extractor) extractWithModel(ctx context.Context, userMsg, assistantMsg string, turn int) []model.Memory {
	prompt := fmt.Sprintf(extractionPrompt, userMsg, assistantMsg)

	resp, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("model extraction failed, using patterns", zap.Error(err))
		return e.extractWithPatterns(userMsg, turn)
	}

	items, ok := parseModelResponse(resp)
	if !ok {
		e.logger.Warn("unparseable model output, no candidates",
			zap.Int("turn", turn), zap.Int("response_len", len(resp)))
		return nil
	}

	now := time.Now()
	var memories []model.Memory
	for _, it := range items {
		if it.Key == "" || it.Value == "" || !model.ValidTypes[it.Type] {
			continue
		}
		confidence := 0.8
		if it.Confidence != nil {
			confidence = clamp01(*it.Confidence)
		}
		memories = append(memories, model.Memory{
			ID:         e.newID(),
			Type:       it.Type,
			Key:        it.Key,
			Value:      it.Value,
			SourceTurn: turn,
			Confidence: confidence,
			CreatedAt:  now,
			Metadata:   map[string]string{"rationale": it.Rationale},
		})
	}
	return memories
}

func parseModelResponse(resp string) ([]modelItem, bool) {
	raw := jsonArrayRe.FindString(resp)
	if raw == "" {
		return nil, false
	}
	var items []modelItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	return items, true
}

// patternID derives a practically unique id from the match, the turn index
// and the generation timestamp, without a central counter.
func patternID(seed string, turn int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%d", seed, turn, time.Now().UnixNano())))
	return "mem_" + hex.EncodeToString(sum[:])[:8]
}

func (e *Extractor) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), e.entropy).String()
}

// keyFragment shortens a match for use as a key label.
func keyFragment(match string) string {
	if len(match) > 20 {
		match = match[:20]
	}
	return strings.ReplaceAll(match, " ", "_")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
