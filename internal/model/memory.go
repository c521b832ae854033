// Package model defines the core memory data types.
package model

import "time"

// Memory type tags.
const (
	TypePreference  = "preference"
	TypeFact        = "fact"
	TypeEntity      = "entity"
	TypeConstraint  = "constraint"
	TypeCommitment  = "commitment"
	TypeInstruction = "instruction"
)

// ValidTypes are the allowed memory types.
var ValidTypes = map[string]bool{
	TypePreference:  true,
	TypeFact:        true,
	TypeEntity:      true,
	TypeConstraint:  true,
	TypeCommitment:  true,
	TypeInstruction: true,
}

// AllTypes returns the closed set of memory types.
func AllTypes() []string {
	return []string{
		TypePreference,
		TypeFact,
		TypeEntity,
		TypeConstraint,
		TypeCommitment,
		TypeInstruction,
	}
}

// Memory represents a single remembered fact extracted from conversation.
// The embedding lives only in the store's volatile side-table and is never
// serialized with the durable record.
type Memory struct {
	ID               string            `json:"memory_id"`
	Type             string            `json:"type"`
	Key              string            `json:"key"`
	Value            string            `json:"value"`
	SourceTurn       int               `json:"source_turn"`
	Confidence       float64           `json:"confidence"`
	CreatedAt        time.Time         `json:"created_at"`
	LastAccessedTurn *int              `json:"last_accessed_turn,omitempty"`
	AccessCount      int               `json:"access_count"`
	Embedding        []float32         `json:"-"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Active           bool              `json:"active"`
}

// ConversationTurn represents one user/assistant exchange. Turns are created
// once by the session and appended to an append-only history.
type ConversationTurn struct {
	TurnID            int       `json:"turn_id"`
	UserMessage       string    `json:"user_message"`
	AssistantMessage  string    `json:"assistant_message,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	ExtractedMemories []string  `json:"extracted_memories,omitempty"`
	RetrievedMemories []string  `json:"retrieved_memories,omitempty"`
}
