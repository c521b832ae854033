package session

import (
	"fmt"
	"strings"

	"github.com/rcliao/longform-memory/internal/model"
)

// Prompt formatting styles.
const (
	StyleNatural    = "natural"
	StyleStructured = "structured"
)

// FormatForPrompt renders retrieved memories for injection into a prompt.
// The natural style reads as first-person context; the structured style
// keeps provenance for debugging.
func FormatForPrompt(memories []model.Memory, style string) string {
	if len(memories) == 0 {
		return ""
	}

	var lines []string

	if style == StyleStructured {
		lines = append(lines, "Relevant context from conversation:")
		for i, m := range memories {
			lines = append(lines, fmt.Sprintf("%d. [%s] %s: %s (turn %d, conf: %.2f)",
				i+1, m.Type, m.Key, m.Value, m.SourceTurn, m.Confidence))
		}
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "Based on what I know about you:")
	for _, m := range memories {
		switch m.Type {
		case model.TypePreference:
			lines = append(lines, "- You prefer "+m.Value)
		case model.TypeFact:
			lines = append(lines, "- "+m.Value)
		case model.TypeCommitment:
			lines = append(lines, "- You have committed to: "+m.Value)
		case model.TypeConstraint:
			lines = append(lines, "- Constraint: "+m.Value)
		case model.TypeInstruction:
			lines = append(lines, "- Standing instruction: "+m.Value)
		default:
			lines = append(lines, fmt.Sprintf("- %s: %s", m.Key, m.Value))
		}
	}
	return strings.Join(lines, "\n")
}
