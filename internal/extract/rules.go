package extract

import (
	"regexp"

	"github.com/rcliao/longform-memory/internal/model"
)

// Family is one pattern family. Every independent match yields a candidate
// memory with the family's fixed confidence.
type Family struct {
	Type        string
	Confidence  float64
	MinMatchLen int // matches at or below this length are discarded
	Patterns    []*regexp.Regexp
}

// Rules is the immutable rule set for pattern extraction. Each engine gets
// its own copy at construction, so tests can run different rule sets side
// by side without shared state.
type Rules struct {
	// MinWords rejects a turn outright when the user text is shorter.
	MinWords int

	// BoringPhrases rejects a turn when its lowercase form contains any entry.
	BoringPhrases []string

	Preference Family
	Fact       Family
	Commitment Family
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		MinWords: 5,
		BoringPhrases: []string{
			"how are you", "how's the weather", "what's the latest",
			"tell me a joke", "what day is it", "what can you help",
			"that's interesting", "thanks", "i see", "okay", "sure",
			"can you explain", "here to help",
		},
		Preference: Family{
			Type:        model.TypePreference,
			Confidence:  0.85,
			MinMatchLen: 3,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?:my |i )prefer (?:to )?(.+?)(?:\.|$|,)`),
				regexp.MustCompile(`(?:always|never) (.+?)(?:\.|$|,)`),
				regexp.MustCompile(`(?:language is|speak|communicate in) ([a-z]+)`),
			},
		},
		Fact: Family{
			Type:        model.TypeFact,
			Confidence:  0.8,
			MinMatchLen: 2,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?:my name is|i am|i'm) ([a-z ]{3,})`),
				regexp.MustCompile(`(?:i live in|i'm from|from) ([a-z ]{3,})`),
				regexp.MustCompile(`(?:i work at|work for) ([a-z ]{3,})`),
				regexp.MustCompile(`allergic to ([a-z]+)`),
				regexp.MustCompile(`(?:i'm|i am) (?:a |an )?([a-z]+ (?:engineer|developer|designer|manager))`),
			},
		},
		Commitment: Family{
			Type:        model.TypeCommitment,
			Confidence:  0.75,
			MinMatchLen: 2,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?:meeting|call|appointment).+?(?:at|@) ([0-9]+\s*(?:am|pm))`),
				regexp.MustCompile(`(?:every|each) ([a-z]+day).+?([0-9]+\s*(?:am|pm))`),
				regexp.MustCompile(`birthday.+?on ([a-z]+ [0-9]+)`),
			},
		},
	}
}
