// Package llm provides the optional external-model collaborator used by the
// extraction engine. The engine works without one; pattern extraction is the
// fallback for every model failure.
package llm

import "context"

// Completer produces a text completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
