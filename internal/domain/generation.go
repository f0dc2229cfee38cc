package domain

import "context"

// Generator is the chat-style text generation contract.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}

// SearchDecision is the planner's verdict on whether a query needs
// document retrieval. Undetermined is a first-class outcome: ambiguous
// model output must not be silently coerced.
type SearchDecision int

const (
	// SearchUndetermined means the planner output could not be parsed.
	SearchUndetermined SearchDecision = iota
	// SearchRequired means the query needs document retrieval.
	SearchRequired
	// SearchNotRequired means the query can be answered directly.
	SearchNotRequired
)

// String returns the decision name for logs.
func (d SearchDecision) String() string {
	switch d {
	case SearchRequired:
		return "required"
	case SearchNotRequired:
		return "not_required"
	default:
		return "undetermined"
	}
}
