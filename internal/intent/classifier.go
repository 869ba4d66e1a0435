// Package intent classifies free-text user requests into structured
// operations. The classifier's output is treated downstream as
// adversarial-but-well-intentioned: field names, operators, and values all
// pass through the normalizer and validator before any backend call.
package intent

import (
	"context"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// Classifier turns one user message plus conversation history into a
// structured Intent.
type Classifier interface {
	Classify(ctx context.Context, message string, history []model.ChatMessage) (model.Intent, error)
}

// FallbackIntent is what the agent proceeds with when classification
// itself fails: a low-confidence query, so the user at least gets asked
// which model they mean.
func FallbackIntent() model.Intent {
	return model.Intent{
		Type:       model.IntentQuery,
		Confidence: 0.1,
		Reasoning:  "classifier unavailable, defaulting to query",
	}
}
