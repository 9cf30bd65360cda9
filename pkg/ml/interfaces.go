package ml

import (
	"context"
)

// ============================================================================
// SHARED INTERFACES FOR SCAM DETECTION AND ENGAGEMENT
// ============================================================================
// The external language model is an external capability: a function from a
// system instruction plus conversation context to a reply string. Nothing in
// this package holds hidden conversational state inside the model - history
// is passed explicitly on every call.

// ChatMessage is a single turn passed to the model.
// Role is "system", "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the external model call consumed by the scorer and the
// persona engine. Implementations must honor ctx cancellation; callers
// bound every call with the configured timeout.
type Completer interface {
	// Complete sends system instructions plus conversation messages and
	// returns the raw reply text. Fails with ErrUpstreamTimeout or
	// ErrUpstreamUnavailable; callers degrade, they do not propagate.
	Complete(ctx context.Context, system string, msgs []ChatMessage) (string, error)

	// CompleteCreative is Complete with sampling tuned for natural
	// dialogue instead of deterministic classification.
	CompleteCreative(ctx context.Context, system string, msgs []ChatMessage) (string, error)

	// Ready reports whether the completer is configured to make calls.
	Ready() bool
}

// SemanticAnalyzer defines optional embedding-similarity scam detection.
// Uses chromem-go with a pluggable embedding source.
type SemanticAnalyzer interface {
	// Detect analyzes text for similarity to known scam openers.
	Detect(ctx context.Context, text string) (*SemanticResult, error)

	// IsReady returns true once seed phrases are embedded and loaded.
	IsReady() bool
}

// SemanticResult contains results from embedding-similarity analysis.
type SemanticResult struct {
	Score       float32 `json:"score"`        // Similarity score (0.0-1.0)
	Category    string  `json:"category"`     // Scam category of the best match
	IsThreat    bool    `json:"is_threat"`    // True if score >= threshold
	MatchedText string  `json:"matched_text"` // The seed phrase that matched
}
