package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ScamClassifier asks the external model whether a message is a fraud
// attempt. It is one detection layer: its failure produces a degraded
// signal, never a request error.
type ScamClassifier struct {
	completer Completer
}

// ClassificationResult holds the parsed model verdict.
type ClassificationResult struct {
	IsScam     bool    `json:"is_scam"`
	Confidence float64 `json:"confidence"` // 0.0-1.0
	Reason     string  `json:"reason"`
}

// NewScamClassifier wraps a completer. A nil completer yields a classifier
// that always degrades.
func NewScamClassifier(completer Completer) *ScamClassifier {
	return &ScamClassifier{completer: completer}
}

const classifierInstruction = `You are a fraud analyst. Decide whether the latest message is part of a scam attempt.
Common scam types in India include: lottery scams, KYC fraud, OTP fraud, job scams,
loan scams, investment fraud, and impersonation of bank officials.

Respond with ONLY a JSON object in this exact format (no markdown):
{"is_scam": true, "confidence": 0.85, "reason": "brief explanation"}`

// historyWindow bounds how much conversation context goes to the model.
const historyWindow = 5

// Classify sends the message plus recent history to the model and parses
// the JSON verdict. Unparsable output is an upstream failure: the caller
// falls back to heuristics.
func (sc *ScamClassifier) Classify(ctx context.Context, msg string, history []ChatMessage) (*ClassificationResult, error) {
	if sc.completer == nil || !sc.completer.Ready() {
		return nil, ErrUpstreamUnavailable
	}

	var sb strings.Builder
	if len(history) > 0 {
		recent := history
		if len(recent) > historyWindow {
			recent = recent[len(recent)-historyWindow:]
		}
		sb.WriteString("Conversation history:\n")
		for _, m := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Latest message to analyze: %q", msg)

	reply, err := sc.completer.Complete(ctx, classifierInstruction, []ChatMessage{
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, err
	}

	var result ClassificationResult
	if err := json.Unmarshal([]byte(extractJSON(reply)), &result); err != nil {
		return nil, fmt.Errorf("%w: unparsable verdict: %v", ErrUpstreamUnavailable, err)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	return &result, nil
}
