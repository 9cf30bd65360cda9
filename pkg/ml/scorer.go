package ml

import (
	"fmt"
	"strings"
)

// HeuristicScorer scores a message against the scam indicator lexicon.
// It is the always-available detection layer: no network, no model, and it
// becomes the sole signal when the model call degrades.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the lexicon-backed scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Evaluate scores text in [0,1] and returns the heuristic signal with the
// matched indicators as ordered reasons.
func (hs *HeuristicScorer) Evaluate(text string) Signal {
	sig := NewSignal(SignalSourceHeuristic)
	lower := strings.ToLower(text)

	score := 0.0
	var matched []string

	for _, kw := range highConfidenceKeywords {
		if containsKeyword(lower, kw) {
			score += highKeywordScore
			matched = append(matched, kw)
		}
	}
	for _, kw := range mediumConfidenceKeywords {
		if containsKeyword(lower, kw) {
			score += mediumKeywordScore
			matched = append(matched, kw)
		}
	}

	if len(matched) > 0 {
		// Cap the reason string; scam scripts can hit a dozen keywords.
		if len(matched) > 3 {
			matched = matched[:3]
		}
		sig.AddReason(fmt.Sprintf("scam keywords: %s", strings.Join(matched, ", ")))
	}

	if reUrgency.MatchString(text) {
		score += urgencyBoost
		sig.AddReason("urgency pressure")
	}
	if reMoneyAmount.MatchString(text) {
		score += moneyAmountBoost
		sig.AddReason("money amount mentioned")
	}
	if reSensitiveAsk.MatchString(text) {
		score += sensitiveAskBoost
		sig.AddReason("asks for sensitive details")
	}

	if score > 1.0 {
		score = 1.0
	}
	sig.Score = score
	return sig
}

// containsKeyword reports whether kw occurs in text on word boundaries.
// Plain substring search fires "won" inside "wonderful" and "pin" inside
// "spinning". text and the lexicon are already lowercase.
func containsKeyword(text, kw string) bool {
	start := 0
	for {
		i := strings.Index(text[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(kw)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
