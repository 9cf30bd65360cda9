// Package session owns per-conversation state and orchestrates one
// request-response cycle: append, extract, score, reply. Each session is
// processed one request at a time; different conversations proceed fully
// in parallel.
package session

import (
	"time"

	"github.com/decoynet/hivetrap/pkg/patterns"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderScammer Sender = "scammer"
	SenderAgent   Sender = "agent"
)

// Message is one turn of the conversation. Immutable once appended.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// EngagementMetrics summarizes how long the decoy held the scammer.
type EngagementMetrics struct {
	TurnCount         int     `json:"turn_count"`
	DurationSeconds   float64 `json:"engagement_duration_seconds"`
	MessagesExchanged int     `json:"messages_exchanged"`
}

// ConversationSession is the full per-conversation state. JSON tags keep
// it serializable for the Redis-backed store; the in-memory store holds
// it directly.
type ConversationSession struct {
	ID             string     `json:"id"`
	Messages       []Message  `json:"messages"`
	Intelligence   IntelState `json:"intelligence"`
	TurnCount      int        `json:"turn_count"`
	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	Active         bool       `json:"active"`

	// Running scoring state.
	ScamDetected  bool    `json:"scam_detected"`
	MaxConfidence float64 `json:"max_confidence"`

	// Termination policy counters.
	TurnsSinceNewIntel  int `json:"turns_since_new_intel"`
	TurnsBelowThreshold int `json:"turns_below_threshold"`
}

// IntelState is the serializable form of accumulated intelligence.
type IntelState map[string][]string

// newSession constructs the initial state. The session is ACTIVE the
// moment the first message is recorded; the in-between NEW state never
// escapes this package.
func newSession(id string, now time.Time) *ConversationSession {
	return &ConversationSession{
		ID:             id,
		Messages:       []Message{},
		Intelligence:   IntelState{},
		StartedAt:      now,
		LastActivityAt: now,
		Active:         true,
	}
}

// Clone returns a deep copy. Stores hand out clones so readers never
// share slices or the intelligence map with an in-flight engage cycle.
func (s *ConversationSession) Clone() *ConversationSession {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	c.Intelligence = make(IntelState, len(s.Intelligence))
	for k, vals := range s.Intelligence {
		vc := make([]string, len(vals))
		copy(vc, vals)
		c.Intelligence[k] = vc
	}
	return &c
}

// append records a message and refreshes the activity clock.
func (s *ConversationSession) append(sender Sender, text string, now time.Time) {
	s.Messages = append(s.Messages, Message{Sender: sender, Text: text, Timestamp: now})
	s.LastActivityAt = now
}

// mergeIntel folds an extraction delta into the session sets and returns
// how many values were genuinely new. Merging the same delta twice adds
// nothing.
func (s *ConversationSession) mergeIntel(delta *patterns.Intel) int {
	added := 0
	for _, cat := range patterns.Categories {
		key := string(cat)
		existing := s.Intelligence[key]
		seen := make(map[string]bool, len(existing))
		for _, v := range existing {
			seen[v] = true
		}
		for _, v := range delta.Values(cat) {
			if !seen[v] {
				existing = append(existing, v)
				seen[v] = true
				added++
			}
		}
		if len(existing) > 0 {
			s.Intelligence[key] = existing
		}
	}
	return added
}

// IntelSnapshot renders the accumulated intelligence in the wire shape.
func (s *ConversationSession) IntelSnapshot() patterns.Snapshot {
	return patterns.Snapshot{
		BankAccounts: s.intelValues(patterns.CategoryBankAccount),
		UPIIDs:       s.intelValues(patterns.CategoryUPIID),
		PhishingURLs: s.intelValues(patterns.CategoryPhishingURL),
		IFSCCodes:    s.intelValues(patterns.CategoryIFSCCode),
		PhoneNumbers: s.intelValues(patterns.CategoryPhoneNumber),
	}
}

func (s *ConversationSession) intelValues(cat patterns.Category) []string {
	vals := s.Intelligence[string(cat)]
	if vals == nil {
		return []string{}
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// IntelTotal counts all accumulated intelligence values.
func (s *ConversationSession) IntelTotal() int {
	n := 0
	for _, vals := range s.Intelligence {
		n += len(vals)
	}
	return n
}

// Metrics computes engagement metrics as of now.
func (s *ConversationSession) Metrics(now time.Time) EngagementMetrics {
	return EngagementMetrics{
		TurnCount:         s.TurnCount,
		DurationSeconds:   now.Sub(s.StartedAt).Seconds(),
		MessagesExchanged: len(s.Messages),
	}
}
