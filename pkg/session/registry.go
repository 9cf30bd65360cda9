package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/decoynet/hivetrap/pkg/agent"
	"github.com/decoynet/hivetrap/pkg/ml"
	"github.com/decoynet/hivetrap/pkg/patterns"
	"github.com/decoynet/hivetrap/pkg/telemetry"
)

// Scorer produces a scam verdict for an inbound message.
type Scorer interface {
	Score(ctx context.Context, msg string, history []ml.ChatMessage) ml.Verdict
	Threshold() float64
}

// Responder generates persona replies and the closing message.
type Responder interface {
	Reply(ctx context.Context, msg string, history []ml.ChatMessage, scamDetected bool) string
	ClosingMessage() string
}

// closedReply is returned for messages to an ended conversation. Stable
// and neutral; the persona engine is not invoked.
const closedReply = "This conversation has ended. Namaste."

// Result is the outcome of one request-response cycle.
type Result struct {
	ConversationID string
	Reply          string
	ScamDetected   bool
	Confidence     float64
	Intelligence   patterns.Snapshot
	Metrics        EngagementMetrics
	AgentActive    bool
}

// Registry maps conversation ids to sessions and drives the engage
// cycle. Creation is atomic under the per-conversation lock; the lock is
// held for the whole request cycle so a session never processes two
// turns concurrently.
type Registry struct {
	store     Store
	extractor *patterns.Extractor
	scorer    Scorer
	responder Responder
	policy    agent.TerminationPolicy
	metrics   *telemetry.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry wires the engage cycle components together.
func NewRegistry(store Store, scorer Scorer, responder Responder, policy agent.TerminationPolicy, metrics *telemetry.Metrics) *Registry {
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	return &Registry{
		store:     store,
		extractor: patterns.Get(),
		scorer:    scorer,
		responder: responder,
		policy:    policy,
		metrics:   metrics,
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex for a conversation id, creating it on
// first use. Lock entries are small and bounded by the store TTL horizon
// in practice; they are not individually reclaimed.
func (r *Registry) sessionLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lk, ok := r.locks[id]
	if !ok {
		lk = &sync.Mutex{}
		r.locks[id] = lk
	}
	return lk
}

// Resolve returns the existing session or atomically creates one.
func (r *Registry) Resolve(ctx context.Context, id string) (*ConversationSession, error) {
	if id == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	lk := r.sessionLock(id)
	lk.Lock()
	defer lk.Unlock()

	return r.resolveLocked(ctx, id)
}

func (r *Registry) resolveLocked(ctx context.Context, id string) (*ConversationSession, error) {
	s, err := r.store.Load(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	s = newSession(id, time.Now())
	if err := r.store.Save(ctx, s); err != nil {
		return nil, err
	}
	r.metrics.ConversationStarted()
	return s, nil
}

// Get returns a session snapshot for read-only queries, ErrNotFound
// when absent. The per-session lock serializes the read against an
// in-flight engage cycle; the store hands out a copy, so the caller
// never shares state with a concurrent ProcessMessage.
func (r *Registry) Get(ctx context.Context, id string) (*ConversationSession, error) {
	lk := r.sessionLock(id)
	lk.Lock()
	defer lk.Unlock()
	return r.store.Load(ctx, id)
}

// Delete removes a conversation entirely.
func (r *Registry) Delete(ctx context.Context, id string) error {
	lk := r.sessionLock(id)
	lk.Lock()
	defer lk.Unlock()
	return r.store.Delete(ctx, id)
}

// ActiveCount reports how many conversations are still engaging. Ended
// sessions awaiting TTL eviction are excluded.
func (r *Registry) ActiveCount(ctx context.Context) int {
	n, err := r.store.ActiveCount(ctx)
	if err != nil {
		log.Printf("[WARN] Session count unavailable: %v", err)
		return 0
	}
	return n
}

// ProcessMessage runs one full engage cycle for an inbound message:
// append, extract, score, update policy counters, reply or close.
func (r *Registry) ProcessMessage(ctx context.Context, id, text string) (*Result, error) {
	if text == "" {
		return nil, fmt.Errorf("message is required")
	}

	lk := r.sessionLock(id)
	lk.Lock()
	defer lk.Unlock()

	s, err := r.resolveLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Ended sessions keep answering but never re-engage.
	if !s.Active {
		return &Result{
			ConversationID: id,
			Reply:          closedReply,
			ScamDetected:   s.ScamDetected,
			Confidence:     s.MaxConfidence,
			Intelligence:   s.IntelSnapshot(),
			Metrics:        s.Metrics(now),
			AgentActive:    false,
		}, nil
	}

	history := chatHistory(s.Messages)
	s.append(SenderScammer, text, now)
	s.TurnCount++

	// Extraction runs over scammer text only; the decoy's own replies
	// must never feed the intelligence sets.
	added := s.mergeIntel(r.extractor.Extract(text))
	if added > 0 {
		s.TurnsSinceNewIntel = 0
		r.metrics.IntelExtracted(added)
	} else {
		s.TurnsSinceNewIntel++
	}

	verdict := r.scorer.Score(ctx, text, history)
	if verdict.Degraded {
		r.metrics.ModelCallDegraded()
	}
	if verdict.IsScam && !s.ScamDetected {
		s.ScamDetected = true
		r.metrics.ScamDetected()
	}
	if verdict.Confidence > s.MaxConfidence {
		s.MaxConfidence = verdict.Confidence
	}
	if s.ScamDetected && !verdict.IsScam {
		s.TurnsBelowThreshold++
	} else {
		s.TurnsBelowThreshold = 0
	}

	var reply string
	terminate, reason := r.policy.ShouldTerminate(agent.PolicyInput{
		TurnCount:           s.TurnCount,
		TurnsSinceNewIntel:  s.TurnsSinceNewIntel,
		TurnsBelowThreshold: s.TurnsBelowThreshold,
		EverDetected:        s.ScamDetected,
	})
	if terminate {
		reply = r.responder.ClosingMessage()
		s.Active = false
		r.metrics.ConversationEnded()
		log.Printf("Conversation %s ended: %s (turns=%d, intel=%d)", id, reason, s.TurnCount, s.IntelTotal())
	} else {
		reply = r.responder.Reply(ctx, text, history, s.ScamDetected)
	}
	s.append(SenderAgent, reply, time.Now())
	r.metrics.MessageProcessed()

	if err := r.store.Save(ctx, s); err != nil {
		return nil, err
	}

	return &Result{
		ConversationID: id,
		Reply:          reply,
		ScamDetected:   s.ScamDetected,
		Confidence:     s.MaxConfidence,
		Intelligence:   s.IntelSnapshot(),
		Metrics:        s.Metrics(time.Now()),
		AgentActive:    s.Active,
	}, nil
}

// chatHistory converts stored messages to the model wire roles. The
// scammer speaks as the user; the persona's own replies are assistant
// turns.
func chatHistory(msgs []Message) []ml.ChatMessage {
	out := make([]ml.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Sender == SenderAgent {
			role = "assistant"
		}
		out = append(out, ml.ChatMessage{Role: role, Content: m.Text})
	}
	return out
}
