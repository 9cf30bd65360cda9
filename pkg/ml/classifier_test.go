package ml

import (
	"context"
	"errors"
	"testing"
)

// fakeCompleter returns a scripted reply or error.
type fakeCompleter struct {
	reply      string
	err        error
	ready      bool
	lastSystem string
	lastMsgs   []ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, system string, msgs []ChatMessage) (string, error) {
	f.lastSystem = system
	f.lastMsgs = msgs
	return f.reply, f.err
}

func (f *fakeCompleter) CompleteCreative(ctx context.Context, system string, msgs []ChatMessage) (string, error) {
	return f.Complete(ctx, system, msgs)
}

func (f *fakeCompleter) Ready() bool { return f.ready }

func TestScamClassifier_ParsesVerdict(t *testing.T) {
	fc := &fakeCompleter{
		ready: true,
		reply: `{"is_scam": true, "confidence": 0.92, "reason": "lottery fee fraud"}`,
	}
	sc := NewScamClassifier(fc)

	result, err := sc.Classify(context.Background(), "You won! Pay the fee.", nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !result.IsScam {
		t.Error("expected is_scam true")
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence = %.2f, want 0.92", result.Confidence)
	}
	if result.Reason != "lottery fee fraud" {
		t.Errorf("reason = %q", result.Reason)
	}
}

func TestScamClassifier_StripsMarkdownFences(t *testing.T) {
	fc := &fakeCompleter{
		ready: true,
		reply: "```json\n{\"is_scam\": false, \"confidence\": 0.1, \"reason\": \"greeting\"}\n```",
	}
	sc := NewScamClassifier(fc)

	result, err := sc.Classify(context.Background(), "hello there", nil)
	if err != nil {
		t.Fatalf("Classify failed on fenced JSON: %v", err)
	}
	if result.IsScam {
		t.Error("expected is_scam false")
	}
}

func TestScamClassifier_UnparsableOutput(t *testing.T) {
	fc := &fakeCompleter{ready: true, reply: "I think this might be a scam."}
	sc := NewScamClassifier(fc)

	_, err := sc.Classify(context.Background(), "test", nil)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable for prose output, got %v", err)
	}
}

func TestScamClassifier_NotReady(t *testing.T) {
	sc := NewScamClassifier(&fakeCompleter{ready: false})

	_, err := sc.Classify(context.Background(), "test", nil)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable when not ready, got %v", err)
	}

	// Nil completer behaves the same.
	sc = NewScamClassifier(nil)
	if _, err := sc.Classify(context.Background(), "test", nil); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable for nil completer, got %v", err)
	}
}

func TestScamClassifier_ClampsConfidence(t *testing.T) {
	fc := &fakeCompleter{
		ready: true,
		reply: `{"is_scam": true, "confidence": 1.7, "reason": "x"}`,
	}
	sc := NewScamClassifier(fc)

	result, err := sc.Classify(context.Background(), "test", nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Confidence > 1.0 {
		t.Errorf("confidence %.2f not clamped", result.Confidence)
	}
}

func TestScamClassifier_HistoryWindow(t *testing.T) {
	fc := &fakeCompleter{
		ready: true,
		reply: `{"is_scam": false, "confidence": 0.2, "reason": "ok"}`,
	}
	sc := NewScamClassifier(fc)

	history := make([]ChatMessage, 12)
	for i := range history {
		history[i] = ChatMessage{Role: "user", Content: "turn"}
	}
	if _, err := sc.Classify(context.Background(), "latest", history); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	// The whole exchange rides in a single user message; the system
	// instruction carries the analyst role.
	if fc.lastSystem == "" {
		t.Error("system instruction missing")
	}
	if len(fc.lastMsgs) != 1 {
		t.Errorf("messages sent = %d, want 1", len(fc.lastMsgs))
	}
}
