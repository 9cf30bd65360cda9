// Package telemetry tracks in-process operational counters. Everything
// is atomic and allocation-free on the hot path; the health endpoint is
// the only reader.
package telemetry

import "sync/atomic"

// Metrics holds monotonic counters for the gateway's lifetime.
type Metrics struct {
	conversationsStarted atomic.Int64
	conversationsEnded   atomic.Int64
	messagesProcessed    atomic.Int64
	scamsDetected        atomic.Int64
	intelItems           atomic.Int64
	degradedModelCalls   atomic.Int64
}

// NewMetrics creates a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) ConversationStarted() { m.conversationsStarted.Add(1) }
func (m *Metrics) ConversationEnded()   { m.conversationsEnded.Add(1) }
func (m *Metrics) MessageProcessed()    { m.messagesProcessed.Add(1) }
func (m *Metrics) ScamDetected()        { m.scamsDetected.Add(1) }
func (m *Metrics) ModelCallDegraded()   { m.degradedModelCalls.Add(1) }

// IntelExtracted records n newly extracted intelligence values.
func (m *Metrics) IntelExtracted(n int) {
	if n > 0 {
		m.intelItems.Add(int64(n))
	}
}

// Snapshot is the JSON shape surfaced on the health endpoint.
type Snapshot struct {
	ConversationsStarted int64 `json:"conversations_started"`
	ConversationsEnded   int64 `json:"conversations_ended"`
	MessagesProcessed    int64 `json:"messages_processed"`
	ScamsDetected        int64 `json:"scams_detected"`
	IntelItems           int64 `json:"intel_items"`
	DegradedModelCalls   int64 `json:"degraded_model_calls"`
}

// Read returns a point-in-time copy of all counters.
func (m *Metrics) Read() Snapshot {
	return Snapshot{
		ConversationsStarted: m.conversationsStarted.Load(),
		ConversationsEnded:   m.conversationsEnded.Load(),
		MessagesProcessed:    m.messagesProcessed.Load(),
		ScamsDetected:        m.scamsDetected.Load(),
		IntelItems:           m.intelItems.Load(),
		DegradedModelCalls:   m.degradedModelCalls.Load(),
	}
}
