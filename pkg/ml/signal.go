package ml

// SignalSource identifies which detection layer produced a signal
type SignalSource string

const (
	SignalSourceHeuristic SignalSource = "heuristic" // Keyword/pattern lexicon
	SignalSourceSemantic  SignalSource = "semantic"  // chromem-go embedding similarity
	SignalSourceModel     SignalSource = "model"     // External LLM classifier
)

// Signal represents a detection result from a single layer.
// Every layer produces the same shape so the detector can fuse them.
type Signal struct {
	// Source identifies which detection layer produced this signal
	Source SignalSource `json:"source"`

	// Score is the raw scam likelihood (0.0 = benign, 1.0 = certain scam)
	Score float64 `json:"score"`

	// Weight is this layer's share in fusion. The model layer dominates
	// when available; on degradation its weight redistributes to heuristics.
	Weight float64 `json:"weight"`

	// Reasons provides human-readable explanations for the score, in the
	// order they were observed.
	Reasons []string `json:"reasons,omitempty"`

	// Degraded marks a layer that failed and contributed no score.
	Degraded bool `json:"degraded,omitempty"`
}

// Default fusion weights. Model dominates when available.
const (
	WeightHeuristic = 0.35
	WeightModel     = 0.65

	// SemanticBoostCap bounds how much the optional similarity layer can
	// add on top of the fused score.
	SemanticBoostCap = 0.15
)

// NewSignal creates a signal with the default weight for its source.
func NewSignal(source SignalSource) Signal {
	s := Signal{Source: source}
	switch source {
	case SignalSourceHeuristic:
		s.Weight = WeightHeuristic
	case SignalSourceModel:
		s.Weight = WeightModel
	default:
		s.Weight = 0
	}
	return s
}

// AddReason appends a reason to the signal
func (s *Signal) AddReason(reason string) {
	s.Reasons = append(s.Reasons, reason)
}

// Verdict is the per-turn scam judgment.
// Recomputed fresh each turn; the session keeps the running maximum.
type Verdict struct {
	IsScam     bool     `json:"is_scam"`
	Confidence float64  `json:"confidence"` // 0.0 - 1.0
	Signals    []string `json:"signals"`    // Ordered contributing reasons
	Degraded   bool     `json:"degraded"`   // True when the model layer fell back to heuristics
}
