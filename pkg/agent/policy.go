package agent

import "github.com/decoynet/hivetrap/pkg/config"

// TerminationPolicy decides when a conversation stops being worth the
// model calls. All thresholds come from config; zero values disable the
// corresponding rule.
type TerminationPolicy struct {
	MaxTurns          int
	StaleIntelTurns   int
	ClearVerdictTurns int
}

// NewTerminationPolicy builds a policy from config.
func NewTerminationPolicy(cfg *config.Config) TerminationPolicy {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return TerminationPolicy{
		MaxTurns:          cfg.MaxTurns,
		StaleIntelTurns:   cfg.StaleIntelTurns,
		ClearVerdictTurns: cfg.ClearVerdictTurns,
	}
}

// PolicyInput is the per-session state the policy reads each turn.
type PolicyInput struct {
	TurnCount           int
	TurnsSinceNewIntel  int
	TurnsBelowThreshold int
	EverDetected        bool
}

// ShouldTerminate returns true and the reason when any rule fires.
// The clear-verdict rule only applies after a prior detection: a
// conversation that never looked like a scam ends on turn or intel
// exhaustion instead.
func (p TerminationPolicy) ShouldTerminate(in PolicyInput) (bool, string) {
	if p.MaxTurns > 0 && in.TurnCount >= p.MaxTurns {
		return true, "max turns reached"
	}
	if p.StaleIntelTurns > 0 && in.TurnsSinceNewIntel >= p.StaleIntelTurns {
		return true, "no new intelligence"
	}
	if p.ClearVerdictTurns > 0 && in.EverDetected && in.TurnsBelowThreshold >= p.ClearVerdictTurns {
		return true, "verdict cleared"
	}
	return false, ""
}
