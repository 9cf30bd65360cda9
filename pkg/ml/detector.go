package ml

import (
	"context"
	"fmt"
	"log"

	"github.com/decoynet/hivetrap/pkg/config"
)

// ScamDetector fuses the detection layers into a single verdict.
// All layers beyond the heuristic scorer are optional and degrade
// gracefully if unavailable.
type ScamDetector struct {
	heuristic  *HeuristicScorer // Always available
	classifier *ScamClassifier  // Optional: requires an LLM provider
	semantic   SemanticAnalyzer // Optional: requires an embedding source
	threshold  float64
}

// NewScamDetector builds the detector from config. The semantic layer is
// injected by the caller (it needs startup-time seeding); pass nil to run
// without it.
func NewScamDetector(cfg *config.Config, completer Completer, semantic SemanticAnalyzer) *ScamDetector {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return &ScamDetector{
		heuristic:  NewHeuristicScorer(),
		classifier: NewScamClassifier(completer),
		semantic:   semantic,
		threshold:  cfg.ScamThreshold,
	}
}

// Threshold returns the configured scam decision threshold.
func (d *ScamDetector) Threshold() float64 {
	return d.threshold
}

// Score computes a fresh verdict for the latest message.
// Fusion: the model dominates when available (heuristic 0.35 / model 0.65);
// on degradation the heuristic is the sole signal. The semantic layer adds
// a capped boost when it fires.
func (d *ScamDetector) Score(ctx context.Context, msg string, history []ChatMessage) Verdict {
	heur := d.heuristic.Evaluate(msg)

	verdict := Verdict{Signals: append([]string{}, heur.Reasons...)}

	modelResult, err := d.classifier.Classify(ctx, msg, history)
	switch {
	case err != nil:
		verdict.Degraded = true
		verdict.Confidence = heur.Score
		verdict.Signals = append(verdict.Signals, "model layer degraded, heuristic-only score")
	default:
		verdict.Confidence = WeightHeuristic*heur.Score + WeightModel*modelResult.Confidence
		if modelResult.Reason != "" {
			verdict.Signals = append(verdict.Signals, fmt.Sprintf("model: %s", modelResult.Reason))
		}
	}

	if d.semantic != nil && d.semantic.IsReady() {
		semResult, err := d.semantic.Detect(ctx, msg)
		if err != nil {
			// Semantic failure is not degradation of the verdict - it is an
			// optional booster. Log and move on.
			log.Printf("[WARN] semantic layer error: %v", err)
		} else if semResult != nil && semResult.IsThreat {
			boost := float64(semResult.Score) * SemanticBoostCap
			verdict.Confidence += boost
			verdict.Signals = append(verdict.Signals,
				fmt.Sprintf("semantic match: %s (%.0f%%)", semResult.Category, semResult.Score*100))
		}
	}

	if verdict.Confidence > 1.0 {
		verdict.Confidence = 1.0
	}
	if verdict.Confidence < 0 {
		verdict.Confidence = 0
	}
	verdict.IsScam = verdict.Confidence >= d.threshold

	return verdict
}
