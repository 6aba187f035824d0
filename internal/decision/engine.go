package decision

import "math"

// Engine turns the scored candidates of one screening into a decision, a risk
// level and the reason narrative. It holds only immutable configuration and
// performs no I/O; the same input always yields the same output, so a decision
// can be reproduced from the audit log.
type Engine struct {
	thresholds Thresholds
	risk       bandTable[RiskLevel]
	decision   bandTable[Decision]
}

// NewEngine builds an engine for validated thresholds.
func NewEngine(t Thresholds) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		thresholds: t,
		risk:       riskTable(t),
		decision:   decisionTable(t),
	}, nil
}

// Thresholds returns the configured boundaries.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Decide evaluates candidates in any order. Ties on the top score resolve to
// the first candidate in input order. Scores outside [0,1] are clamped and NaN
// counts as 0, so malformed input degrades instead of panicking.
func (e *Engine) Decide(candidates []MatchCandidate) ScreeningDecision {
	if len(candidates) == 0 {
		return ScreeningDecision{
			Decision:  DecisionClear,
			RiskLevel: RiskNone,
			TopScore:  0,
			Reasons:   noMatchReasons(),
		}
	}

	top := 0
	topScore := clampScore(candidates[0].Score)
	for i := 1; i < len(candidates); i++ {
		if s := clampScore(candidates[i].Score); s > topScore {
			top, topScore = i, s
		}
	}

	outcome := e.decision.classify(topScore)
	reasons := e.baseReasons(outcome, topScore, len(candidates), candidates[top])
	if outcome == DecisionReview {
		reasons = append(reasons, e.enhancementReasons(candidates)...)
	}

	return ScreeningDecision{
		Decision:  outcome,
		RiskLevel: e.risk.classify(topScore),
		TopScore:  topScore,
		Reasons:   reasons,
	}
}

// enhancementReasons flags review outcomes that deserve extra attention. They
// annotate the narrative and never change the decision.
func (e *Engine) enhancementReasons(candidates []MatchCandidate) []string {
	var reasons []string

	reviewBand := 0
	var datasets []string
	seen := make(map[string]struct{})
	for _, c := range candidates {
		s := clampScore(c.Score)
		if s >= e.thresholds.Review && s < e.thresholds.Block {
			reviewBand++
		}
		if s >= e.thresholds.Review {
			if _, ok := seen[c.Dataset]; !ok {
				seen[c.Dataset] = struct{}{}
				datasets = append(datasets, c.Dataset)
			}
		}
	}

	if reviewBand >= 3 {
		reasons = append(reasons, enhancedScrutinyReason(reviewBand))
	}
	if len(datasets) >= 2 {
		reasons = append(reasons, crossDatasetReason(datasets))
	}
	return reasons
}

func clampScore(s float64) float64 {
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
