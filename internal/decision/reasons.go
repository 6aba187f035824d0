package decision

import (
	"fmt"
	"strings"
)

const (
	reasonNoMatches = "No sanctions matches found in the screened datasets."
	reasonCleared   = "Person cleared for transaction processing."

	maxProgramsInReason = 3
)

func noMatchReasons() []string {
	return []string{reasonNoMatches, reasonCleared}
}

// baseReasons builds the narrative a compliance officer reads: score context,
// the best candidate, the volume evaluated, then the decision and its action.
func (e *Engine) baseReasons(outcome Decision, topScore float64, count int, top MatchCandidate) []string {
	t := e.thresholds
	reasons := []string{
		fmt.Sprintf("Top match score: %.3f (scale: 0.0-1.0, higher = stronger match)", topScore),
		fmt.Sprintf("Best match: '%s' from %s (Entity ID: %s)", top.Caption, strings.ToUpper(top.Dataset), top.EntityID),
	}
	if len(top.Programs) > 0 {
		programs := top.Programs
		if len(programs) > maxProgramsInReason {
			programs = programs[:maxProgramsInReason]
		}
		reasons = append(reasons, "Sanctions programs: "+strings.Join(programs, ", "))
	}
	reasons = append(reasons, fmt.Sprintf("Total candidate matches evaluated: %d", count))

	switch outcome {
	case DecisionBlock:
		reasons = append(reasons,
			fmt.Sprintf("BLOCK decision: Score %.3f >= block threshold %.2f", topScore, t.Block),
			"Action required: Hard hold on withdrawal, immediate compliance escalation, gather additional KYC documentation.",
		)
	case DecisionReview:
		reasons = append(reasons,
			fmt.Sprintf("REVIEW decision: Score %.3f >= review threshold %.2f but < block threshold %.2f", topScore, t.Review, t.Block),
			"Action required: Soft hold on transaction, manual compliance review within 48 hours, request additional identity documents if needed.",
		)
	default:
		if topScore >= t.Info {
			reasons = append(reasons,
				fmt.Sprintf("CLEAR decision: Score %.3f < review threshold %.2f", topScore, t.Review),
				"Low-confidence matches logged for monitoring but do not require action.",
			)
		} else {
			reasons = append(reasons, fmt.Sprintf("CLEAR decision: All scores below information threshold %.2f", t.Info))
		}
		reasons = append(reasons, reasonCleared)
	}
	return reasons
}

func enhancedScrutinyReason(count int) string {
	return fmt.Sprintf("Enhanced scrutiny: %d matches above review threshold. "+
		"Multiple candidates warrant careful manual review.", count)
}

func crossDatasetReason(datasets []string) string {
	return fmt.Sprintf("Cross-dataset confirmation: Person appears in %d datasets (%s). "+
		"Increases match confidence.", len(datasets), strings.Join(datasets, ", "))
}
