package decision

import (
	"errors"
	"fmt"
	"math"
)

// Decision is the actionable screening outcome.
type Decision string

const (
	DecisionClear  Decision = "clear"
	DecisionReview Decision = "review"
	DecisionBlock  Decision = "block"
)

// Severity orders decisions: clear < review < block.
func (d Decision) Severity() int {
	switch d {
	case DecisionBlock:
		return 2
	case DecisionReview:
		return 1
	default:
		return 0
	}
}

// RiskLevel is the advisory classification reported next to the decision.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Ordinal orders risk levels: none < low < medium < high < critical.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// MatchCandidate is one scored entity returned by the matcher for one dataset
// query. Values are built once per response item and never mutated.
type MatchCandidate struct {
	EntityID   string   `json:"entity_id"`
	Dataset    string   `json:"dataset"`
	Caption    string   `json:"caption"`
	Score      float64  `json:"score"`
	IsMatch    bool     `json:"match"`
	Names      []string `json:"names"`
	Countries  []string `json:"countries"`
	BirthDates []string `json:"birth_dates"`
	Programs   []string `json:"programs"`
	SourceURLs []string `json:"source_urls"`
}

// ErrMalformedCandidate marks candidates the matcher returned in a shape the
// engine cannot reason about.
var ErrMalformedCandidate = errors.New("malformed candidate")

// Validate checks the fields the engine relies on.
func (c MatchCandidate) Validate() error {
	if c.EntityID == "" {
		return fmt.Errorf("%w: entity id is empty", ErrMalformedCandidate)
	}
	if c.Dataset == "" {
		return fmt.Errorf("%w: dataset is empty for entity %s", ErrMalformedCandidate, c.EntityID)
	}
	if math.IsNaN(c.Score) || math.IsInf(c.Score, 0) || c.Score < 0 || c.Score > 1 {
		return fmt.Errorf("%w: score %v out of range [0,1] for entity %s", ErrMalformedCandidate, c.Score, c.EntityID)
	}
	return nil
}

// ScreeningDecision is the engine output. Reasons are ordered: context first,
// required action last, enhancement notes appended.
type ScreeningDecision struct {
	Decision  Decision  `json:"decision"`
	RiskLevel RiskLevel `json:"risk_level"`
	TopScore  float64   `json:"top_score"`
	Reasons   []string  `json:"reasons"`
}
