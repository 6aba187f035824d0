package matcher

import (
	"encoding/json"
	"fmt"

	"sanctions-gateway/internal/decision"
	strs "sanctions-gateway/pkg/platform/strings"
)

type matchResponse struct {
	Responses map[string]queryResponse `json:"responses"`
}

type queryResponse struct {
	Results []resultEntity `json:"results"`
}

type resultEntity struct {
	ID         string              `json:"id"`
	Caption    string              `json:"caption"`
	Score      float64             `json:"score"`
	Match      bool                `json:"match"`
	Properties map[string][]string `json:"properties"`
}

// SkippedCandidate is a result item dropped because it failed validation.
type SkippedCandidate struct {
	EntityID string
	Reason   string
}

// parseResults decodes a match response body into validated candidates for
// dataset. Items that fail MatchCandidate.Validate are returned separately.
// A missing response or result list is an empty result, not an error.
func parseResults(dataset string, body []byte) ([]decision.MatchCandidate, []SkippedCandidate, error) {
	var resp matchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, NewMatcherError(ErrorBadData, dataset, "decode match response", err)
	}

	results := resp.Responses[queryKey].Results
	candidates := make([]decision.MatchCandidate, 0, len(results))
	var skipped []SkippedCandidate
	for _, r := range results {
		c := toCandidate(dataset, r)
		if err := c.Validate(); err != nil {
			skipped = append(skipped, SkippedCandidate{EntityID: r.ID, Reason: err.Error()})
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, skipped, nil
}

func toCandidate(dataset string, r resultEntity) decision.MatchCandidate {
	props := r.Properties
	return decision.MatchCandidate{
		EntityID:   r.ID,
		Dataset:    dataset,
		Caption:    r.Caption,
		Score:      r.Score,
		IsMatch:    r.Match,
		Names:      strs.Union(props["name"], props["alias"]),
		Countries:  strs.Compact(props["country"]),
		BirthDates: strs.Compact(props["birthDate"]),
		Programs:   strs.Compact(props["program"]),
		SourceURLs: strs.Compact(props["sourceUrl"]),
	}
}

// DatasetResult is the outcome of one successful dataset query.
type DatasetResult struct {
	Dataset    string
	Candidates []decision.MatchCandidate
	Skipped    []SkippedCandidate
	StatusCode int
	Cached     bool
}

func (r *DatasetResult) String() string {
	return fmt.Sprintf("%s: %d candidates, %d skipped", r.Dataset, len(r.Candidates), len(r.Skipped))
}
