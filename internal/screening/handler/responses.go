package handler

import (
	"time"

	"sanctions-gateway/internal/decision"
	"sanctions-gateway/internal/screening"
)

// ScreenPersonResponse is the HTTP response for POST /v1/sanctions/screen/person.
type ScreenPersonResponse struct {
	RequestID       string           `json:"request_id"`
	Timestamp       time.Time        `json:"timestamp"`
	Decision        string           `json:"decision"`
	RiskLevel       string           `json:"risk_level"`
	TopScore        float64          `json:"top_score"`
	Matches         []MatchResponse  `json:"matches"`
	Reasons         []string         `json:"reasons"`
	DatasetsChecked []string         `json:"datasets_checked"`
	Metadata        MetadataResponse `json:"metadata"`
}

// MatchResponse is one returned match candidate.
type MatchResponse struct {
	EntityID   string   `json:"entity_id"`
	Dataset    string   `json:"dataset"`
	Caption    string   `json:"caption"`
	Score      float64  `json:"score"`
	Match      bool     `json:"match"`
	Names      []string `json:"names"`
	Countries  []string `json:"countries"`
	BirthDates []string `json:"birth_dates"`
	Programs   []string `json:"programs"`
	SourceURLs []string `json:"source_urls"`
}

// MetadataResponse carries the audit-oriented details of a screening.
type MetadataResponse struct {
	TotalMatchesFound          int                     `json:"total_matches_found"`
	MatchesReturned            int                     `json:"matches_returned"`
	Thresholds                 decision.Thresholds     `json:"thresholds"`
	InputFieldsProvided        InputFieldsResponse     `json:"input_fields_provided"`
	DatasetsFailed             []string                `json:"datasets_failed"`
	MalformedCandidatesSkipped int                     `json:"malformed_candidates_skipped"`
	DatasetResults             []DatasetResultResponse `json:"dataset_results"`
}

// InputFieldsResponse reports which identifying attributes were supplied.
type InputFieldsResponse struct {
	Name       bool `json:"name"`
	Country    bool `json:"country"`
	DOB        bool `json:"dob"`
	Passport   bool `json:"passport"`
	NationalID bool `json:"national_id"`
}

// DatasetResultResponse summarises one dataset query.
type DatasetResultResponse struct {
	Dataset        string  `json:"dataset"`
	Status         string  `json:"status"`
	CandidateCount int     `json:"candidate_count"`
	SkippedCount   int     `json:"skipped_count"`
	LatencyMs      float64 `json:"latency_ms"`
	Cached         bool    `json:"cached"`
	Error          string  `json:"error,omitempty"`
}

// HealthResponse is the HTTP response for GET /health.
type HealthResponse struct {
	Status            string    `json:"status"`
	MatcherStatus     string    `json:"matcher_status"`
	DatasetsAvailable []string  `json:"datasets_available"`
	Timestamp         time.Time `json:"timestamp"`
}

// FromResult converts a screening result to an HTTP response. Slices are
// never null in the JSON output.
func FromResult(result *screening.Result) *ScreenPersonResponse {
	matches := make([]MatchResponse, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, MatchResponse{
			EntityID:   m.EntityID,
			Dataset:    m.Dataset,
			Caption:    m.Caption,
			Score:      m.Score,
			Match:      m.IsMatch,
			Names:      nonNil(m.Names),
			Countries:  nonNil(m.Countries),
			BirthDates: nonNil(m.BirthDates),
			Programs:   nonNil(m.Programs),
			SourceURLs: nonNil(m.SourceURLs),
		})
	}

	md := result.Metadata
	datasetResults := make([]DatasetResultResponse, 0, len(md.DatasetResults))
	for _, dr := range md.DatasetResults {
		datasetResults = append(datasetResults, DatasetResultResponse{
			Dataset:        dr.Dataset,
			Status:         string(dr.Status),
			CandidateCount: dr.CandidateCount,
			SkippedCount:   dr.SkippedCount,
			LatencyMs:      float64(dr.Latency.Microseconds()) / 1000,
			Cached:         dr.Cached,
			Error:          dr.Error,
		})
	}

	return &ScreenPersonResponse{
		RequestID:       result.RequestID,
		Timestamp:       result.Timestamp,
		Decision:        string(result.Decision.Decision),
		RiskLevel:       string(result.Decision.RiskLevel),
		TopScore:        result.Decision.TopScore,
		Matches:         matches,
		Reasons:         nonNil(result.Decision.Reasons),
		DatasetsChecked: nonNil(result.DatasetsChecked),
		Metadata: MetadataResponse{
			TotalMatchesFound: md.TotalMatchesFound,
			MatchesReturned:   md.MatchesReturned,
			Thresholds:        md.Thresholds,
			InputFieldsProvided: InputFieldsResponse{
				Name:       md.InputFieldsProvided.Name,
				Country:    md.InputFieldsProvided.Country,
				DOB:        md.InputFieldsProvided.DOB,
				Passport:   md.InputFieldsProvided.Passport,
				NationalID: md.InputFieldsProvided.NationalID,
			},
			DatasetsFailed:             nonNil(md.DatasetsFailed),
			MalformedCandidatesSkipped: md.MalformedCandidatesSkipped,
			DatasetResults:             datasetResults,
		},
	}
}

// FromHealth converts a health snapshot to an HTTP response.
func FromHealth(h screening.Health) *HealthResponse {
	return &HealthResponse{
		Status:            h.Status,
		MatcherStatus:     h.MatcherStatus,
		DatasetsAvailable: nonNil(h.DatasetsAvailable),
		Timestamp:         h.Timestamp,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
