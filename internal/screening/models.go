package screening

import (
	"time"

	"sanctions-gateway/internal/decision"
	"sanctions-gateway/internal/matcher"
)

// Request is a validated screening request.
type Request struct {
	// RequestID is the caller's correlation id; generated when empty.
	RequestID          string
	FullName           string
	Country            string
	DateOfBirth        string
	PassportNumber     string
	NationalID         string
	UserID             string
	TransactionContext string
}

// Query converts the request into the matcher query.
func (r Request) Query() matcher.PersonQuery {
	return matcher.PersonQuery{
		FullName:       r.FullName,
		Country:        r.Country,
		DateOfBirth:    r.DateOfBirth,
		PassportNumber: r.PassportNumber,
		NationalID:     r.NationalID,
	}
}

// InputFields reports which identifying attributes were supplied.
type InputFields struct {
	Name       bool
	Country    bool
	DOB        bool
	Passport   bool
	NationalID bool
}

func (r Request) inputFields() InputFields {
	return InputFields{
		Name:       r.FullName != "",
		Country:    r.Country != "",
		DOB:        r.DateOfBirth != "",
		Passport:   r.PassportNumber != "",
		NationalID: r.NationalID != "",
	}
}

// DatasetResult summarises one dataset query for the response metadata.
type DatasetResult struct {
	Dataset        string
	Status         matcher.DatasetStatus
	CandidateCount int
	SkippedCount   int
	Latency        time.Duration
	Cached         bool
	Error          string
}

// Metadata carries the audit-oriented details of a screening.
type Metadata struct {
	TotalMatchesFound          int
	MatchesReturned            int
	Thresholds                 decision.Thresholds
	InputFieldsProvided        InputFields
	DatasetsFailed             []string
	MalformedCandidatesSkipped int
	DatasetResults             []DatasetResult
}

// Result is the outcome of one screening.
type Result struct {
	RequestID       string
	Timestamp       time.Time
	Decision        decision.ScreeningDecision
	Matches         []decision.MatchCandidate
	DatasetsChecked []string
	Metadata        Metadata
}

// Health statuses.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// Health is the service health snapshot.
type Health struct {
	Status            string
	MatcherStatus     string
	DatasetsAvailable []string
	Timestamp         time.Time
}
