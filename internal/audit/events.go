// Package audit is the append-only screening audit trail. Every request,
// matcher query, match summary, decision and error is written as one JSON
// object per line, in emission order, with a process-wide sequence number.
package audit

import (
	"math"
	"time"
)

// EventType names the kind of audit record.
type EventType string

const (
	EventScreeningRequest  EventType = "screening_request"
	EventMatcherQuery      EventType = "matcher_query"
	EventMatchesFound      EventType = "matches_found"
	EventScreeningDecision EventType = "screening_decision"
	EventScreeningError    EventType = "screening_error"
)

// Severity of a screening_error record.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Error types recorded in screening_error events.
const (
	ErrorMatcherUnavailable = "matcher_unavailable"
	ErrorAllDatasetsFailed  = "all_datasets_failed"
	ErrorRequestTimeout     = "request_timeout"
	ErrorMalformedCandidate = "malformed_candidate"
	ErrorUnexpected         = "unexpected_error"
	ErrorValidation         = "validation_error"
)

// Header carries the fields common to every record. Type, Timestamp and
// Sequence are filled by the Publisher.
type Header struct {
	Type      EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Sequence  uint64    `json:"sequence"`
}

// EventHeader gives publishers and sinks access to the common fields.
func (h *Header) EventHeader() *Header { return h }

// Event is implemented by every audit record type.
type Event interface {
	EventHeader() *Header
	EventType() EventType
}

// RequestData summarises the screened identity. Identifier values other than
// the name and country are recorded as presence flags only.
type RequestData struct {
	FullName      string `json:"full_name"`
	Country       string `json:"country,omitempty"`
	HasDOB        bool   `json:"has_dob"`
	HasPassport   bool   `json:"has_passport"`
	HasNationalID bool   `json:"has_national_id"`
}

// ScreeningRequest is written when a screening starts.
type ScreeningRequest struct {
	Header
	UserID      string      `json:"user_id,omitempty"`
	Context     string      `json:"context,omitempty"`
	ClientIP    string      `json:"client_ip,omitempty"`
	UserAgent   string      `json:"user_agent,omitempty"`
	RequestData RequestData `json:"request_data"`
}

func (*ScreeningRequest) EventType() EventType { return EventScreeningRequest }

// MatcherQuery records one dataset query. It never carries the decision.
type MatcherQuery struct {
	Header
	Dataset        string   `json:"dataset"`
	QueryFields    []string `json:"query_fields"`
	ResponseStatus int      `json:"response_status"`
	ResponseTimeMs float64  `json:"response_time_ms"`
	Cached         bool     `json:"cached"`
}

func (*MatcherQuery) EventType() EventType { return EventMatcherQuery }

// MatchesFound summarises the candidates kept from one dataset.
type MatchesFound struct {
	Header
	Dataset     string  `json:"dataset"`
	MatchCount  int     `json:"match_count"`
	TopScore    float64 `json:"top_score"`
	TopEntityID string  `json:"top_entity_id,omitempty"`
}

func (*MatchesFound) EventType() EventType { return EventMatchesFound }

// ScreeningDecision records the final outcome of a screening.
type ScreeningDecision struct {
	Header
	UserID         string   `json:"user_id,omitempty"`
	Context        string   `json:"context,omitempty"`
	Decision       string   `json:"decision"`
	RiskLevel      string   `json:"risk_level"`
	TopScore       float64  `json:"top_score"`
	TotalMatches   int      `json:"total_matches"`
	Reasons        []string `json:"reasons"`
	DatasetsFailed []string `json:"datasets_failed,omitempty"`
}

func (*ScreeningDecision) EventType() EventType { return EventScreeningDecision }

// ScreeningError records a failure. Dataset is empty for request-level errors.
type ScreeningError struct {
	Header
	ErrorType    string   `json:"error_type"`
	ErrorMessage string   `json:"error_message"`
	Dataset      string   `json:"dataset,omitempty"`
	Severity     Severity `json:"severity"`
}

func (*ScreeningError) EventType() EventType { return EventScreeningError }

// RoundScore rounds a score to four decimal places for audit records.
func RoundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// RoundMillis rounds a duration to milliseconds with two decimals.
func RoundMillis(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
