package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"sanctions-gateway/internal/screening"
	dErrors "sanctions-gateway/pkg/domain-errors"
)

const (
	minNameLength     = 2
	maxNameLength     = 200
	maxOptionalLength = 100
	dateOfBirthLayout = "2006-01-02"
)

// ScreenPersonRequest is the HTTP request body for
// POST /v1/sanctions/screen/person. Unknown fields are ignored.
type ScreenPersonRequest struct {
	FullName           string `json:"full_name"`
	Country            string `json:"country,omitempty"`
	DateOfBirth        string `json:"date_of_birth,omitempty"`
	PassportNumber     string `json:"passport_number,omitempty"`
	NationalID         string `json:"national_id,omitempty"`
	RequestID          string `json:"request_id,omitempty"`
	UserID             string `json:"user_id,omitempty"`
	TransactionContext string `json:"transaction_context,omitempty"`
}

// Validate normalizes and checks the request.
// Implements the Validatable interface for httputil.Decode.
func (r *ScreenPersonRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.FullName = strings.TrimSpace(r.FullName)
	switch n := utf8.RuneCountInString(r.FullName); {
	case n == 0:
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	case n < minNameLength:
		return dErrors.New(dErrors.CodeValidation, "full_name must be at least 2 characters")
	case n > maxNameLength:
		return dErrors.New(dErrors.CodeValidation, "full_name must be at most 200 characters")
	}

	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
	if r.Country != "" && !isCountryCode(r.Country) {
		return dErrors.New(dErrors.CodeValidation, "country must be a 2-letter ISO code")
	}

	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	if r.DateOfBirth != "" {
		if _, err := time.Parse(dateOfBirthLayout, r.DateOfBirth); err != nil {
			return dErrors.New(dErrors.CodeValidation, "date_of_birth must be formatted as YYYY-MM-DD")
		}
	}

	optional := []struct {
		name  string
		value *string
	}{
		{"passport_number", &r.PassportNumber},
		{"national_id", &r.NationalID},
		{"request_id", &r.RequestID},
		{"user_id", &r.UserID},
		{"transaction_context", &r.TransactionContext},
	}
	for _, f := range optional {
		*f.value = strings.TrimSpace(*f.value)
		if utf8.RuneCountInString(*f.value) > maxOptionalLength {
			return dErrors.New(dErrors.CodeValidation, f.name+" must be at most 100 characters")
		}
	}

	return nil
}

// ToDomain converts the validated request into a screening request.
func (r *ScreenPersonRequest) ToDomain() screening.Request {
	return screening.Request{
		RequestID:          r.RequestID,
		FullName:           r.FullName,
		Country:            r.Country,
		DateOfBirth:        r.DateOfBirth,
		PassportNumber:     r.PassportNumber,
		NationalID:         r.NationalID,
		UserID:             r.UserID,
		TransactionContext: r.TransactionContext,
	}
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
