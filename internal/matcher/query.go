package matcher

import (
	"encoding/json"
	"fmt"
)

// Schema is the entity schema every person query is matched against.
const Schema = "Person"

// queryKey names the single query in a match request body.
const queryKey = "q1"

// PersonQuery holds the identifying attributes of one screening. FullName is
// required; the other attributes are sent only when non-empty.
type PersonQuery struct {
	FullName       string
	Country        string
	DateOfBirth    string
	PassportNumber string
	NationalID     string
}

type matchRequest struct {
	Queries map[string]entityQuery `json:"queries"`
}

type entityQuery struct {
	Schema     string              `json:"schema"`
	Properties map[string][]string `json:"properties"`
}

// property pairs a matcher property name with its query value.
type property struct {
	name  string
	value string
}

func (q PersonQuery) properties() []property {
	all := []property{
		{"name", q.FullName},
		{"country", q.Country},
		{"birthDate", q.DateOfBirth},
		{"passportNumber", q.PassportNumber},
		{"idNumber", q.NationalID},
	}
	out := all[:0]
	for _, p := range all {
		if p.value != "" {
			out = append(out, p)
		}
	}
	return out
}

// Fields lists the matcher property names the query sends, in a fixed order.
func (q PersonQuery) Fields() []string {
	props := q.properties()
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p.name)
	}
	return out
}

// Payload encodes the match request body.
func (q PersonQuery) Payload() ([]byte, error) {
	props := make(map[string][]string)
	for _, p := range q.properties() {
		props[p.name] = []string{p.value}
	}
	body, err := json.Marshal(matchRequest{
		Queries: map[string]entityQuery{
			queryKey: {Schema: Schema, Properties: props},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode match query: %w", err)
	}
	return body, nil
}
