// Package strings provides string set helpers for normalizing matcher data.
package strings

import (
	"slices"
	"strings"
)

// Union merges lists into a sorted set: values are trimmed, empty values
// dropped and duplicates removed. The result is never nil.
//
// Example:
//
//	Union([]string{" Ivan Petrov", "IVAN"}, []string{"Ivan Petrov", ""})
//	// Returns: []string{"IVAN", "Ivan Petrov"}
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, list := range lists {
		for _, v := range list {
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	slices.Sort(result)
	return result
}

// Compact trims values and drops empty ones, keeping order and duplicates.
// The result is never nil.
func Compact(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
