package utils

import "strings"

// ParseCSV splits a comma-separated list such as an environment variable
// value into trimmed, non-empty items. Empty input yields nil.
func ParseCSV(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
