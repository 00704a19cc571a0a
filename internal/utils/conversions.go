package utils

import (
	"fmt"
	"strings"
)

// ToStrings flattens a decoded JSON value into its string messages. Scalars
// become a single entry and nested lists are walked in order.
func ToStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, ToStrings(item)...)
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(t))
		for k, item := range t {
			for _, msg := range ToStrings(item) {
				out = append(out, k+": "+msg)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
