package helpers

import "strings"

// SplitBefore returns the part of s before the first occurrence of sep,
// or s unchanged when sep is absent.
func SplitBefore(s string, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}
