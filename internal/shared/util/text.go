package util

import "unicode/utf8"

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Preview truncates s to n runes and appends "..." when anything was cut.
func Preview(s string, n int) string {
	cut := TruncateRunes(s, n)
	if len(cut) < len(s) {
		return cut + "..."
	}
	return s
}
