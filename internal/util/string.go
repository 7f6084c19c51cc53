package util

import "strings"

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// CollapseWhitespace joins the fields of s with single spaces. OCR output is
// multi-line; search queries are not.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// LimitRunes cuts s to at most maxRunes runes without adding an ellipsis.
func LimitRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if maxRunes < 0 || len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// IsBlank reports whether s is empty or contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
