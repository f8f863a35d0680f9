package domain

import "strings"

// NormalizeText trims leading/trailing whitespace and collapses internal
// whitespace runs. It is used for event titles and user display names.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail lowercases and trims an email address for uniqueness checks.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
