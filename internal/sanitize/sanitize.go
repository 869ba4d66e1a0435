// Package sanitize cleans backend error text before it reaches users:
// server tracebacks, file paths, and RPC internals are stripped, and known
// backend exception names are mapped to friendly messages.
package sanitize

import (
	"regexp"
	"strings"
)

// removePatterns match implementation details that must never surface.
var removePatterns = []*regexp.Regexp{
	// File paths with and without line numbers.
	regexp.MustCompile(`/[\w/.-]+\.py:\d+`),
	regexp.MustCompile(`/[\w/.-]+\.py`),
	regexp.MustCompile(`/(?:home|opt|usr)/[\w/.-]+`),
	// Traceback blocks and frame lines.
	regexp.MustCompile(`(?s)Traceback \(most recent call last\):.*?(?:\w+Error:|\w+Exception:|$)`),
	regexp.MustCompile(`File ".*?", line \d+.*?\n?`),
	// RPC and ORM module prefixes.
	regexp.MustCompile(`xmlrpc\.client\.`),
	regexp.MustCompile(`odoo\.exceptions\.`),
	regexp.MustCompile(`psycopg2\.\w+\.`),
}

// friendlyMessages maps backend exception markers to user-facing text. The
// first matching marker wins.
var friendlyMessages = []struct {
	marker  string
	message string
}{
	{"Access Denied", "Access denied. You don't have permission for this operation."},
	{"AccessError", "Access denied to this record or model."},
	{"ValidationError", "Validation failed. Please check your input."},
	{"UserError", "Operation failed. Please check your input."},
	{"MissingError", "Record not found. It may have been deleted."},
	{"RedirectWarning", "Action required. Please review the details."},
}

const maxMessageLength = 300

// Sanitize returns a user-safe rendering of a backend error message.
func Sanitize(message string) string {
	if message == "" {
		return "An unknown error occurred."
	}

	for _, entry := range friendlyMessages {
		if strings.Contains(message, entry.marker) {
			return entry.message
		}
	}

	result := message
	for _, re := range removePatterns {
		result = re.ReplaceAllString(result, "")
	}

	result = strings.Join(strings.Fields(result), " ")
	if result == "" {
		return "An unexpected error occurred. Please try again."
	}
	// Rune-wise so that non-ASCII messages are never cut mid-character.
	if r := []rune(result); len(r) > maxMessageLength {
		result = string(r[:maxMessageLength]) + "..."
	}
	return result
}

// Error sanitizes err.Error(), tolerating nil.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}
