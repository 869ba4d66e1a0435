package sanitize

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFriendlyMessages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"access denied",
			"Access Denied\nTraceback (most recent call last): ...",
			"Access denied. You don't have permission for this operation.",
		},
		{
			"access error",
			"odoo.exceptions.AccessError: You are not allowed to access 'Sales Order'",
			"Access denied to this record or model.",
		},
		{
			"validation error",
			"ValidationError: The operation cannot be completed",
			"Validation failed. Please check your input.",
		},
		{
			"user error",
			"UserError: You cannot delete a confirmed order",
			"Operation failed. Please check your input.",
		},
		{
			"missing record",
			"MissingError: Record does not exist or has been deleted",
			"Record not found. It may have been deleted.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeStripsPathsAndTracebacks(t *testing.T) {
	in := `Server error in /opt/odoo/addons/sale/models/sale_order.py:512 while confirming`
	got := Sanitize(in)
	if strings.Contains(got, "/opt") || strings.Contains(got, ".py") {
		t.Errorf("paths leaked: %q", got)
	}

	in = "Traceback (most recent call last):\n" +
		`  File "/usr/lib/python3/odoo/api.py", line 466, in call_kw` + "\n" +
		"KeyError: 'partner_id'"
	got = Sanitize(in)
	if strings.Contains(got, "Traceback") || strings.Contains(got, "File \"") {
		t.Errorf("traceback leaked: %q", got)
	}
}

func TestSanitizeStripsModulePrefixes(t *testing.T) {
	got := Sanitize("xmlrpc.client.Fault: psycopg2.errors.UniqueViolation duplicate key")
	if strings.Contains(got, "xmlrpc") || strings.Contains(got, "psycopg2") {
		t.Errorf("module prefixes leaked: %q", got)
	}
}

func TestSanitizeCollapsesWhitespace(t *testing.T) {
	got := Sanitize("something   went \n\n  wrong")
	if got != "something went wrong" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeEmptyAndBlank(t *testing.T) {
	if got := Sanitize(""); got != "An unknown error occurred." {
		t.Errorf("empty input = %q", got)
	}
	// Everything stripped away leaves the generic fallback.
	if got := Sanitize("/opt/odoo/server.py"); got != "An unexpected error occurred. Please try again." {
		t.Errorf("all-stripped input = %q", got)
	}
}

func TestSanitizeTruncatesLongMessages(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 500))
	if len(got) != 303 || !strings.HasSuffix(got, "...") {
		t.Errorf("len = %d, suffix = %q", len(got), got[len(got)-3:])
	}
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	got := Sanitize(strings.Repeat("ошибка ", 60))

	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8 after truncation: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxMessageLength+3 {
		t.Errorf("rune count = %d, want %d", n, maxMessageLength+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}
}

func TestError(t *testing.T) {
	if Error(nil) != "" {
		t.Error("nil error should render empty")
	}
	if got := Error(errors.New("UserError: nope")); got != "Operation failed. Please check your input." {
		t.Errorf("got %q", got)
	}
}
