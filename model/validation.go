package model

// ValidationOutcome is the always-successful result of validating one write
// payload. A field appears in Accepted or contributes to Errors, never both;
// fields absent from the input appear in neither. Problems are data, not an
// error channel: the caller shows them to the user and asks for fixes.
type ValidationOutcome struct {
	Accepted map[string]any `json:"accepted"`
	Errors   []string       `json:"errors"`
}

// OK reports whether every provided field was accepted.
func (o *ValidationOutcome) OK() bool {
	return len(o.Errors) == 0
}
