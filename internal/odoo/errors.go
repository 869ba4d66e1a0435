package odoo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FaultKind classifies a backend failure. The schema cache and the agent
// treat all kinds as opaque, but the transport layer maps them to distinct
// HTTP statuses and the sanitizer to distinct user messages.
type FaultKind int

const (
	// FaultTransport covers network errors, timeouts, and non-2xx responses.
	FaultTransport FaultKind = iota
	// FaultAccessDenied covers authentication and ACL failures.
	FaultAccessDenied
	// FaultUnknownModel covers calls against a model that does not exist.
	FaultUnknownModel
	// FaultServer covers every other server-side fault.
	FaultServer
)

func (k FaultKind) String() string {
	switch k {
	case FaultTransport:
		return "transport"
	case FaultAccessDenied:
		return "access_denied"
	case FaultUnknownModel:
		return "unknown_model"
	default:
		return "server"
	}
}

// Fault is an error returned by the backend or the transport to it.
type Fault struct {
	Kind    FaultKind
	Message string
	// Debug carries the server-side traceback when present. Never shown to
	// users; the sanitizer strips it.
	Debug string
	// Cause is the underlying transport error, if any.
	Cause error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("odoo: %s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Cause }

// FaultKindOf returns the fault kind of err, or FaultServer when err is not
// a backend fault.
func FaultKindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return FaultServer
}

// IsTimeout reports whether err was caused by an expired deadline or a
// network timeout rather than a hard connection failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// classifyFault builds a Fault from a JSON-RPC error payload, inspecting
// the message text the way the backend reports the two distinguishable
// conditions.
func classifyFault(message, debug string) *Fault {
	kind := FaultServer
	lower := strings.ToLower(message + " " + debug)
	switch {
	case strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "accesserror") ||
		strings.Contains(lower, "access error"):
		kind = FaultAccessDenied
	case strings.Contains(lower, "doesn't exist") ||
		strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "invalid model"):
		kind = FaultUnknownModel
	}
	return &Fault{Kind: kind, Message: message, Debug: debug}
}

// transportFault wraps a client-side error as a transport fault.
func transportFault(err error) *Fault {
	return &Fault{Kind: FaultTransport, Message: err.Error(), Cause: err}
}
