// Package odoo implements the JSON-RPC client for the Odoo backend: the
// execute_kw call surface, fault classification, and a circuit breaker
// around the transport.
package odoo

import "context"

// Client is the call surface the rest of the service uses to talk to the
// backend. All methods block until the backend responds or the transport
// times out; cancellation is via ctx.
type Client interface {
	// ExecuteKw invokes model.method(args, kwargs) through object.execute_kw.
	ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)

	// FieldsGet returns the raw fields_get introspection payload for a model,
	// restricted to the given attributes.
	FieldsGet(ctx context.Context, model string, attributes []string) (map[string]map[string]any, error)

	// SearchRead searches a model with a domain and reads the given fields.
	SearchRead(ctx context.Context, model string, domain []any, fields []string, limit, offset int) ([]map[string]any, error)

	// SearchCount counts records matching a domain.
	SearchCount(ctx context.Context, model string, domain []any) (int64, error)

	// Create inserts one record and returns its id.
	Create(ctx context.Context, model string, values map[string]any) (int64, error)

	// Write updates the given records.
	Write(ctx context.Context, model string, ids []int64, values map[string]any) error

	// Unlink deletes the given records.
	Unlink(ctx context.Context, model string, ids []int64) error

	// CallMethod invokes an arbitrary workflow method on the given records.
	CallMethod(ctx context.Context, model, method string, ids []int64) (any, error)

	// MessagePost posts a chatter comment on one record.
	MessagePost(ctx context.Context, model string, id int64, body string) error
}
