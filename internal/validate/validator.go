// Package validate converts loosely-typed, language-model-derived field
// values into protocol-correct ones, guarded by the live schema. The
// validator never fails a whole call: problems are reported per field and
// the caller decides what to do with the remainder.
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// SchemaSource is the slice of the schema cache the validator needs.
type SchemaSource interface {
	Get(ctx context.Context, modelName string, forceReload bool) (*model.EntitySchema, error)
}

// Validator checks and converts write payloads against entity schemas.
type Validator struct {
	schemas SchemaSource
	logger  *zap.Logger
}

// NewValidator creates a validator over the given schema source.
func NewValidator(schemas SchemaSource, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{schemas: schemas, logger: logger}
}

// ValidateAndConvert validates a field→value mapping for a create or update
// against the model's schema. The outcome always carries the accepted
// values and the per-field problems; the only failure the method absorbs is
// an unavailable schema, in which case it degrades to pass-through — the
// backend is trusted to reject what we could not check (availability over
// strictness, a reviewed tradeoff).
func (v *Validator) ValidateAndConvert(ctx context.Context, modelName string, values map[string]any, operation string) model.ValidationOutcome {
	schema, err := v.schemas.Get(ctx, modelName, false)
	if err != nil {
		v.logger.Warn("schema unavailable, skipping validation",
			zap.String("model", modelName), zap.Error(err))
		return model.ValidationOutcome{Accepted: values}
	}

	outcome := model.ValidationOutcome{Accepted: make(map[string]any, len(values))}

	for _, name := range sortedKeys(values) {
		value := values[name]

		field := schema.Field(name)
		if field == nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Unknown field: %s", name))
			v.logger.Warn("unknown field in payload",
				zap.String("model", modelName), zap.String("field", name))
			continue
		}
		if field.ReadOnly {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Field '%s' is readonly", name))
			continue
		}

		converted, err := convertValue(value, field)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Field '%s': %s", name, err))
			continue
		}
		outcome.Accepted[name] = converted
	}

	if operation == model.OpCreate {
		for _, required := range schema.RequiredFields() {
			if _, provided := values[required]; !provided {
				// The backend applies defaults and computes fields; missing
				// required input is its call to reject.
				v.logger.Debug("required field not provided for create",
					zap.String("model", modelName), zap.String("field", required))
			}
		}
	}

	return outcome
}

// SuggestCorrection fuzzy-matches an invalid selection value against the
// field's choices by substring containment in either direction, scoring by
// length ratio. Returns "" when the schema or choices are unavailable. This
// is a convenience for error messages, not part of acceptance.
func (v *Validator) SuggestCorrection(ctx context.Context, fieldName, invalidValue, modelName string) string {
	schema, err := v.schemas.Get(ctx, modelName, false)
	if err != nil {
		return ""
	}
	field := schema.Field(fieldName)
	if field == nil || len(field.Selection) == 0 {
		return ""
	}

	invalid := strings.ToLower(invalidValue)
	best := ""
	bestScore := 0.0

	for _, opt := range field.Selection {
		for _, candidate := range []string{strings.ToLower(opt.Value), strings.ToLower(opt.Label)} {
			if candidate == "" {
				continue
			}
			if strings.Contains(candidate, invalid) || strings.Contains(invalid, candidate) {
				score := lengthRatio(invalid, candidate)
				if score > bestScore {
					bestScore = score
					best = opt.Value
				}
			}
		}
	}
	return best
}

// lengthRatio is a crude similarity: shorter length over longer length.
func lengthRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

// sortedKeys gives deterministic error ordering across runs.
func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
