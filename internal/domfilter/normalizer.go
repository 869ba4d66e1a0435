// Package domfilter repairs loosely-structured query filters produced by
// the language model into valid backend domain expressions. Malformed input
// is expected, not exceptional: every branch degrades by dropping the
// offending piece and keeping the rest, and normalization never fails.
package domfilter

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// validOperators is the closed set of leaf operators the backend accepts.
// Nothing outside this set may appear in normalized output.
var validOperators = map[string]bool{
	"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true,
	"in": true, "not in": true,
	"like": true, "ilike": true, "not like": true, "not ilike": true,
	"=like": true, "=ilike": true,
	"child_of": true, "parent_of": true,
}

// Normalizer turns raw filter values into valid domains.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize converts a raw filter value into a valid domain. Nil, empty,
// or non-list input yields the empty domain, which matches everything.
//
// Accepted element shapes:
//   - a combinator token "&", "|", "!" — passed through
//   - a [field, operator, value] triple — operator-repaired
//   - a map with field/name/column, operator/op (default "="), and value
//     keys — converted to a triple, dropped silently when value is nil
//   - one level of accidental extra nesting around triples — flattened
//
// Anything else is dropped with a diagnostic.
func (n *Normalizer) Normalize(raw any) model.Domain {
	if raw == nil {
		return model.Domain{}
	}
	items, ok := raw.([]any)
	if !ok {
		n.logger.Warn("filters are not a list, ignoring",
			zap.String("type", fmt.Sprintf("%T", raw)))
		return model.Domain{}
	}

	out := model.Domain{}
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if v == model.DomainAnd || v == model.DomainOr || v == model.DomainNot {
				out = append(out, model.Tok(v))
			} else {
				n.logger.Debug("dropping stray filter token", zap.String("token", v))
			}
		case map[string]any:
			if leaf, ok := leafFromMap(v); ok {
				out = append(out, n.repairOperator(leaf)...)
			}
		case []any:
			out = append(out, n.normalizeList(v)...)
		default:
			n.logger.Debug("dropping unrecognized filter element",
				zap.String("type", fmt.Sprintf("%T", item)))
		}
	}
	return out
}

// normalizeList handles list-shaped elements: a proper triple, or one
// level of accidental nesting around triples.
func (n *Normalizer) normalizeList(item []any) model.Domain {
	if field, op, value, ok := asTriple(item); ok {
		return n.repairOperator(model.Condition{Field: field, Operator: op, Value: value})
	}

	if len(item) > 0 {
		if _, isNested := item[0].([]any); isNested {
			out := model.Domain{}
			for _, sub := range item {
				inner, ok := sub.([]any)
				if !ok {
					continue
				}
				if field, op, value, ok := asTriple(inner); ok {
					out = append(out, n.repairOperator(model.Condition{Field: field, Operator: op, Value: value})...)
				}
			}
			return out
		}
	}

	n.logger.Debug("dropping malformed filter condition",
		zap.Int("members", len(item)))
	return nil
}

// asTriple extracts a (field, operator, value) leaf from a 3-element list.
func asTriple(item []any) (field, op string, value any, ok bool) {
	if len(item) != 3 {
		return "", "", nil, false
	}
	field, fOK := item[0].(string)
	if !fOK {
		return "", "", nil, false
	}
	op, oOK := item[1].(string)
	if !oOK {
		return "", "", nil, false
	}
	return field, op, item[2], true
}

// mapFieldKeys and mapOperatorKeys are the synonym sets the model uses for
// map-shaped conditions.
var (
	mapFieldKeys    = []string{"field", "name", "column"}
	mapOperatorKeys = []string{"operator", "op"}
)

// leafFromMap converts a synonym-keyed map into a leaf condition. A nil
// value drops the whole entry, deliberately without a diagnostic.
func leafFromMap(m map[string]any) (model.Condition, bool) {
	var field string
	for _, key := range mapFieldKeys {
		if s, ok := m[key].(string); ok && s != "" {
			field = s
			break
		}
	}

	operator := "="
	for _, key := range mapOperatorKeys {
		if s, ok := m[key].(string); ok && s != "" {
			operator = s
			break
		}
	}

	value, hasValue := m["value"]
	if field == "" || !hasValue || value == nil {
		return model.Condition{}, false
	}
	return model.Condition{Field: field, Operator: operator, Value: value}, true
}

// repairOperator emits zero or more valid leaves for one input leaf. Valid
// operators pass through; known pseudo-operators are rewritten; everything
// else is dropped so an invalid operator token can never reach the backend.
func (n *Normalizer) repairOperator(c model.Condition) model.Domain {
	if validOperators[c.Operator] {
		return model.Domain{model.Leaf(c.Field, c.Operator, c.Value)}
	}

	switch strings.ToLower(c.Operator) {
	case "year":
		year, err := yearOf(c.Value)
		if err != nil {
			n.logger.Warn("cannot convert year filter value, dropping condition",
				zap.String("field", c.Field), zap.Any("value", c.Value))
			return nil
		}
		return model.Domain{
			model.Tok(model.DomainAnd),
			model.Leaf(c.Field, ">=", fmt.Sprintf("%d-01-01", year)),
			model.Leaf(c.Field, "<", fmt.Sprintf("%d-01-01", year+1)),
		}

	case "month":
		// A month alone gives no year to anchor a range on. Dropping is a
		// known limitation; log loudly rather than guess the year.
		n.logger.Warn("'month' filter operator is not supported, dropping condition",
			zap.String("field", c.Field), zap.Any("value", c.Value))
		return nil

	case "contains":
		return model.Domain{model.Leaf(c.Field, "ilike", c.Value)}

	case "starts_with", "startswith":
		return model.Domain{model.Leaf(c.Field, "=like", fmt.Sprintf("%v%%", c.Value))}

	case "ends_with", "endswith":
		return model.Domain{model.Leaf(c.Field, "=like", fmt.Sprintf("%%%v", c.Value))}

	default:
		n.logger.Warn("unknown filter operator, dropping condition",
			zap.String("field", c.Field), zap.String("operator", c.Operator))
		return nil
	}
}

func yearOf(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("not a year: %T", value)
	}
}
