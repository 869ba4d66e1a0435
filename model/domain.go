package model

import (
	"encoding/json"
	"fmt"
)

// Prefix-notation combinator tokens used in backend domain expressions.
const (
	DomainAnd = "&"
	DomainOr  = "|"
	DomainNot = "!"
)

// Condition is a single (field, operator, value) leaf of a domain expression.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// DomainElement is one element of a domain expression: either a combinator
// token or a leaf condition. Exactly one of Token and Leaf is set.
type DomainElement struct {
	Token string
	Leaf  *Condition
}

// Tok wraps a combinator token as a domain element.
func Tok(token string) DomainElement {
	return DomainElement{Token: token}
}

// Leaf wraps a (field, operator, value) triple as a domain element.
func Leaf(field, operator string, value any) DomainElement {
	return DomainElement{Leaf: &Condition{Field: field, Operator: operator, Value: value}}
}

// Domain is a backend query predicate: a flat sequence of combinator tokens
// and leaf conditions in prefix notation. An empty domain matches everything.
//
// The JSON encoding is the backend's native one, a mixed array of strings
// and three-element arrays:
//
//	["&", ["date_order", ">=", "2025-01-01"], ["state", "=", "sale"]]
type Domain []DomainElement

// MarshalJSON encodes the domain in the backend's wire shape.
func (d Domain) MarshalJSON() ([]byte, error) {
	out := make([]any, len(d))
	for i, el := range d {
		if el.Leaf != nil {
			out[i] = []any{el.Leaf.Field, el.Leaf.Operator, el.Leaf.Value}
		} else {
			out[i] = el.Token
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the backend's wire shape back into a Domain.
func (d *Domain) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Domain, 0, len(raw))
	for i, el := range raw {
		switch v := el.(type) {
		case string:
			out = append(out, Tok(v))
		case []any:
			if len(v) != 3 {
				return fmt.Errorf("domain element %d: want 3 members, got %d", i, len(v))
			}
			field, ok := v[0].(string)
			if !ok {
				return fmt.Errorf("domain element %d: field is %T, want string", i, v[0])
			}
			op, ok := v[1].(string)
			if !ok {
				return fmt.Errorf("domain element %d: operator is %T, want string", i, v[1])
			}
			out = append(out, Leaf(field, op, v[2]))
		default:
			return fmt.Errorf("domain element %d: unsupported type %T", i, el)
		}
	}
	*d = out
	return nil
}

// ToWire converts the domain into the []any shape the RPC layer sends.
func (d Domain) ToWire() []any {
	out := make([]any, len(d))
	for i, el := range d {
		if el.Leaf != nil {
			out[i] = []any{el.Leaf.Field, el.Leaf.Operator, el.Leaf.Value}
		} else {
			out[i] = el.Token
		}
	}
	return out
}
