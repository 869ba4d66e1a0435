package model

import "time"

// Field kinds as reported by the ERP's fields_get introspection.
const (
	KindChar      = "char"
	KindText      = "text"
	KindHTML      = "html"
	KindInteger   = "integer"
	KindFloat     = "float"
	KindMonetary  = "monetary"
	KindBoolean   = "boolean"
	KindDate      = "date"
	KindDatetime  = "datetime"
	KindSelection = "selection"
	KindMany2one  = "many2one"
	KindOne2many  = "one2many"
	KindMany2many = "many2many"
	KindBinary    = "binary"
)

// SelectionOption is one (value, label) pair of a selection field. The raw
// value is what the backend accepts; the label is what users see.
type SelectionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldSchema describes one field of one backend model.
type FieldSchema struct {
	Name      string            `json:"name"`
	Kind      string            `json:"kind"`
	Label     string            `json:"label"`
	Help      string            `json:"help,omitempty"`
	Required  bool              `json:"required"`
	ReadOnly  bool              `json:"readonly"`
	Selection []SelectionOption `json:"selection,omitempty"`
	Relation  string            `json:"relation,omitempty"`
}

// SelectionValues returns the ordered raw values of a selection field,
// or nil for non-selection fields.
func (f *FieldSchema) SelectionValues() []string {
	if len(f.Selection) == 0 {
		return nil
	}
	values := make([]string, len(f.Selection))
	for i, opt := range f.Selection {
		values[i] = opt.Value
	}
	return values
}

// SelectionLabels returns the value→label mapping of a selection field.
func (f *FieldSchema) SelectionLabels() map[string]string {
	if len(f.Selection) == 0 {
		return nil
	}
	labels := make(map[string]string, len(f.Selection))
	for _, opt := range f.Selection {
		labels[opt.Value] = opt.Label
	}
	return labels
}

// EntitySchema is the full field map of one backend model. Once built it is
// never mutated; a cache refresh replaces the whole value, so concurrent
// readers are safe without locking.
type EntitySchema struct {
	Model    string                  `json:"model"`
	Fields   map[string]*FieldSchema `json:"fields"`
	LoadedAt time.Time               `json:"loaded_at"`
}

// Field returns the schema for the named field, or nil if unknown.
func (s *EntitySchema) Field(name string) *FieldSchema {
	return s.Fields[name]
}

// RequiredFields returns the names of required writable fields.
func (s *EntitySchema) RequiredFields() []string {
	var names []string
	for name, f := range s.Fields {
		if f.Required && !f.ReadOnly {
			names = append(names, name)
		}
	}
	return names
}

// WritableFields returns the names of non-readonly fields.
func (s *EntitySchema) WritableFields() []string {
	var names []string
	for name, f := range s.Fields {
		if !f.ReadOnly {
			names = append(names, name)
		}
	}
	return names
}
