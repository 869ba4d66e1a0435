package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// priorityFields are listed first in prompt renderings because they are
// the fields users refer to most.
var priorityFields = []string{
	"name", "state", "date", "date_order", "partner_id",
	"amount_total", "product_id", "quantity", "price_unit",
}

const (
	defaultMaxFields  = 25
	maxSelectionShown = 10
	maxHelpExcerpt    = 80
)

// FormatForPrompt renders up to maxFields fields of a schema as a bounded,
// LLM-readable description. It is a display concern only and must never be
// used to decide acceptance.
func FormatForPrompt(schema *model.EntitySchema, fields []string, maxFields int) string {
	if maxFields <= 0 {
		maxFields = defaultMaxFields
	}

	var target []string
	if len(fields) > 0 {
		for _, name := range fields {
			if schema.Field(name) != nil {
				target = append(target, name)
			}
		}
	} else {
		seen := make(map[string]bool)
		for _, name := range priorityFields {
			if schema.Field(name) != nil {
				target = append(target, name)
				seen[name] = true
			}
		}
		var rest []string
		for name, f := range schema.Fields {
			if !seen[name] && !f.ReadOnly {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		target = append(target, rest...)
	}

	if len(target) > maxFields {
		target = target[:maxFields]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Model: %s\n### Available Fields:", schema.Model)
	for _, name := range target {
		f := schema.Field(name)
		if f == nil {
			continue
		}
		b.WriteString("\n")
		b.WriteString(describeField(f))
	}

	if len(schema.Fields) > maxFields {
		fmt.Fprintf(&b, "\n\n_... and %d more fields_", len(schema.Fields)-maxFields)
	}
	return b.String()
}

func describeField(f *model.FieldSchema) string {
	parts := []string{fmt.Sprintf("- **%s** (%s)", f.Name, f.Kind)}

	if f.Required {
		parts = append(parts, "[required]")
	}
	if f.Label != "" && f.Label != f.Name {
		parts = append(parts, fmt.Sprintf("%q", f.Label))
	}
	if len(f.Selection) > 0 {
		values := f.SelectionValues()
		if len(values) > maxSelectionShown {
			values = append(values[:maxSelectionShown:maxSelectionShown], "...")
		}
		parts = append(parts, fmt.Sprintf("values: [%s]", strings.Join(values, ", ")))
	}
	if f.Relation != "" {
		parts = append(parts, "-> "+f.Relation)
	}
	if f.Help != "" {
		help := strings.ReplaceAll(f.Help, "\n", " ")
		// Rune-wise so that non-ASCII help text is never cut mid-character.
		if r := []rune(help); len(r) > maxHelpExcerpt {
			help = string(r[:maxHelpExcerpt]) + "..."
		}
		parts = append(parts, "- "+help)
	}
	return strings.Join(parts, " ")
}

// FormatStateInfo renders the full choice list of the schema's "state"
// selection field as value→label lines, or "" when the schema has no such
// field.
func FormatStateInfo(schema *model.EntitySchema) string {
	state := schema.Field("state")
	if state == nil || len(state.Selection) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### Statuses for %s:", schema.Model)
	for _, opt := range state.Selection {
		fmt.Fprintf(&b, "\n- `%s`: %s", opt.Value, opt.Label)
	}
	return b.String()
}
