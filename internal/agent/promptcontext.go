package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/undergnarly/odoo-mcp-chat/internal/discovery"
	"github.com/undergnarly/odoo-mcp-chat/internal/schema"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

const promptSchemaFieldLimit = 25

// PromptContext feeds the classifier prompt with the live model catalog and
// schema excerpts. It implements intent.ContextProvider.
type PromptContext struct {
	Discovery *discovery.Service
	Schemas   *schema.Cache
}

// CatalogLines returns one line per known model for the classifier prompt.
func (p *PromptContext) CatalogLines(ctx context.Context) []string {
	if p.Discovery == nil {
		return nil
	}
	catalog := p.Discovery.Models(ctx, false)
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, catalog[name].Name))
	}
	return lines
}

// SchemaExcerpts returns compact schema excerpts for the hinted model, so
// the classifier can produce valid field names and selection values.
func (p *PromptContext) SchemaExcerpts(ctx context.Context, hint string) []string {
	if p.Schemas == nil || hint == "" {
		return nil
	}
	sc, err := p.Schemas.Get(ctx, hint, false)
	if err != nil {
		return nil
	}
	return []string{schema.FormatForPrompt(sc, nil, promptSchemaFieldLimit)}
}

func formatSchemaSummary(sc *model.EntitySchema) string {
	return schema.FormatForPrompt(sc, nil, promptSchemaFieldLimit)
}
