// Package schema fetches and caches field metadata per backend model. The
// cache is the single source of truth for "what fields does model X have
// and what are their constraints", shielding callers from redundant
// introspection calls.
package schema

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/undergnarly/odoo-mcp-chat/internal/odoo"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

// CommonModels are preloaded at startup so the first user request does not
// pay the introspection cost for the usual business objects.
var CommonModels = []string{
	"sale.order",
	"sale.order.line",
	"purchase.order",
	"purchase.order.line",
	"res.partner",
	"product.product",
	"product.template",
	"account.move",
	"account.move.line",
	"stock.picking",
	"stock.move",
	"crm.lead",
	"project.project",
	"project.task",
	"hr.employee",
}

// introspectionAttributes is what we ask fields_get for.
var introspectionAttributes = []string{
	"string", "help", "type", "selection", "relation", "required", "readonly",
}

// Cache memoizes EntitySchema values per model name with lazy TTL expiry.
// Entries are immutable; a refresh stores a new schema, so concurrent
// readers never see a partially updated one. Concurrent misses for the same
// model may each fetch independently; last write wins, which is fine since
// introspection is idempotent.
type Cache struct {
	client odoo.Client
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*model.EntitySchema

	hits   func()
	misses func()
}

// Options configures a Cache.
type Options struct {
	TTL    time.Duration
	Logger *zap.Logger
	// OnHit and OnMiss are optional metric hooks.
	OnHit  func()
	OnMiss func()
}

// NewCache creates a schema cache over the given backend client.
func NewCache(client odoo.Client, opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() {}
	hits, misses := opts.OnHit, opts.OnMiss
	if hits == nil {
		hits = noop
	}
	if misses == nil {
		misses = noop
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]*model.EntitySchema),
		hits:    hits,
		misses:  misses,
	}
}

// Get returns the schema for a model, loading it from the backend on a
// miss, an expired entry, or forceReload. Failures propagate and leave the
// cache untouched: there is no safe default for an unknown model shape.
func (c *Cache) Get(ctx context.Context, modelName string, forceReload bool) (*model.EntitySchema, error) {
	if !forceReload {
		if schema := c.lookup(modelName); schema != nil {
			c.hits()
			c.logger.Debug("schema cache hit", zap.String("model", modelName))
			return schema, nil
		}
	}
	c.misses()
	return c.load(ctx, modelName)
}

// lookup returns a cached, non-expired schema or nil.
func (c *Cache) lookup(modelName string) *model.EntitySchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.entries[modelName]
	if !ok || time.Since(schema.LoadedAt) >= c.ttl {
		return nil
	}
	return schema
}

// load fetches, parses, and stores a schema.
func (c *Cache) load(ctx context.Context, modelName string) (*model.EntitySchema, error) {
	c.logger.Info("loading schema from backend", zap.String("model", modelName))

	raw, err := c.client.FieldsGet(ctx, modelName, introspectionAttributes)
	if err != nil {
		c.logger.Error("schema load failed",
			zap.String("model", modelName), zap.Error(err))
		return nil, err
	}

	schema := parseFields(modelName, raw)
	c.mu.Lock()
	c.entries[modelName] = schema
	c.mu.Unlock()

	c.logger.Info("cached schema",
		zap.String("model", modelName), zap.Int("fields", len(schema.Fields)))
	return schema, nil
}

// parseFields converts a raw fields_get payload into an EntitySchema,
// dropping internal double-underscore fields.
func parseFields(modelName string, raw map[string]map[string]any) *model.EntitySchema {
	fields := make(map[string]*model.FieldSchema, len(raw))
	for name, info := range raw {
		if strings.HasPrefix(name, "__") {
			continue
		}
		fields[name] = parseField(name, info)
	}
	return &model.EntitySchema{
		Model:    modelName,
		Fields:   fields,
		LoadedAt: time.Now(),
	}
}

func parseField(name string, info map[string]any) *model.FieldSchema {
	f := &model.FieldSchema{
		Name:  name,
		Kind:  stringAttr(info, "type", model.KindChar),
		Label: stringAttr(info, "string", name),
		Help:  stringAttr(info, "help", ""),
	}
	f.Required, _ = info["required"].(bool)
	f.ReadOnly, _ = info["readonly"].(bool)
	f.Relation = stringAttr(info, "relation", "")
	f.Selection = parseSelection(info["selection"])
	return f
}

// parseSelection decodes the [[value, label], ...] selection payload.
// Entries that do not fit the pair shape are skipped.
func parseSelection(raw any) []model.SelectionOption {
	pairs, ok := raw.([]any)
	if !ok || len(pairs) == 0 {
		return nil
	}
	options := make([]model.SelectionOption, 0, len(pairs))
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		value, okV := pair[0].(string)
		label, okL := pair[1].(string)
		if !okV || !okL {
			continue
		}
		options = append(options, model.SelectionOption{Value: value, Label: label})
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

func stringAttr(info map[string]any, key, fallback string) string {
	// fields_get reports absent attributes as false rather than omitting them.
	if s, ok := info[key].(string); ok {
		return s
	}
	return fallback
}

// PreloadCommon warms the cache for the common models. Individual failures
// are recorded in the result map without aborting the rest.
func (c *Cache) PreloadCommon(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(CommonModels))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range CommonModels {
		g.Go(func() error {
			_, err := c.Get(ctx, name, false)
			mu.Lock()
			results[name] = err == nil
			mu.Unlock()
			if err != nil {
				c.logger.Warn("preload failed",
					zap.String("model", name), zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()

	loaded := 0
	for _, ok := range results {
		if ok {
			loaded++
		}
	}
	c.logger.Info("schema preload finished",
		zap.Int("loaded", loaded), zap.Int("total", len(CommonModels)))
	return results
}

// Invalidate removes one cached entry.
func (c *Cache) Invalidate(modelName string) {
	c.mu.Lock()
	delete(c.entries, modelName)
	c.mu.Unlock()
	c.logger.Debug("invalidated schema", zap.String("model", modelName))
}

// InvalidateAll clears the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*model.EntitySchema)
	c.mu.Unlock()
	c.logger.Debug("invalidated all schemas")
}

// CachedModels returns the names of currently cached models, including
// expired entries that have not been replaced yet.
func (c *Cache) CachedModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names
}

// EntryStats describes one cached schema for diagnostics.
type EntryStats struct {
	Fields    int   `json:"fields"`
	AgeSecs   int64 `json:"age_seconds"`
	ExpiresIn int64 `json:"expires_in"`
}

// Stats returns per-model cache statistics.
func (c *Cache) Stats() map[string]EntryStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	stats := make(map[string]EntryStats, len(c.entries))
	for name, schema := range c.entries {
		age := now.Sub(schema.LoadedAt)
		stats[name] = EntryStats{
			Fields:    len(schema.Fields),
			AgeSecs:   int64(age.Seconds()),
			ExpiresIn: int64((c.ttl - age).Seconds()),
		}
	}
	return stats
}
