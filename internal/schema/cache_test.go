package schema

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/undergnarly/odoo-mcp-chat/internal/odoo"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

// fakeClient stubs the introspection call; everything else panics if used.
type fakeClient struct {
	odoo.Client

	mu      sync.Mutex
	calls   int
	fields  map[string]map[string]any
	failFor map[string]bool
}

func (f *fakeClient) FieldsGet(_ context.Context, modelName string, _ []string) (map[string]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFor[modelName] {
		return nil, errors.New("model not found")
	}
	return f.fields, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func introspectionPayload() map[string]map[string]any {
	return map[string]map[string]any{
		"name": {"type": "char", "string": "Name", "required": true},
		"state": {
			"type":   "selection",
			"string": "Status",
			"selection": []any{
				[]any{"draft", "Draft"},
				[]any{"done", "Done"},
			},
		},
		"partner_id": {"type": "many2one", "string": "Customer", "relation": "res.partner"},
		"total":      {"type": "monetary", "string": "Total", "readonly": true},
		"help_none":  {"type": "char", "string": "X", "help": false},
		"__last_update": {"type": "datetime", "string": "Last Modified"},
	}
}

func TestGetCachesAndCountsHits(t *testing.T) {
	client := &fakeClient{fields: introspectionPayload()}
	hits, misses := 0, 0
	cache := NewCache(client, Options{
		TTL:    time.Hour,
		OnHit:  func() { hits++ },
		OnMiss: func() { misses++ },
	})
	ctx := context.Background()

	first, err := cache.Get(ctx, "sale.order", false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Get(ctx, "sale.order", false)
	if err != nil {
		t.Fatal(err)
	}

	if client.callCount() != 1 {
		t.Errorf("backend calls = %d, want 1", client.callCount())
	}
	if first != second {
		t.Error("second Get should return the cached schema value")
	}
	if hits != 1 || misses != 1 {
		t.Errorf("hits=%d misses=%d, want 1/1", hits, misses)
	}
}

func TestGetParsesFields(t *testing.T) {
	client := &fakeClient{fields: introspectionPayload()}
	cache := NewCache(client, Options{})

	schema, err := cache.Get(context.Background(), "sale.order", false)
	if err != nil {
		t.Fatal(err)
	}

	if schema.Model != "sale.order" {
		t.Errorf("model = %q", schema.Model)
	}
	if schema.Field("__last_update") != nil {
		t.Error("internal double-underscore fields must be dropped")
	}

	name := schema.Field("name")
	if name == nil || name.Kind != model.KindChar || !name.Required || name.Label != "Name" {
		t.Errorf("name field = %+v", name)
	}

	state := schema.Field("state")
	if state == nil || len(state.Selection) != 2 {
		t.Fatalf("state field = %+v", state)
	}
	if state.Selection[0].Value != "draft" || state.Selection[0].Label != "Draft" {
		t.Errorf("selection[0] = %+v", state.Selection[0])
	}

	partner := schema.Field("partner_id")
	if partner == nil || partner.Relation != "res.partner" {
		t.Errorf("partner_id = %+v", partner)
	}

	total := schema.Field("total")
	if total == nil || !total.ReadOnly {
		t.Errorf("total = %+v", total)
	}

	// fields_get reports absent attributes as false, not missing.
	if h := schema.Field("help_none"); h == nil || h.Help != "" {
		t.Errorf("help_none = %+v", h)
	}
}

func TestGetExpiredEntryReloads(t *testing.T) {
	client := &fakeClient{fields: introspectionPayload()}
	cache := NewCache(client, Options{TTL: time.Minute})
	ctx := context.Background()

	if _, err := cache.Get(ctx, "sale.order", false); err != nil {
		t.Fatal(err)
	}

	cache.mu.Lock()
	cache.entries["sale.order"].LoadedAt = time.Now().Add(-2 * time.Minute)
	cache.mu.Unlock()

	if _, err := cache.Get(ctx, "sale.order", false); err != nil {
		t.Fatal(err)
	}
	if client.callCount() != 2 {
		t.Errorf("backend calls = %d, want reload after expiry", client.callCount())
	}
}

func TestGetForceReloadBypassesCache(t *testing.T) {
	client := &fakeClient{fields: introspectionPayload()}
	cache := NewCache(client, Options{TTL: time.Hour})
	ctx := context.Background()

	cache.Get(ctx, "sale.order", false)
	cache.Get(ctx, "sale.order", true)

	if client.callCount() != 2 {
		t.Errorf("backend calls = %d, want 2", client.callCount())
	}
}

func TestGetFailurePropagatesAndLeavesCacheEmpty(t *testing.T) {
	client := &fakeClient{
		fields:  introspectionPayload(),
		failFor: map[string]bool{"bad.model": true},
	}
	cache := NewCache(client, Options{})

	if _, err := cache.Get(context.Background(), "bad.model", false); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.CachedModels()) != 0 {
		t.Errorf("cached models = %v, want none", cache.CachedModels())
	}
}

func TestInvalidate(t *testing.T) {
	client := &fakeClient{fields: introspectionPayload()}
	cache := NewCache(client, Options{})
	ctx := context.Background()

	cache.Get(ctx, "sale.order", false)
	cache.Get(ctx, "res.partner", false)

	cache.Invalidate("sale.order")
	got := cache.CachedModels()
	if len(got) != 1 || got[0] != "res.partner" {
		t.Errorf("cached models = %v", got)
	}

	cache.InvalidateAll()
	if len(cache.CachedModels()) != 0 {
		t.Error("InvalidateAll should empty the cache")
	}
}

func TestStats(t *testing.T) {
	client := &fakeClient{fields: introspectionPayload()}
	cache := NewCache(client, Options{TTL: time.Hour})

	cache.Get(context.Background(), "sale.order", false)

	stats := cache.Stats()
	entry, ok := stats["sale.order"]
	if !ok {
		t.Fatalf("stats = %v", stats)
	}
	if entry.Fields != 5 {
		t.Errorf("fields = %d, want 5", entry.Fields)
	}
	if entry.ExpiresIn <= 0 || entry.ExpiresIn > 3600 {
		t.Errorf("expires_in = %d", entry.ExpiresIn)
	}
}

func TestPreloadCommonRecordsPerModelOutcome(t *testing.T) {
	client := &fakeClient{
		fields:  introspectionPayload(),
		failFor: map[string]bool{"crm.lead": true, "hr.employee": true},
	}
	cache := NewCache(client, Options{})

	results := cache.PreloadCommon(context.Background())

	if len(results) != len(CommonModels) {
		t.Fatalf("results cover %d models, want %d", len(results), len(CommonModels))
	}
	if results["crm.lead"] || results["hr.employee"] {
		t.Error("failed models should be reported false")
	}
	if !results["sale.order"] || !results["res.partner"] {
		t.Error("loaded models should be reported true")
	}

	cached := cache.CachedModels()
	sort.Strings(cached)
	if len(cached) != len(CommonModels)-2 {
		t.Errorf("cached %d models, want %d", len(cached), len(CommonModels)-2)
	}
}

func TestParseSelectionSkipsMalformedPairs(t *testing.T) {
	opts := parseSelection([]any{
		[]any{"a", "A"},
		"not a pair",
		[]any{"only-one"},
		[]any{1, 2},
		[]any{"b", "B"},
	})
	if len(opts) != 2 || opts[0].Value != "a" || opts[1].Value != "b" {
		t.Errorf("options = %+v", opts)
	}

	if parseSelection(false) != nil {
		t.Error("non-list selection payload should yield nil")
	}
}
