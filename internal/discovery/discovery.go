// Package discovery maintains a catalog of the models installed on the
// backend: which exist, what to call them, which fields are safe to read
// without tripping ACLs on related models, and which workflow methods are
// commonly available.
package discovery

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/undergnarly/odoo-mcp-chat/internal/odoo"
)

// ModelInfo describes one installed model.
type ModelInfo struct {
	Model       string `json:"model"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// skippedPrefixes are framework-internal models hidden from users.
var skippedPrefixes = []string{"ir.", "base.", "web."}

// Service discovers installed models via ir.model, with a TTL cache and a
// static fallback catalog for installations where ir.model is not readable.
type Service struct {
	client odoo.Client
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.RWMutex
	catalog  map[string]ModelInfo
	loadedAt time.Time
}

// NewService creates a discovery service. ttl <= 0 defaults to five minutes.
func NewService(client odoo.Client, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, ttl: ttl, logger: logger}
}

// Models returns the installed-model catalog, refreshing it when stale.
// ir.model access failures fall back to the static default catalog rather
// than erroring: discovery is advisory, not authoritative.
func (s *Service) Models(ctx context.Context, forceRefresh bool) map[string]ModelInfo {
	s.mu.RLock()
	fresh := s.catalog != nil && time.Since(s.loadedAt) < s.ttl
	catalog := s.catalog
	s.mu.RUnlock()
	if fresh && !forceRefresh {
		return catalog
	}

	catalog = s.fetchCatalog(ctx)

	s.mu.Lock()
	s.catalog = catalog
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return catalog
}

func (s *Service) fetchCatalog(ctx context.Context) map[string]ModelInfo {
	records, err := s.client.SearchRead(ctx, "ir.model", []any{},
		[]string{"model", "name", "info"}, 0, 0)
	if err != nil {
		s.logger.Warn("ir.model not readable, using default catalog", zap.Error(err))
		return defaultCatalog()
	}
	if len(records) == 0 {
		s.logger.Warn("ir.model returned nothing, using default catalog")
		return defaultCatalog()
	}

	catalog := make(map[string]ModelInfo, len(records))
	for _, rec := range records {
		modelName, _ := rec["model"].(string)
		if modelName == "" || hasSkippedPrefix(modelName) {
			continue
		}
		info := ModelInfo{Model: modelName}
		info.Name, _ = rec["name"].(string)
		info.Description, _ = rec["info"].(string)
		catalog[modelName] = info
	}
	s.logger.Info("discovered models", zap.Int("count", len(catalog)))
	return catalog
}

func hasSkippedPrefix(model string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// SearchByKeyword returns installed model names containing the keyword,
// sorted for stable output.
func (s *Service) SearchByKeyword(ctx context.Context, keyword string) []string {
	keyword = strings.ToLower(keyword)
	var matches []string
	for name := range s.Models(ctx, false) {
		if strings.Contains(strings.ToLower(name), keyword) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// SafeFields returns the fields that can be read on a model without
// triggering access errors on related models. Common models get a curated
// list; everything else gets a conservative default.
func (s *Service) SafeFields(model string) []string {
	if fields, ok := modelSafeFields[model]; ok {
		return fields
	}
	return defaultSafeFields
}

// Methods returns the workflow methods likely available on a model. True
// introspection is not possible over RPC; this is the curated common set.
func (s *Service) Methods(model string) []string {
	methods := append([]string{}, commonMethods...)
	methods = append(methods, modelMethods[model]...)
	return methods
}
