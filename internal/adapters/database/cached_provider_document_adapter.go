package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
)

// DefaultDocumentCacheTTL is used when no TTL is configured, in seconds
const DefaultDocumentCacheTTL = 60

const documentCacheMetricKey = "provider:doc"

func providerDocumentCacheKey(id string) string {
	return fmt.Sprintf("provider:doc:%s", id)
}

// CachedProviderDocumentAdapter wraps a ProviderDocumentRepository with a
// per-document cache. Lists always go to the store.
type CachedProviderDocumentAdapter struct {
	adapter repositories.ProviderDocumentRepository
	cache   providers.CacheProvider
	ttl     int
	metrics *observability.Metrics
}

// NewCachedProviderDocumentAdapter creates a new cached provider document adapter
func NewCachedProviderDocumentAdapter(
	adapter repositories.ProviderDocumentRepository,
	cache providers.CacheProvider,
	ttlSeconds int,
	metrics *observability.Metrics,
) *CachedProviderDocumentAdapter {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultDocumentCacheTTL
	}
	return &CachedProviderDocumentAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
		metrics: metrics,
	}
}

// GetByID retrieves a provider document, serving from cache when possible
func (a *CachedProviderDocumentAdapter) GetByID(ctx context.Context, id string) (*document.Record, error) {
	cacheKey := providerDocumentCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var record document.Record
		if err := json.Unmarshal(cached, &record); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, documentCacheMetricKey)
			return &record, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", id).Msg("discarding undecodable cached document")
	}
	observability.RecordCacheMiss(ctx, a.metrics, documentCacheMetricKey)

	record, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(record)
	return record, nil
}

// GetByIDs retrieves provider documents in the order of ids, fetching only
// the cache misses from the store. Unknown ids are skipped.
func (a *CachedProviderDocumentAdapter) GetByIDs(ctx context.Context, ids []string) ([]*document.Record, error) {
	if len(ids) == 0 {
		return []*document.Record{}, nil
	}

	cacheKeys := make([]string, len(ids))
	for i, id := range ids {
		cacheKeys[i] = providerDocumentCacheKey(id)
	}

	cached, err := a.cache.GetMulti(ctx, cacheKeys)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("document cache unavailable, reading from store")
		cached = map[string][]byte{}
	}

	found := make(map[string]*document.Record, len(ids))
	var missingIDs []string
	for i, id := range ids {
		if data, ok := cached[cacheKeys[i]]; ok {
			var record document.Record
			if err := json.Unmarshal(data, &record); err == nil {
				found[id] = &record
				observability.RecordCacheHit(ctx, a.metrics, documentCacheMetricKey)
				continue
			}
		}
		observability.RecordCacheMiss(ctx, a.metrics, documentCacheMetricKey)
		missingIDs = append(missingIDs, id)
	}

	if len(missingIDs) > 0 {
		records, err := a.adapter.GetByIDs(ctx, missingIDs)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			found[record.ID] = record
			a.store(record)
		}
	}

	out := make([]*document.Record, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if record, ok := found[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, record)
		}
	}
	return out, nil
}

// List is not cached
func (a *CachedProviderDocumentAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*document.Record, int, error) {
	return a.adapter.List(ctx, filter)
}

// Evict drops cached documents so the next read goes to the store
func (a *CachedProviderDocumentAdapter) Evict(ctx context.Context, ids ...string) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = providerDocumentCacheKey(id)
	}
	return a.cache.Delete(ctx, keys...)
}

// store writes a record to the cache without blocking the response
func (a *CachedProviderDocumentAdapter) store(record *document.Record) {
	go func() {
		data, err := json.Marshal(record)
		if err != nil {
			return
		}
		if err := a.cache.Set(context.Background(), providerDocumentCacheKey(record.ID), data, a.ttl); err != nil {
			observability.GetLogger().Warn().Err(err).Str("provider_id", record.ID).Msg("failed to cache provider document")
		}
	}()
}
