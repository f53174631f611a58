package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/internal/normalizer"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

const (
	// DefaultPageSize applies when a caller does not ask for a limit
	DefaultPageSize = 20
	// MaxPageSize caps list and search pages
	MaxPageSize = 100
	// MaxBatchIDs caps a single batch read
	MaxBatchIDs = 100

	loaderWait = 2 * time.Millisecond
)

// ProviderService reads provider documents and serves them normalized
type ProviderService struct {
	docs       repositories.ProviderDocumentRepository
	searchRepo repositories.ProviderSearchRepository
	loader     *dataloader.Loader[string, *document.Record]
}

// NewProviderService creates a new provider service. searchRepo may be nil,
// which disables Search.
func NewProviderService(docs repositories.ProviderDocumentRepository, searchRepo repositories.ProviderSearchRepository) *ProviderService {
	s := &ProviderService{
		docs:       docs,
		searchRepo: searchRepo,
	}
	// Concurrent batch reads within the wait window share one store query.
	// Results are not cached between batches.
	s.loader = dataloader.NewBatchedLoader(s.loadDocuments,
		dataloader.WithCache[string, *document.Record](&dataloader.NoCache[string, *document.Record]{}),
		dataloader.WithWait[string, *document.Record](loaderWait),
		dataloader.WithBatchCapacity[string, *document.Record](MaxBatchIDs),
	)
	return s
}

func (s *ProviderService) loadDocuments(ctx context.Context, keys []string) []*dataloader.Result[*document.Record] {
	results := make([]*dataloader.Result[*document.Record], len(keys))
	records, err := s.docs.GetByIDs(ctx, keys)

	byID := make(map[string]*document.Record, len(records))
	if err == nil {
		for _, r := range records {
			byID[r.ID] = r
		}
	}

	for i, key := range keys {
		if err != nil {
			results[i] = &dataloader.Result[*document.Record]{Error: err}
		} else if r, ok := byID[key]; ok {
			results[i] = &dataloader.Result[*document.Record]{Data: r}
		} else {
			results[i] = &dataloader.Result[*document.Record]{Error: apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", key))}
		}
	}
	return results
}

// List returns a page of normalized providers
func (s *ProviderService) List(ctx context.Context, filter repositories.ProviderFilter) (*entities.ProviderPage, error) {
	limit, err := pageLimit(filter.Limit)
	if err != nil {
		return nil, err
	}
	if filter.Offset < 0 {
		return nil, apperrors.NewValidationError("offset must not be negative")
	}
	filter.Limit = limit

	records, total, err := s.docs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &entities.ProviderPage{Providers: normalizer.NormalizeAll(records), Total: total}, nil
}

// Get returns one normalized provider
func (s *ProviderService) Get(ctx context.Context, id string) (*entities.Provider, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}

	record, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return normalizer.Normalize(record.ID, record.Data), nil
}

// GetMany returns the providers that exist among ids, in request order.
// Duplicate and unknown ids are skipped.
func (s *ProviderService) GetMany(ctx context.Context, ids []string) (*entities.ProviderPage, error) {
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return &entities.ProviderPage{Providers: []*entities.Provider{}, Total: 0}, nil
	}
	if len(unique) > MaxBatchIDs {
		return nil, apperrors.NewValidationError(fmt.Sprintf("at most %d ids may be requested at once", MaxBatchIDs))
	}

	records, errs := s.loader.LoadMany(ctx, unique)()

	providers := make([]*entities.Provider, 0, len(unique))
	for i, record := range records {
		if i < len(errs) && errs[i] != nil {
			if apperrors.IsNotFound(errs[i]) {
				continue
			}
			return nil, errs[i]
		}
		if record != nil {
			providers = append(providers, normalizer.Normalize(record.ID, record.Data))
		}
	}
	return &entities.ProviderPage{Providers: providers, Total: len(providers)}, nil
}

// Search queries the search index and hydrates hits from the document store,
// keeping index rank order. Total is the index hit count.
func (s *ProviderService) Search(ctx context.Context, params repositories.ProviderSearchParams) (*entities.ProviderPage, error) {
	if s.searchRepo == nil {
		return nil, apperrors.NewUnavailableError("search is not configured", nil)
	}

	limit, err := pageLimit(params.Limit)
	if err != nil {
		return nil, err
	}
	params.Limit = limit
	if params.Offset < 0 {
		return nil, apperrors.NewValidationError("offset must not be negative")
	}
	if (params.Latitude == nil) != (params.Longitude == nil) {
		return nil, apperrors.NewValidationError("lat and lng must be given together")
	}
	if params.Latitude != nil {
		if !validLatLng(*params.Latitude, *params.Longitude) {
			return nil, apperrors.NewValidationError("lat/lng out of range")
		}
	}
	if params.RadiusKm < 0 || math.IsNaN(params.RadiusKm) || math.IsInf(params.RadiusKm, 0) {
		return nil, apperrors.NewValidationError("radius must be a non-negative number")
	}
	if params.RadiusKm > 0 && params.Latitude == nil {
		return nil, apperrors.NewValidationError("radius requires lat and lng")
	}

	ids, total, err := s.searchRepo.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &entities.ProviderPage{Providers: []*entities.Provider{}, Total: total}, nil
	}

	records, err := s.docs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*document.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	providers := make([]*entities.Provider, 0, len(ids))
	for _, id := range ids {
		record, ok := byID[id]
		if !ok {
			// Indexed but gone from the store; the next event removes it.
			observability.LoggerFromContext(ctx).Debug().Str("provider_id", id).Msg("search hit missing from document store")
			continue
		}
		providers = append(providers, normalizer.Normalize(record.ID, record.Data))
	}
	return &entities.ProviderPage{Providers: providers, Total: total}, nil
}

// Reindex walks the whole document store and upserts every provider into the
// search index. Returns the number indexed; individual failures are logged
// and skipped.
func (s *ProviderService) Reindex(ctx context.Context, batchSize int) (int, error) {
	if s.searchRepo == nil {
		return 0, apperrors.NewUnavailableError("search is not configured", nil)
	}
	if batchSize <= 0 {
		batchSize = MaxPageSize
	}

	logger := observability.LoggerFromContext(ctx)
	indexed := 0
	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		records, total, err := s.docs.List(ctx, repositories.ProviderFilter{Limit: batchSize, Offset: offset})
		if err != nil {
			return indexed, err
		}
		for _, provider := range normalizer.NormalizeAll(records) {
			if err := s.searchRepo.Index(ctx, provider); err != nil {
				logger.Warn().Err(err).Str("provider_id", provider.ID).Msg("failed to index provider")
				continue
			}
			indexed++
		}
		if offset+batchSize >= total {
			return indexed, nil
		}
	}
}

func pageLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, apperrors.NewValidationError("limit must not be negative")
	case limit == 0:
		return DefaultPageSize, nil
	case limit > MaxPageSize:
		return MaxPageSize, nil
	default:
		return limit, nil
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func validLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
