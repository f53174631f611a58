package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/internal/normalizer"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

const eventHandleTimeout = 5 * time.Second

// DocumentCache drops cached provider documents
type DocumentCache interface {
	Evict(ctx context.Context, ids ...string) error
}

// CacheInvalidationService keeps the document cache and the search index in
// step with provider events published by intake tooling.
type CacheInvalidationService struct {
	cache      DocumentCache
	docs       repositories.ProviderDocumentRepository
	searchRepo repositories.ProviderSearchRepository
	eventBus   providers.EventBus
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewCacheInvalidationService creates a new cache invalidation service.
// searchRepo may be nil when search is disabled.
func NewCacheInvalidationService(
	cache DocumentCache,
	docs repositories.ProviderDocumentRepository,
	searchRepo repositories.ProviderSearchRepository,
	eventBus providers.EventBus,
) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:      cache,
		docs:       docs,
		searchRepo: searchRepo,
		eventBus:   eventBus,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins listening for provider events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelProviderUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to provider updates: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	observability.GetLogger().Info().Str("channel", providers.EventChannelProviderUpdates).Msg("cache invalidation service started")
	return nil
}

// Stop stops listening and waits for the event in progress
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	s.wg.Wait()
	observability.GetLogger().Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ProviderEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || event.ProviderID == "" {
				continue
			}
			ctx, cancel := context.WithTimeout(s.ctx, eventHandleTimeout)
			if err := s.HandleEvent(ctx, event); err != nil {
				observability.GetLogger().Warn().Err(err).
					Str("event_id", event.ID).
					Str("provider_id", event.ProviderID).
					Msg("failed to apply provider event")
			}
			cancel()
		}
	}
}

// HandleEvent applies one provider event: the cached document is always
// dropped, then the search index is refreshed or the entry removed.
func (s *CacheInvalidationService) HandleEvent(ctx context.Context, event *entities.ProviderEvent) error {
	logger := observability.LoggerFromContext(ctx).With().
		Str("provider_id", event.ProviderID).
		Str("event_type", string(event.EventType)).
		Logger()

	if err := s.InvalidateProvider(ctx, event.ProviderID); err != nil {
		return err
	}
	logger.Debug().Msg("evicted cached provider document")

	if s.searchRepo == nil {
		return nil
	}

	switch event.EventType {
	case entities.ProviderEventTypeDeleted:
		return s.searchRepo.Delete(ctx, event.ProviderID)
	case entities.ProviderEventTypeUpdated:
		record, err := s.docs.GetByID(ctx, event.ProviderID)
		if apperrors.IsNotFound(err) {
			// Deleted before we got to it.
			return s.searchRepo.Delete(ctx, event.ProviderID)
		}
		if err != nil {
			return err
		}
		return s.searchRepo.Index(ctx, normalizer.Normalize(record.ID, record.Data))
	default:
		logger.Warn().Msg("ignoring unknown provider event type")
		return nil
	}
}

// InvalidateProvider drops the cached document for one provider
func (s *CacheInvalidationService) InvalidateProvider(ctx context.Context, providerID string) error {
	if err := s.cache.Evict(ctx, providerID); err != nil {
		return fmt.Errorf("failed to invalidate provider cache: %w", err)
	}
	return nil
}
