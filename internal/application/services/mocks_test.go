package services_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
)

type MockProviderDocumentRepository struct {
	mock.Mock
}

func (m *MockProviderDocumentRepository) GetByID(ctx context.Context, id string) (*document.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Record), args.Error(1)
}

func (m *MockProviderDocumentRepository) GetByIDs(ctx context.Context, ids []string) ([]*document.Record, error) {
	args := m.Called(ctx, ids)
	if fn, ok := args.Get(0).(func(context.Context, []string) []*document.Record); ok {
		return fn(ctx, ids), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Record), args.Error(1)
}

func (m *MockProviderDocumentRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*document.Record, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*document.Record), args.Int(1), args.Error(2)
}

type MockProviderSearchRepository struct {
	mock.Mock
}

func (m *MockProviderSearchRepository) Search(ctx context.Context, params repositories.ProviderSearchParams) ([]string, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]string), args.Int(1), args.Error(2)
}

func (m *MockProviderSearchRepository) Index(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockProviderSearchRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockDocumentCache records evictions
type MockDocumentCache struct {
	mu      sync.Mutex
	evicted []string
	err     error
}

func (m *MockDocumentCache) Evict(ctx context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.evicted = append(m.evicted, ids...)
	return nil
}

func (m *MockDocumentCache) Evicted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.evicted...)
}

// MockEventBus delivers published events to in-process subscribers
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.ProviderEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{subscribers: make(map[string][]chan *entities.ProviderEvent)}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ProviderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.ProviderEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		close(ch)
	}
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, channels := range m.subscribers {
		for _, ch := range channels {
			close(ch)
		}
		delete(m.subscribers, channel)
	}
	return nil
}

func (m *MockEventBus) SubscriberCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers[channel])
}

func record(id string, fields document.Document) *document.Record {
	return &document.Record{ID: id, Data: fields}
}
