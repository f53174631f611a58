package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	redisclient "github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/redis"
)

func newTestBus(t *testing.T) (providers.EventBus, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := NewRedisEventBus(redisclient.NewFromClient(client))
	t.Cleanup(func() { _ = bus.Close() })
	return bus, mr
}

func receive(t *testing.T, ch <-chan *entities.ProviderEvent) *entities.ProviderEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	require.NoError(t, err)

	event := entities.NewProviderEvent("prov-1", entities.ProviderEventTypeUpdated)
	require.NoError(t, bus.Publish(ctx, providers.EventChannelProviderUpdates, event))

	for _, ch := range []<-chan *entities.ProviderEvent{first, second} {
		got := receive(t, ch)
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "prov-1", got.ProviderID)
		assert.Equal(t, entities.ProviderEventTypeUpdated, got.EventType)
	}
}

func TestRedisEventBus_DropsMalformedPayload(t *testing.T) {
	bus, mr := newTestBus(t)
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	require.NoError(t, err)

	mr.Publish(providers.EventChannelProviderUpdates, "not json")
	event := entities.NewProviderEvent("prov-2", entities.ProviderEventTypeDeleted)
	require.NoError(t, bus.Publish(ctx, providers.EventChannelProviderUpdates, event))

	assert.Equal(t, "prov-2", receive(t, ch).ProviderID)
}

func TestRedisEventBus_ContextCancelClosesChannel(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisEventBus_Unsubscribe(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	require.NoError(t, err)
	require.NoError(t, bus.Unsubscribe(ctx, providers.EventChannelProviderUpdates))

	_, ok := <-ch
	assert.False(t, ok)
}
