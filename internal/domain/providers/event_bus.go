package providers

import (
	"context"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to provider events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ProviderEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelProviderUpdates is the channel intake tooling publishes document changes on
	EventChannelProviderUpdates = "provider:updates"
)
