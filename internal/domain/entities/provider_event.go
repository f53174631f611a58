package entities

import (
	"time"

	"github.com/google/uuid"
)

// ProviderEventType describes what happened to a stored provider document
type ProviderEventType string

const (
	ProviderEventTypeUpdated ProviderEventType = "provider.updated"
	ProviderEventTypeDeleted ProviderEventType = "provider.deleted"
)

// ProviderEvent is published by intake tooling when a provider document changes
type ProviderEvent struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"providerId"`
	EventType  ProviderEventType `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewProviderEvent creates a new provider event
func NewProviderEvent(providerID string, eventType ProviderEventType) *ProviderEvent {
	return &ProviderEvent{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
	}
}
