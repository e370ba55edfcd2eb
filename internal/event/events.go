package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeCatalogItemCreated = "CatalogItemCreated"
	TypeCatalogItemUpdated = "CatalogItemUpdated"
	TypeCatalogItemDeleted = "CatalogItemDeleted"
)

// CatalogItemCreated is emitted after a catalog item is first persisted.
// Events carry only the fields a replica needs, never the full entity.
type CatalogItemCreated struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogItemUpdated is emitted after a catalog item is replaced.
type CatalogItemUpdated struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogItemDeleted is emitted after a catalog item is removed.
type CatalogItemDeleted struct {
	ID string `json:"id"`
}

// Envelope wraps a domain event for transport. The envelope ID lets
// consumers deduplicate redelivered messages; the broker guarantees
// at-least-once delivery, not exactly-once.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Wrap serializes a domain event into a transport envelope.
func Wrap(eventType string, data any) (Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}, nil
}
