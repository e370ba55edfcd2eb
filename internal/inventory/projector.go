package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/event"
	"github.com/example/game-economy/internal/messaging"
	"github.com/example/game-economy/internal/repository"
)

// Projector applies catalog events to the local replica. Application is
// idempotent and tolerates out-of-order delivery: an update arriving
// before its create still materializes the replica entry, and deletes of
// absent entries are no-ops.
type Projector struct {
	refs    repository.Repository[*entity.CatalogItemRef]
	deduper messaging.Deduper
}

func NewProjector(refs repository.Repository[*entity.CatalogItemRef], deduper messaging.Deduper) *Projector {
	return &Projector{refs: refs, deduper: deduper}
}

// HandleMessage consumes one delivered envelope. Errors are returned so
// the consumer leaves the message for redelivery; the envelope is marked
// seen only after it was applied.
func (p *Projector) HandleMessage(ctx context.Context, key, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}

	seen, err := p.deduper.Seen(ctx, env.ID)
	if err != nil {
		return err
	}
	if seen {
		log.Printf("[Projector] Skipping duplicate event %s (%s)", env.ID, env.Type)
		return nil
	}

	switch env.Type {
	case event.TypeCatalogItemCreated, event.TypeCatalogItemUpdated:
		var e struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		if err := p.upsert(ctx, e.ID, e.Name, e.Description); err != nil {
			return err
		}
	case event.TypeCatalogItemDeleted:
		var e event.CatalogItemDeleted
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		if err := p.refs.Remove(ctx, e.ID); err != nil {
			return err
		}
	default:
		log.Printf("[Projector] Ignoring event type %s", env.Type)
		return nil
	}

	if err := p.deduper.MarkSeen(ctx, env.ID); err != nil {
		// The apply already stuck; a redelivery would be absorbed by the
		// idempotent upsert, so a failed mark is not worth a retry.
		log.Printf("[Projector] Failed to mark event %s seen: %v", env.ID, err)
	}
	return nil
}

func (p *Projector) upsert(ctx context.Context, id, name, description string) error {
	ref := &entity.CatalogItemRef{ID: id, Name: name, Description: description}

	_, err := p.refs.GetOne(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		err = p.refs.Create(ctx, ref)
		if errors.Is(err, repository.ErrDuplicate) {
			// Another consumer materialized it first.
			return p.refs.Update(ctx, ref)
		}
		return err
	}
	if err != nil {
		return err
	}
	return p.refs.Update(ctx, ref)
}
