// Package catalog owns the authoritative item catalog. Every mutation
// persists first and publishes a domain event only after the write is
// durable; a publish failure never precedes a persist.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/event"
	"github.com/example/game-economy/internal/messaging"
	"github.com/example/game-economy/internal/repository"
)

var (
	ErrItemNotFound = errors.New("catalog item not found")
	ErrInvalidName  = errors.New("name is required")
	ErrInvalidPrice = errors.New("price must not be negative")
)

type Service struct {
	items     repository.Repository[*entity.CatalogItem]
	publisher messaging.Publisher
}

func NewService(items repository.Repository[*entity.CatalogItem], publisher messaging.Publisher) *Service {
	return &Service{items: items, publisher: publisher}
}

func (s *Service) List(ctx context.Context) ([]*entity.CatalogItem, error) {
	return s.items.GetAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*entity.CatalogItem, error) {
	item, err := s.items.GetOne(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

func (s *Service) Create(ctx context.Context, name, description string, price int64) (*entity.CatalogItem, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}

	item := &entity.CatalogItem{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Price:       price,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	err := s.publish(ctx, event.TypeCatalogItemCreated, item.ID, event.CatalogItemCreated{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
	})
	if err != nil {
		// The item is durable; only the notification was lost. There is
		// no outbox, so the replica will not learn of it until a later
		// update republishes the fields.
		return nil, fmt.Errorf("item %s persisted but event publish failed: %w", item.ID, err)
	}
	return item, nil
}

func (s *Service) Update(ctx context.Context, id, name, description string, price int64) (*entity.CatalogItem, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}

	item, err := s.items.GetOne(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	item.Name = name
	item.Description = description
	item.Price = price
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	err = s.publish(ctx, event.TypeCatalogItemUpdated, item.ID, event.CatalogItemUpdated{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("item %s updated but event publish failed: %w", item.ID, err)
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.items.GetOne(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}

	if err := s.items.Remove(ctx, id); err != nil {
		return err
	}

	err = s.publish(ctx, event.TypeCatalogItemDeleted, id, event.CatalogItemDeleted{ID: id})
	if err != nil {
		return fmt.Errorf("item %s deleted but event publish failed: %w", id, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, key string, data any) error {
	env, err := event.Wrap(eventType, data)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, key, env)
}
