// Package inventory owns per-user item holdings. Catalog metadata is
// resolved from a locally held replica of catalog items, so reads never
// block on the catalog service and must tolerate a stale or missing
// replica entry.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/repository"
	"github.com/example/game-economy/internal/repository/filter"
)

var (
	ErrInvalidUser          = errors.New("user id is required")
	ErrInvalidItem          = errors.New("catalog item id is required")
	ErrInvalidQuantity      = errors.New("quantity delta must not be zero")
	ErrInsufficientQuantity = errors.New("grant would drive quantity below zero")
	ErrContention           = errors.New("too many concurrent grants for the same item")
)

// maxGrantAttempts bounds the optimistic retry loop. Conflicts only
// occur between grants for the same (user, item) pair, so a handful of
// retries is plenty.
const maxGrantAttempts = 5

// itemNamespace seeds the deterministic inventory item ids.
var itemNamespace = uuid.MustParse("8c5f66aa-05c9-4af4-9b0c-2f2c6c4b73a1")

// Item is an inventory row joined with its catalog replica entry. Name
// and Description are empty when the replica has not caught up.
type Item struct {
	CatalogItemID string    `json:"catalog_item_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Quantity      int64     `json:"quantity"`
	AcquiredAt    time.Time `json:"acquired_at"`
}

type Service struct {
	items repository.Repository[*entity.InventoryItem]
	refs  repository.Repository[*entity.CatalogItemRef]
}

func NewService(items repository.Repository[*entity.InventoryItem], refs repository.Repository[*entity.CatalogItemRef]) *Service {
	return &Service{items: items, refs: refs}
}

// List returns every item a user holds, decorated with replica metadata.
func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	rows, err := s.items.Find(ctx, filter.Eq("user_id", userID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Item{}, nil
	}

	seen := make(map[string]bool, len(rows))
	var catalogItemIDs []any
	for _, row := range rows {
		if !seen[row.CatalogItemID] {
			seen[row.CatalogItemID] = true
			catalogItemIDs = append(catalogItemIDs, row.CatalogItemID)
		}
	}

	refs, err := s.refs.Find(ctx, filter.In("id", catalogItemIDs...))
	if err != nil {
		return nil, err
	}
	indexed := make(map[string]*entity.CatalogItemRef, len(refs))
	for _, ref := range refs {
		indexed[ref.ID] = ref
	}

	out := make([]Item, 0, len(rows))
	for _, row := range rows {
		item := Item{
			CatalogItemID: row.CatalogItemID,
			Quantity:      row.Quantity,
			AcquiredAt:    row.AcquiredAt,
		}
		if ref, ok := indexed[row.CatalogItemID]; ok {
			item.Name = ref.Name
			item.Description = ref.Description
		}
		out = append(out, item)
	}
	return out, nil
}

// Grant merges a signed quantity delta into the single inventory row for
// (userID, catalogItemID), creating it on first grant. Concurrent grants
// for the same pair are serialized by optimistic concurrency: the row id
// is derived from the pair so racing first-creates collide on the store's
// insert-if-absent, and replaces carry a version check. Either conflict
// re-runs the read-modify-write.
func (s *Service) Grant(ctx context.Context, userID, catalogItemID string, delta int64) (*entity.InventoryItem, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	if catalogItemID == "" {
		return nil, ErrInvalidItem
	}
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}

	for attempt := 0; attempt < maxGrantAttempts; attempt++ {
		existing, err := s.items.FindOne(ctx, filter.And(
			filter.Eq("user_id", userID),
			filter.Eq("catalog_item_id", catalogItemID),
		))
		if errors.Is(err, repository.ErrNotFound) {
			if delta < 0 {
				return nil, ErrInsufficientQuantity
			}
			item := &entity.InventoryItem{
				ID:            itemID(userID, catalogItemID),
				UserID:        userID,
				CatalogItemID: catalogItemID,
				Quantity:      delta,
				AcquiredAt:    time.Now().UTC(),
				Version:       1,
			}
			err := s.items.Create(ctx, item)
			if errors.Is(err, repository.ErrDuplicate) {
				// Lost a first-create race; merge into the winner.
				continue
			}
			if err != nil {
				return nil, err
			}
			return item, nil
		}
		if err != nil {
			return nil, err
		}

		if existing.Quantity+delta < 0 {
			return nil, ErrInsufficientQuantity
		}
		existing.Quantity += delta
		existing.Version++
		err = s.items.Update(ctx, existing)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return existing, nil
	}
	return nil, ErrContention
}

// itemID derives the surrogate id from the natural (user, item) key, so
// every backend's insert-if-absent doubles as the uniqueness guard for
// the pair.
func itemID(userID, catalogItemID string) string {
	return uuid.NewSHA1(itemNamespace, []byte(userID+":"+catalogItemID)).String()
}
