package inventory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/event"
	"github.com/example/game-economy/internal/messaging"
	"github.com/example/game-economy/internal/repository"
)

func newTestProjector() (*Projector, repository.Repository[*entity.CatalogItemRef]) {
	refs := repository.NewMemory[*entity.CatalogItemRef]()
	return NewProjector(refs, messaging.NewMemoryDeduper()), refs
}

func deliver(t *testing.T, p *Projector, eventType string, data any) event.Envelope {
	t.Helper()
	env, err := event.Wrap(eventType, data)
	require.NoError(t, err)
	redeliver(t, p, env)
	return env
}

func redeliver(t *testing.T, p *Projector, env event.Envelope) {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, p.HandleMessage(context.Background(), []byte(env.ID), raw))
}

func TestProjectorMaterializesCreatedItem(t *testing.T) {
	p, refs := newTestProjector()

	deliver(t, p, event.TypeCatalogItemCreated, event.CatalogItemCreated{
		ID: "c-1", Name: "Sword", Description: "Sharp",
	})

	ref, err := refs.GetOne(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Sword", ref.Name)
	assert.Equal(t, "Sharp", ref.Description)
}

func TestProjectorAppliesUpdates(t *testing.T) {
	p, refs := newTestProjector()

	deliver(t, p, event.TypeCatalogItemCreated, event.CatalogItemCreated{
		ID: "c-1", Name: "Sword", Description: "Sharp",
	})
	deliver(t, p, event.TypeCatalogItemUpdated, event.CatalogItemUpdated{
		ID: "c-1", Name: "Katana", Description: "Sharper",
	})

	ref, err := refs.GetOne(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Katana", ref.Name)
	assert.Equal(t, "Sharper", ref.Description)
}

func TestProjectorUpsertsUpdateArrivingBeforeCreate(t *testing.T) {
	p, refs := newTestProjector()

	deliver(t, p, event.TypeCatalogItemUpdated, event.CatalogItemUpdated{
		ID: "c-1", Name: "Katana", Description: "Sharper",
	})

	ref, err := refs.GetOne(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Katana", ref.Name)
}

func TestProjectorRemovesDeletedItem(t *testing.T) {
	p, refs := newTestProjector()
	ctx := context.Background()

	deliver(t, p, event.TypeCatalogItemCreated, event.CatalogItemCreated{
		ID: "c-1", Name: "Sword", Description: "Sharp",
	})
	deliver(t, p, event.TypeCatalogItemDeleted, event.CatalogItemDeleted{ID: "c-1"})

	_, err := refs.GetOne(ctx, "c-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectorDeleteOfAbsentItemIsNoOp(t *testing.T) {
	p, _ := newTestProjector()

	deliver(t, p, event.TypeCatalogItemDeleted, event.CatalogItemDeleted{ID: "never-seen"})
}

func TestProjectorSkipsDuplicateEnvelope(t *testing.T) {
	p, refs := newTestProjector()
	ctx := context.Background()

	env := deliver(t, p, event.TypeCatalogItemCreated, event.CatalogItemCreated{
		ID: "c-1", Name: "Sword", Description: "Sharp",
	})

	// A later update moves the replica on; replaying the original create
	// must not roll it back.
	deliver(t, p, event.TypeCatalogItemUpdated, event.CatalogItemUpdated{
		ID: "c-1", Name: "Katana", Description: "Sharper",
	})
	redeliver(t, p, env)

	ref, err := refs.GetOne(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Katana", ref.Name)
}

func TestProjectorRedeliveryIsIdempotentWithoutDeduper(t *testing.T) {
	refs := repository.NewMemory[*entity.CatalogItemRef]()
	ctx := context.Background()

	// Two consumers with separate deduper state seeing the same envelope,
	// as happens after a group rebalance.
	env, err := event.Wrap(event.TypeCatalogItemCreated, event.CatalogItemCreated{
		ID: "c-1", Name: "Sword", Description: "Sharp",
	})
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		p := NewProjector(refs, messaging.NewMemoryDeduper())
		require.NoError(t, p.HandleMessage(ctx, []byte(env.ID), raw))
	}

	all, err := refs.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Sword", all[0].Name)
}

func TestProjectorIgnoresUnknownEventTypes(t *testing.T) {
	p, refs := newTestProjector()

	deliver(t, p, "catalog-item-repriced", map[string]string{"id": "c-1"})

	all, err := refs.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProjectorRejectsMalformedEnvelope(t *testing.T) {
	p, _ := newTestProjector()

	err := p.HandleMessage(context.Background(), nil, []byte("{not json"))
	assert.Error(t, err)
}
