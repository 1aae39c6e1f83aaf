package service_test

import (
	"context"
	"testing"

	"stockledger/internal/dto"
	"stockledger/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetItemStock_ReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.addItem("X-1", "Widget")
	a, b, empty := f.addLocation("A"), f.addLocation("B"), f.addLocation("C")
	f.setStock(x, a, 3)
	f.setStock(x, b, 4)
	f.setStock(x, empty, 0)

	first, err := f.query.GetItemStock(ctx, f.actor, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, first.Total)
	assert.Len(t, first.Locations, 2, "zero rows are not part of the breakdown")
	assert.Contains(t, f.cache.entries, x.ID)

	// A direct ledger change is invisible until the entry is invalidated.
	f.setStock(x, a, 100)
	cached, err := f.query.GetItemStock(ctx, f.actor, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, cached.Total)

	f.query.Changed(ctx, f.actor.TenantID, x.ID, x.ID)
	fresh, err := f.query.GetItemStock(ctx, f.actor, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 104, fresh.Total)
	assert.Equal(t, [][]uuid.UUID{{x.ID}}, f.events.calls, "ids are deduplicated")
}

func TestGetItemStock_UnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.query.GetItemStock(context.Background(), f.actor, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListLocationStock_PositiveOnly(t *testing.T) {
	f := newFixture(t)
	x, y := f.addItem("X-1", "Widget"), f.addItem("Y-1", "Bolt")
	a := f.addLocation("A")
	f.setStock(x, a, 2)
	f.setStock(y, a, 0)

	resp, err := f.query.ListLocationStock(context.Background(), f.actor, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", resp.Name)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "X-1", resp.Items[0].SKU)
	assert.Equal(t, 2, resp.Items[0].Quantity)

	_, err = f.query.ListLocationStock(context.Background(), service.Actor{TenantID: uuid.New()}, a.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.addItem("X-1", "Widget")
	a := f.addLocation("A")
	f.setStock(x, a, 6)

	require.NoError(t, f.query.Refresh(ctx, f.actor.TenantID, x.ID))
	require.Contains(t, f.cache.entries, x.ID)
	assert.Equal(t, 6, f.cache.entries[x.ID].Total)

	delete(f.store.items, x.ID)
	require.NoError(t, f.query.Refresh(ctx, f.actor.TenantID, x.ID), "a deleted item has nothing to refresh")
	assert.NotContains(t, f.cache.entries, x.ID)
}

func TestGetItemStock_MovementDuringReadIsNotCachedOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.addItem("X-1", "Widget")
	a := f.addLocation("A")
	f.setStock(x, a, 40)

	// The write-off commits after the reader saw 40 but before it stores.
	f.cache.beforeStore = func() {
		_, err := f.movements.WriteOff(ctx, f.actor, dto.WriteOffRequest{
			ItemID: x.ID.String(), LocationID: a.ID.String(), Quantity: 40, Reason: "flooded",
		})
		require.NoError(t, err)
	}

	seen, err := f.query.GetItemStock(ctx, f.actor, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, seen.Total, "the reader still gets its own snapshot")
	assert.Equal(t, 0, f.stockOf(x, a))
	assert.NotContains(t, f.cache.entries, x.ID, "the stale snapshot must not be cached")

	fresh, err := f.query.GetItemStock(ctx, f.actor, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Total)
}

func TestRefresh_LosesToLaterInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.addItem("X-1", "Widget")
	a := f.addLocation("A")
	f.setStock(x, a, 9)

	f.cache.beforeStore = func() {
		f.setStock(x, a, 2)
		f.query.Changed(ctx, f.actor.TenantID, x.ID)
	}
	require.NoError(t, f.query.Refresh(ctx, f.actor.TenantID, x.ID))
	assert.NotContains(t, f.cache.entries, x.ID)

	require.NoError(t, f.query.Refresh(ctx, f.actor.TenantID, x.ID))
	assert.Equal(t, 2, f.cache.entries[x.ID].Total)
}
