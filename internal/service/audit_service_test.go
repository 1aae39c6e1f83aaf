package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x, y := f.addItem("X-1", "Widget"), f.addItem("Y-1", "Bolt")
	a := f.addLocation("A")

	_, err := f.movements.Place(ctx, f.actor, dto.PlaceStockRequest{ItemID: x.ID.String(), LocationID: a.ID.String(), Quantity: 5})
	require.NoError(t, err)
	bob := service.Actor{TenantID: f.actor.TenantID, UserID: "bob"}
	_, err = f.movements.Place(ctx, bob, dto.PlaceStockRequest{ItemID: y.ID.String(), LocationID: a.ID.String(), Quantity: 1})
	require.NoError(t, err)
	_, err = f.movements.WriteOff(ctx, f.actor, dto.WriteOffRequest{ItemID: x.ID.String(), LocationID: a.ID.String(), Quantity: 1, Reason: "broken"})
	require.NoError(t, err)

	all, err := f.audit.List(ctx, f.actor, dto.AuditQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Total)
	assert.Equal(t, string(model.AuditWriteOff), all.Data[0].Action, "newest first")

	byItem, err := f.audit.List(ctx, f.actor, dto.AuditQuery{ItemID: x.ID.String()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byItem.Total)

	byActor, err := f.audit.List(ctx, f.actor, dto.AuditQuery{ActorID: "bob"})
	require.NoError(t, err)
	require.Len(t, byActor.Data, 1)
	assert.Equal(t, y.ID.String(), *byActor.Data[0].ItemID)

	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	none, err := f.audit.List(ctx, f.actor, dto.AuditQuery{From: future})
	require.NoError(t, err)
	assert.Empty(t, none.Data)

	_, err = f.audit.List(ctx, f.actor, dto.AuditQuery{From: "yesterday"})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)
	_, err = f.audit.List(ctx, f.actor, dto.AuditQuery{Action: "stolen"})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)
}

func TestAuditRecord_RejectsUnknownAction(t *testing.T) {
	f := newFixture(t)
	err := f.audit.RecordTx(context.Background(), nil, &model.AuditLogEntry{TenantID: f.actor.TenantID, Action: "teleported"})
	assert.Error(t, err)
	assert.Empty(t, f.store.audit)
}

func TestInsufficientStockError_Unwraps(t *testing.T) {
	err := error(&service.InsufficientStockError{ItemID: uuid.New(), LocationID: uuid.New(), Available: 2, Requested: 5})
	assert.True(t, errors.Is(err, service.ErrInsufficientStock))
	assert.False(t, errors.Is(err, service.ErrConflict))
	assert.Contains(t, err.Error(), "has 2, 5 requested")
}
