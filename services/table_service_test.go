package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
)

func TestTableManagement(t *testing.T) {
	db := setupTestDB(t)
	r, _ := seedRestaurant(t, db, "Bistro")
	rec := &recorder{}
	svc := NewTableService(db, rec)
	ctx := context.Background()
	admin := staffSession(r.ID, models.RoleAdmin)

	_, err := svc.Create(ctx, staffSession(r.ID, models.RoleChef), TableInput{TableNumber: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Create(ctx, admin, TableInput{TableNumber: 0})
	assert.ErrorIs(t, err, ErrValidation)

	six, err := svc.Create(ctx, admin, TableInput{TableNumber: 6, Capacity: 2})
	require.NoError(t, err)
	one, err := svc.Create(ctx, admin, TableInput{TableNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, one.Capacity)

	_, err = svc.Create(ctx, admin, TableInput{TableNumber: 6})
	assert.ErrorIs(t, err, ErrConflict)

	tables, err := svc.List(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, []int{1, 6}, []int{tables[0].TableNumber, tables[1].TableNumber})

	_, err = svc.SetOccupancy(ctx, staffSession(r.ID, models.RoleChef), six.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)
	updated, err := svc.SetOccupancy(ctx, staffSession(r.ID, models.RoleWaiter), six.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsOccupied)
	updated, err = svc.SetOccupancy(ctx, admin, six.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsOccupied)

	_, err = svc.SetOccupancy(ctx, staffSession(r.ID+1, models.RoleAdmin), six.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, admin, one.ID))
	tables, err = svc.List(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	assert.Equal(t, 2, rec.count(events.CollectionTables, events.ActionInsert))
	assert.Equal(t, 2, rec.count(events.CollectionTables, events.ActionUpdate))
	assert.Equal(t, 1, rec.count(events.CollectionTables, events.ActionDelete))
}

func TestMarkOccupiedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	r, _ := seedRestaurant(t, db, "Bistro")
	rec := &recorder{}
	svc := NewTableService(db, rec)
	seedTable(t, db, r.ID, 3)

	require.NoError(t, svc.MarkOccupied(context.Background(), r.ID, 3))
	require.NoError(t, svc.MarkOccupied(context.Background(), r.ID, 3))
	require.NoError(t, svc.MarkOccupied(context.Background(), r.ID, 99))

	assert.Equal(t, 1, rec.count(events.CollectionTables, events.ActionUpdate))
}
