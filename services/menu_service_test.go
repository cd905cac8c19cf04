package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
)

func TestAvailableFallsBackToPlaceholderMenu(t *testing.T) {
	db := setupTestDB(t)
	r, _ := seedRestaurant(t, db, "Bistro")
	svc := NewMenuService(db, nil)

	catalog := svc.Available(context.Background(), r.ID)
	assert.True(t, catalog.Fallback)
	assert.Len(t, catalog.Items, 8)
	for _, item := range catalog.Items {
		assert.True(t, item.IsAvailable)
		assert.Equal(t, r.ID, item.RestaurantID)
	}

	seedItem(t, db, r.ID, "Burger", "10.00", "Main Courses", 12, true)
	seedItem(t, db, r.ID, "Lobster", "40.00", "Specials", 30, false)
	catalog = svc.Available(context.Background(), r.ID)
	assert.False(t, catalog.Fallback)
	require.Len(t, catalog.Items, 1)
	assert.Equal(t, "Burger", catalog.Items[0].Name)

	require.NoError(t, db.Migrator().DropTable(&models.MenuItem{}))
	catalog = svc.Available(context.Background(), r.ID)
	assert.True(t, catalog.Fallback)
	assert.Len(t, catalog.Items, 8)
}

func TestBrowseFiltersAndPages(t *testing.T) {
	db := setupTestDB(t)
	r, _ := seedRestaurant(t, db, "Bistro")
	svc := NewMenuService(db, nil)
	ctx := context.Background()

	for i := 0; i < 13; i++ {
		seedItem(t, db, r.ID, fmt.Sprintf("Pasta %02d", i), fmt.Sprintf("%d.00", 10+i), "Main Courses", 15, true)
	}
	seedItem(t, db, r.ID, "Lemonade", "4.50", "Beverages", 2, true)
	seedItem(t, db, r.ID, "Garden Salad", "9.00", "Salads", 5, false)

	page, err := svc.Browse(ctx, r.ID, MenuFilter{})
	require.NoError(t, err)
	assert.Equal(t, 14, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, MenuPageSize)
	assert.Equal(t, []string{"Main Courses", "Beverages"}, page.Categories)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Page: ParsePage("1537228672809129302")})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 14, page.Total)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Search: "LEMON"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Lemonade", page.Items[0].Name)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Category: "Beverages"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Price: "10-12"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Price: "20+"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = svc.Browse(ctx, r.ID, MenuFilter{Category: "all", Price: "all"})
	require.NoError(t, err)
	assert.Equal(t, 14, page.Total)

	_, err = svc.Browse(ctx, r.ID, MenuFilter{Price: "cheap"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Browse(ctx, r.ID, MenuFilter{Price: "20-10"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Browse(ctx, r.ID, MenuFilter{Category: "Pizza"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMenuManagement(t *testing.T) {
	db := setupTestDB(t)
	r, _ := seedRestaurant(t, db, "Bistro")
	rec := &recorder{}
	svc := NewMenuService(db, rec)
	ctx := context.Background()
	admin := staffSession(r.ID, models.RoleAdmin)
	unavailable := false

	in := MenuItemInput{
		Name:        " Soup of the Day ",
		Price:       decimal.RequireFromString("6.499"),
		Category:    "Soups",
		IsAvailable: &unavailable,
	}

	_, err := svc.Create(ctx, staffSession(r.ID, models.RoleWaiter), in)
	assert.ErrorIs(t, err, ErrForbidden)

	item, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, "Soup of the Day", item.Name)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("6.50")))
	assert.Equal(t, models.DefaultPrepTime, item.PrepTime)
	assert.False(t, item.IsAvailable)

	stored, err := svc.Get(ctx, r.ID, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)

	_, err = svc.Create(ctx, admin, MenuItemInput{Name: "Free", Price: decimal.Zero, Category: "Soups"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, admin, MenuItemInput{Name: "Pizza", Price: decimal.NewFromInt(9), Category: "Pizza"})
	assert.ErrorIs(t, err, ErrValidation)

	item, err = svc.SetAvailability(ctx, admin, item.ID, true)
	require.NoError(t, err)
	assert.True(t, item.IsAvailable)

	prep := 9
	in.PrepTime = &prep
	in.Name = "Tomato Soup"
	item, err = svc.Update(ctx, admin, item.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 9, item.PrepTime)

	all, err := svc.Manage(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Tomato Soup", all[0].Name)

	require.NoError(t, svc.Delete(ctx, admin, item.ID))
	_, err = svc.Get(ctx, r.ID, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, rec.count(events.CollectionMenuItems, events.ActionInsert))
	assert.Equal(t, 2, rec.count(events.CollectionMenuItems, events.ActionUpdate))
	assert.Equal(t, 1, rec.count(events.CollectionMenuItems, events.ActionDelete))
}

func TestDeleteOrderedMenuItemConflicts(t *testing.T) {
	f := newOrderFixture(t)
	f.submit(t, "1", LineInput{MenuItemID: f.burger.ID, Quantity: 1})

	err := NewMenuService(f.db, nil).Delete(context.Background(), staffSession(f.restaurant.ID, models.RoleAdmin), f.burger.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("x"))
	assert.Equal(t, 3, ParsePage("3"))
}
