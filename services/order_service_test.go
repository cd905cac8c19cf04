package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ops/cart"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
)

func TestSubmitMergesLinesAndOccupiesTable(t *testing.T) {
	f := newOrderFixture(t)
	table := seedTable(t, f.db, f.restaurant.ID, 3)

	order := f.submit(t, "3",
		LineInput{MenuItemID: f.burger.ID, Quantity: 1, SpecialInstructions: "no onions"},
		LineInput{MenuItemID: f.fries.ID, Quantity: 1},
		LineInput{MenuItemID: f.burger.ID, Quantity: 1},
	)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 3, order.TableNumber)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(25)), order.TotalAmount.String())
	require.Len(t, order.Lines, 2)
	assert.Equal(t, 3, order.ItemCount())

	stored, err := f.orders.Get(context.Background(), staffSession(f.restaurant.ID, models.RoleChef), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	byItem := map[uint]models.OrderLine{}
	for _, l := range stored.Lines {
		byItem[l.MenuItemID] = l
	}
	assert.Equal(t, 2, byItem[f.burger.ID].Quantity)
	assert.Equal(t, "no onions", byItem[f.burger.ID].SpecialInstructions)
	assert.Equal(t, "Burger", byItem[f.burger.ID].MenuItem.Name)
	assert.True(t, byItem[f.fries.ID].UnitPrice.Equal(decimal.NewFromInt(5)))

	var reloaded models.Table
	require.NoError(t, f.db.First(&reloaded, table.ID).Error)
	assert.True(t, reloaded.IsOccupied)

	assert.Equal(t, 1, f.events.count(events.CollectionOrders, events.ActionInsert))
	assert.Equal(t, 1, f.events.count(events.CollectionTables, events.ActionUpdate))
}

func TestSubmitRejectsBadInputBeforeWriting(t *testing.T) {
	f := newOrderFixture(t)
	other, _ := seedRestaurant(t, f.db, "Elsewhere")
	foreign := seedItem(t, f.db, other.ID, "Soup", "6.00", "Soups", 10, true)
	soldOut := seedItem(t, f.db, f.restaurant.ID, "Lobster", "40.00", "Specials", 30, false)
	ok := LineInput{MenuItemID: f.burger.ID, Quantity: 1}

	cases := map[string]SubmitInput{
		"blank table":      {TableNumber: "", Lines: []LineInput{ok}},
		"zero table":       {TableNumber: "0", Lines: []LineInput{ok}},
		"negative table":   {TableNumber: "-2", Lines: []LineInput{ok}},
		"text table":       {TableNumber: "abc", Lines: []LineInput{ok}},
		"fractional table": {TableNumber: "1.5", Lines: []LineInput{ok}},
		"empty cart":       {TableNumber: "1"},
		"zero quantity":    {TableNumber: "1", Lines: []LineInput{{MenuItemID: f.burger.ID}}},
		"huge quantity":    {TableNumber: "1", Lines: []LineInput{{MenuItemID: f.burger.ID, Quantity: 1 << 40}}},
		"merged over cap":  {TableNumber: "1", Lines: []LineInput{{MenuItemID: f.burger.ID, Quantity: 60}, {MenuItemID: f.burger.ID, Quantity: 60}}},
		"unknown item":     {TableNumber: "1", Lines: []LineInput{{MenuItemID: 9999, Quantity: 1}}},
		"unavailable item": {TableNumber: "1", Lines: []LineInput{{MenuItemID: soldOut.ID, Quantity: 1}}},
		"other restaurant": {TableNumber: "1", Lines: []LineInput{ok, {MenuItemID: foreign.ID, Quantity: 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if in.RestaurantID == 0 {
				in.RestaurantID = f.restaurant.ID
			}
			_, err := f.orders.Submit(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.events.count(events.CollectionOrders, events.ActionInsert))
}

func TestSubmitAcceptsQuantityAtCap(t *testing.T) {
	f := newOrderFixture(t)
	order := f.submit(t, "1", LineInput{MenuItemID: f.fries.ID, Quantity: cart.MaxQuantity})
	require.Len(t, order.Lines, 1)
	assert.Equal(t, cart.MaxQuantity, order.Lines[0].Quantity)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(495)), order.TotalAmount.String())
}

func TestSubmitDerivesRestaurantFromItems(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.orders.Submit(context.Background(), SubmitInput{
		TableNumber: " 7 ",
		Lines:       []LineInput{{MenuItemID: f.fries.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, f.restaurant.ID, order.RestaurantID)
	assert.Equal(t, 7, order.TableNumber)
}

func TestSubmitKeepsPriceAtOrderTime(t *testing.T) {
	f := newOrderFixture(t)
	order := f.submit(t, "1", LineInput{MenuItemID: f.burger.ID, Quantity: 1})

	require.NoError(t, f.db.Model(&f.burger).Update("price", decimal.NewFromInt(99)).Error)

	stored, err := f.orders.Get(context.Background(), staffSession(f.restaurant.ID, models.RoleAdmin), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.Lines[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(10)))
}

func TestSubmitWithoutRegisteredTableSucceeds(t *testing.T) {
	f := newOrderFixture(t)
	order := f.submit(t, "12", LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	assert.NotZero(t, order.ID)

	var pending int64
	require.NoError(t, f.db.Model(&models.PendingSideEffect{}).Count(&pending).Error)
	assert.Zero(t, pending)
}

func TestSubmitQueuesOccupancyRetryWhenTableWriteFails(t *testing.T) {
	f := newOrderFixture(t)
	seedTable(t, f.db, f.restaurant.ID, 4)
	require.NoError(t, f.db.Migrator().DropTable(&models.Table{}))

	order := f.submit(t, "4", LineInput{MenuItemID: f.burger.ID, Quantity: 1})
	assert.NotZero(t, order.ID)

	var entries []models.PendingSideEffect
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SideEffectMarkTableOccupied, entries[0].Kind)
	assert.Equal(t, order.ID, entries[0].OrderID)
	assert.Equal(t, 4, entries[0].TableNumber)
	assert.NotEmpty(t, entries[0].LastError)

	// Once the table store is back, the monitor replays the write.
	require.NoError(t, f.db.AutoMigrate(&models.Table{}))
	table := seedTable(t, f.db, f.restaurant.ID, 4)

	monitor := NewSideEffectMonitor(f.db, f.tables)
	done, err := monitor.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	var reloaded models.Table
	require.NoError(t, f.db.First(&reloaded, table.ID).Error)
	assert.True(t, reloaded.IsOccupied)

	var entry models.PendingSideEffect
	require.NoError(t, f.db.First(&entry, entries[0].ID).Error)
	assert.Equal(t, models.SideEffectDone, entry.Status)
	assert.Equal(t, 1, entry.Attempts)
}

func TestLinesFromCart(t *testing.T) {
	c := cart.New()
	c.AddN(cart.Item{MenuItemID: 1, Name: "Burger", Price: decimal.NewFromInt(10)}, 2)
	c.Add(cart.Item{MenuItemID: 2, Name: "Fries", Price: decimal.NewFromInt(5)})
	c.SetInstructions(2, "extra salt")

	lines := LinesFromCart(c)
	require.Len(t, lines, 2)
	assert.Equal(t, LineInput{MenuItemID: 1, Quantity: 2}, lines[0])
	assert.Equal(t, LineInput{MenuItemID: 2, Quantity: 1, SpecialInstructions: "extra salt"}, lines[1])
}
