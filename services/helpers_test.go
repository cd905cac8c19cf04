package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ops/database"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/session"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type recorder struct {
	mu      sync.Mutex
	notices []events.Notice
}

func (r *recorder) Publish(_ context.Context, n events.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) count(collection, action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Collection == collection && notice.Action == action {
			n++
		}
	}
	return n
}

func seedRestaurant(t *testing.T, db *gorm.DB, name string) (models.Restaurant, models.User) {
	t.Helper()
	owner := models.User{Name: name + " Owner", Email: name + "-owner@example.com", Password: "x"}
	require.NoError(t, db.Create(&owner).Error)
	r := models.Restaurant{OwnerID: owner.ID, Name: name, IsActive: true}
	require.NoError(t, db.Create(&r).Error)
	require.NoError(t, db.Create(&models.StaffAssignment{
		RestaurantID: r.ID, UserID: owner.ID, Role: models.RoleOwner, IsActive: true,
	}).Error)
	return r, owner
}

func seedItem(t *testing.T, db *gorm.DB, restaurantID uint, name, price, category string, prep int, available bool) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		RestaurantID: restaurantID,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Category:     category,
		PrepTime:     prep,
		IsAvailable:  true,
	}
	require.NoError(t, db.Create(&item).Error)
	if !available {
		require.NoError(t, db.Model(&item).Update("is_available", false).Error)
		item.IsAvailable = false
	}
	return item
}

func seedTable(t *testing.T, db *gorm.DB, restaurantID uint, number int) models.Table {
	t.Helper()
	table := models.Table{RestaurantID: restaurantID, TableNumber: number, Capacity: 4}
	require.NoError(t, db.Create(&table).Error)
	return table
}

func staffSession(restaurantID uint, role string) *session.Context {
	return &session.Context{
		UserID:       99,
		RestaurantID: restaurantID,
		StoredRole:   role,
		IsOwner:      role == models.RoleOwner,
	}
}

type orderFixture struct {
	db         *gorm.DB
	events     *recorder
	orders     *OrderService
	tables     *TableService
	restaurant models.Restaurant
	burger     models.MenuItem
	fries      models.MenuItem
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := setupTestDB(t)
	rec := &recorder{}
	tables := NewTableService(db, rec)
	r, _ := seedRestaurant(t, db, "Bistro")
	return &orderFixture{
		db:         db,
		events:     rec,
		orders:     NewOrderService(db, rec, tables, NewSideEffectLog(db)),
		tables:     tables,
		restaurant: r,
		burger:     seedItem(t, db, r.ID, "Burger", "10.00", "Main Courses", 12, true),
		fries:      seedItem(t, db, r.ID, "Fries", "5.00", "Sides", 22, true),
	}
}

func (f *orderFixture) submit(t *testing.T, table string, lines ...LineInput) *models.Order {
	t.Helper()
	order, err := f.orders.Submit(context.Background(), SubmitInput{
		RestaurantID: f.restaurant.ID,
		TableNumber:  table,
		Lines:        lines,
	})
	require.NoError(t, err)
	return order
}
