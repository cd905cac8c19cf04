package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ops/cart"
	"github.com/yeremiapane/restaurant-ops/config"
	"github.com/yeremiapane/restaurant-ops/database"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/kds"
	"github.com/yeremiapane/restaurant-ops/middlewares"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/router"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/storage"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	Router *gin.Engine
	DB     *gorm.DB
	Bus    *events.Bus
	Hub    *kds.Hub
	Carts  *cart.Store
}

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

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.ConfigureTokens("controller-test-secret", time.Hour)

	db := setupTestDB(t)
	cfg := &config.Config{
		GinMode:            gin.TestMode,
		CORSOrigins:        []string{"*"},
		UploadDir:          t.TempDir(),
		PublicBaseURL:      "http://localhost:8080",
		MaxUploadBytes:     1 << 20,
		ViewSyncMode:       config.SyncModeRefetch,
		RateLimitPerMinute: 10000,
	}

	bus := events.NewBus()
	tables := services.NewTableService(db, bus)
	app := &testApp{
		DB:    db,
		Bus:   bus,
		Hub:   kds.NewHub(),
		Carts: cart.NewStore(time.Hour),
	}
	app.Router = router.SetupRouter(router.Deps{
		Config:      cfg,
		Bus:         bus,
		Hub:         app.Hub,
		Carts:       app.Carts,
		Blobs:       storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadBytes),
		Users:       services.NewUserService(db),
		Restaurants: services.NewRestaurantService(db, bus),
		Menu:        services.NewMenuService(db, bus),
		Tables:      tables,
		Orders:      services.NewOrderService(db, bus, tables, services.NewSideEffectLog(db)),
		Views:       services.NewViewService(db),
	})
	return app
}

// request sends an optional JSON body. token and restaurantID are skipped when zero.
func (a *testApp) request(t *testing.T, method, path string, body interface{}, token string, restaurantID uint) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if restaurantID != 0 {
		req.Header.Set(middlewares.RestaurantHeader, strconv.FormatUint(uint64(restaurantID), 10))
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into), string(env.Data))
	}
	return env
}

// staffToken creates a user with role at the restaurant and returns their token.
func (a *testApp) staffToken(t *testing.T, restaurantID uint, role string) string {
	t.Helper()
	email := fmt.Sprintf("%s-%d-%d@example.com", role, restaurantID, time.Now().UnixNano())
	user := models.User{Name: role, Email: email, Password: "x"}
	require.NoError(t, a.DB.Create(&user).Error)
	require.NoError(t, a.DB.Create(&models.StaffAssignment{
		RestaurantID: restaurantID, UserID: user.ID, Role: role, IsActive: true,
	}).Error)
	token, err := utils.GenerateToken(user.ID, email)
	require.NoError(t, err)
	return token
}

// seedRestaurant returns an active restaurant and its owner's token.
func (a *testApp) seedRestaurant(t *testing.T, name string) (models.Restaurant, string) {
	t.Helper()
	r := models.Restaurant{Name: name, IsActive: true}
	owner := models.User{Name: name + " Owner", Email: fmt.Sprintf("owner-%d@example.com", time.Now().UnixNano()), Password: "x"}
	require.NoError(t, a.DB.Create(&owner).Error)
	r.OwnerID = owner.ID
	require.NoError(t, a.DB.Create(&r).Error)
	require.NoError(t, a.DB.Create(&models.StaffAssignment{
		RestaurantID: r.ID, UserID: owner.ID, Role: models.RoleOwner, IsActive: true,
	}).Error)
	token, err := utils.GenerateToken(owner.ID, owner.Email)
	require.NoError(t, err)
	return r, token
}

func (a *testApp) seedItem(t *testing.T, restaurantID uint, name, price string, prep int) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		RestaurantID: restaurantID,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Category:     "Main Courses",
		PrepTime:     prep,
		IsAvailable:  true,
	}
	require.NoError(t, a.DB.Create(&item).Error)
	return item
}

func (a *testApp) seedTable(t *testing.T, restaurantID uint, number int) models.Table {
	t.Helper()
	table := models.Table{RestaurantID: restaurantID, TableNumber: number, Capacity: 4}
	require.NoError(t, a.DB.Create(&table).Error)
	return table
}

func path(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
