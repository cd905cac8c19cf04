package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "email": c.GetString(ContextEmail)})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, perform(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, perform(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, perform(r, req).Code)

	token, err := utils.GenerateToken(7, "chef@example.com")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := perform(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"email":"chef@example.com"}`, w.Body.String())

	utils.BlacklistToken(token, time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, perform(r, req).Code)
}

func TestWebSocketAuthUsesQueryToken(t *testing.T) {
	r := gin.New()
	r.GET("/ws", WebSocketAuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", UserID(c))
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, httptest.NewRequest(http.MethodGet, "/ws", nil)).Code)

	token, err := utils.GenerateToken(3, "w@example.com")
	require.NoError(t, err)
	w := perform(r, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Body.String())
}

type fakeResolver struct {
	preferred uint
	err       error
}

func (f *fakeResolver) Resolve(_ context.Context, userID uint, email string, preferred uint) (*session.Context, error) {
	f.preferred = preferred
	if f.err != nil {
		return nil, f.err
	}
	return &session.Context{UserID: userID, Email: email, RestaurantID: 5, StoredRole: models.RoleWaiter}, nil
}

func sessionRouter(resolver Resolver, caps ...session.Capability) *gin.Engine {
	r := gin.New()
	withUser := func(c *gin.Context) {
		c.Set(ContextUserID, uint(11))
		c.Set(ContextEmail, "w@example.com")
	}
	handlers := []gin.HandlerFunc{withUser, RestaurantContext(resolver)}
	if len(caps) > 0 {
		handlers = append(handlers, RequireCapability(caps...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "%d", Session(c).RestaurantID)
	})
	r.GET("/x", handlers...)
	return r
}

func TestRestaurantContext(t *testing.T) {
	resolver := &fakeResolver{}
	r := sessionRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RestaurantHeader, "9")
	w := perform(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Body.String())
	assert.Equal(t, uint(9), resolver.preferred)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RestaurantHeader, "nine")
	assert.Equal(t, http.StatusBadRequest, perform(r, req).Code)

	resolver.err = fmt.Errorf("%w: no assignment", services.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, perform(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)

	resolver.err = fmt.Errorf("%w: db down", services.ErrBackendRead)
	assert.Equal(t, http.StatusServiceUnavailable, perform(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestRequireCapability(t *testing.T) {
	allowed := sessionRouter(&fakeResolver{}, session.CapKitchen, session.CapServe)
	assert.Equal(t, http.StatusOK, perform(allowed, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)

	denied := sessionRouter(&fakeResolver{}, session.CapManageMenu)
	assert.Equal(t, http.StatusForbidden, perform(denied, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)

	r := gin.New()
	r.GET("/y", RequireCapability(session.CapServe), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, perform(r, httptest.NewRequest(http.MethodGet, "/y", nil)).Code)
}

func TestRateLimiterIsPerIP(t *testing.T) {
	rl := NewRateLimiter(2, 2)
	r := gin.New()
	r.GET("/", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return perform(r, req).Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2"))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddlewares([]string{"http://localhost:3000"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := perform(r, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	assert.Empty(t, perform(r, req).Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, perform(r, req).Code)
}
