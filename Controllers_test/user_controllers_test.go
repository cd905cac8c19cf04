package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginProfileLogout(t *testing.T) {
	app := setupTestApp(t)

	w := app.request(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Rina", "email": "Rina@Example.com", "password": "secret123",
	}, "", 0)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.request(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Rina", "email": "rina@example.com", "password": "secret123",
	}, "", 0)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "rina@example.com", "password": "wrong-pass",
	}, "", 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "rina@example.com", "password": "secret123",
	}, "", 0)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, w, &login)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "rina@example.com", login.User.Email)

	w = app.request(t, http.MethodGet, "/api/auth/profile", nil, login.Token, 0)
	require.Equal(t, http.StatusOK, w.Code)
	var profile map[string]interface{}
	decode(t, w, &profile)
	assert.Equal(t, "Rina", profile["name"])
	assert.NotContains(t, profile, "password")

	w = app.request(t, http.MethodPost, "/api/auth/logout", nil, login.Token, 0)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.request(t, http.MethodGet, "/api/auth/profile", nil, login.Token, 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	app := setupTestApp(t)

	w := app.request(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Short", "email": "short@example.com", "password": "123",
	}, "", 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.request(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Bad", "email": "not-an-email", "password": "secret123",
	}, "", 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	app := setupTestApp(t)
	body := map[string]string{"email": "nobody@example.com", "password": "whatever1"}

	for i := 0; i < 5; i++ {
		w := app.request(t, http.MethodPost, "/api/auth/login", body, "", 0)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := app.request(t, http.MethodPost, "/api/auth/login", body, "", 0)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRestaurantOnboarding(t *testing.T) {
	app := setupTestApp(t)

	w := app.request(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Dewi", "email": "dewi@example.com", "password": "secret123",
	}, "", 0)
	require.Equal(t, http.StatusCreated, w.Code)
	w = app.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "dewi@example.com", "password": "secret123",
	}, "", 0)
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, w, &login)

	// Signed in but without a restaurant: staff routes are closed.
	w = app.request(t, http.MethodGet, "/api/session", nil, login.Token, 0)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.request(t, http.MethodPost, "/api/restaurants", map[string]string{"name": "Warung Dewi"}, login.Token, 0)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var restaurant struct {
		ID uint `json:"id"`
	}
	decode(t, w, &restaurant)

	w = app.request(t, http.MethodGet, "/api/session", nil, login.Token, 0)
	require.Equal(t, http.StatusOK, w.Code)
	var sess struct {
		Session struct {
			RestaurantID uint `json:"restaurant_id"`
			IsOwner      bool `json:"is_owner"`
		} `json:"session"`
		Role string `json:"role"`
	}
	decode(t, w, &sess)
	assert.Equal(t, restaurant.ID, sess.Session.RestaurantID)
	assert.True(t, sess.Session.IsOwner)
	assert.Equal(t, "admin", sess.Role)

	w = app.request(t, http.MethodGet, path("/api/restaurants/%d", restaurant.ID), nil, "", 0)
	assert.Equal(t, http.StatusOK, w.Code)
}
