// Package kds serves the live kitchen, waiter and admin displays over websockets.
package kds

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// Hub tracks connected display clients per restaurant.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": c.RestaurantID,
		"user_id":       c.UserID,
		"role":          c.Role,
		"stream":        c.Stream,
		"clients":       total,
	}).Info("Display client connected")
}

// Unregister closes the client's connection; calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
	if ok {
		utils.InfoLogger.WithFields(logrus.Fields{
			"restaurant_id": c.RestaurantID,
			"user_id":       c.UserID,
			"stream":        c.Stream,
		}).Info("Display client disconnected")
	}
}

// Count reports connected clients, optionally for one restaurant (0 means all).
func (h *Hub) Count(restaurantID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if restaurantID == 0 {
		return len(h.clients)
	}
	n := 0
	for c := range h.clients {
		if c.RestaurantID == restaurantID {
			n++
		}
	}
	return n
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
