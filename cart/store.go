package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-ops/utils"
)

var ErrCartNotFound = errors.New("cart not found")

type session struct {
	cart         *Cart
	restaurantID uint
	touched      time.Time
}

// Store keeps carts in memory only; they vanish on expiry or restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Create opens an empty cart for a restaurant and returns its id.
func (s *Store) Create(restaurantID uint) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{cart: New(), restaurantID: restaurantID, touched: s.now()}
	s.mu.Unlock()
	return id
}

// Get returns a copy of the cart and its restaurant.
func (s *Store) Get(id string) (*Cart, uint, error) {
	var out *Cart
	var restaurantID uint
	err := s.with(id, func(sess *session) {
		out = sess.cart.Clone()
		restaurantID = sess.restaurantID
	})
	return out, restaurantID, err
}

func (s *Store) Add(id string, item Item) (*Cart, error) {
	return s.update(id, func(c *Cart) { c.Add(item) })
}

func (s *Store) AddN(id string, item Item, n int) (*Cart, error) {
	var addErr error
	c, err := s.update(id, func(c *Cart) { addErr = c.AddN(item, n) })
	if err != nil {
		return nil, err
	}
	return c, addErr
}

func (s *Store) Remove(id string, menuItemID uint) (*Cart, error) {
	return s.update(id, func(c *Cart) { c.Remove(menuItemID) })
}

func (s *Store) SetInstructions(id string, menuItemID uint, text string) (*Cart, error) {
	return s.update(id, func(c *Cart) { c.SetInstructions(menuItemID, text) })
}

// Discard drops a cart, typically after checkout.
func (s *Store) Discard(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) update(id string, fn func(*Cart)) (*Cart, error) {
	var out *Cart
	err := s.with(id, func(sess *session) {
		fn(sess.cart)
		out = sess.cart.Clone()
	})
	return out, err
}

func (s *Store) with(id string, fn func(*session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		delete(s.sessions, id)
		return ErrCartNotFound
	}
	sess.touched = s.now()
	fn(sess)
	return nil
}

func (s *Store) expired(sess *session) bool {
	return s.ttl > 0 && s.now().Sub(sess.touched) > s.ttl
}

// Sweep removes idle carts and reports how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Start sweeps on a ticker until Stop.
func (s *Store) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					utils.InfoLogger.Printf("Expired %d idle carts", n)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
