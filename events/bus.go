package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-ops/utils"
)

const subscriptionBuffer = 64

// Subscription receives notices for one restaurant and a set of collections.
type Subscription struct {
	id           uint64
	bus          *Bus
	restaurantID uint
	collections  map[string]struct{}
	ch           chan Notice
	overflowed   atomic.Bool
	closeOnce    sync.Once
}

// C is closed after Unsubscribe.
func (s *Subscription) C() <-chan Notice {
	return s.ch
}

// Overflowed reports (and clears) whether notices were dropped because the
// subscriber fell behind.
func (s *Subscription) Overflowed() bool {
	return s.overflowed.Swap(false)
}

func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
}

func (s *Subscription) matches(n Notice) bool {
	if n.RestaurantID != s.restaurantID {
		return false
	}
	if len(s.collections) == 0 {
		return true
	}
	_, ok := s.collections[n.Collection]
	return ok
}

// Bus is the in-process change-notification channel.
type Bus struct {
	origin string

	mu         sync.RWMutex
	nextID     uint64
	subs       map[uint64]*Subscription
	forwarders []Forwarder
}

func NewBus() *Bus {
	return &Bus{
		origin: uuid.NewString(),
		subs:   make(map[uint64]*Subscription),
	}
}

// Origin identifies this process on shared transports.
func (b *Bus) Origin() string {
	return b.origin
}

func (b *Bus) AddForwarder(f Forwarder) {
	b.mu.Lock()
	b.forwarders = append(b.forwarders, f)
	b.mu.Unlock()
}

// Subscribe filters by restaurant and, when given, collection names.
func (b *Bus) Subscribe(restaurantID uint, collections ...string) *Subscription {
	sub := &Subscription{
		bus:          b,
		restaurantID: restaurantID,
		collections:  make(map[string]struct{}, len(collections)),
		ch:           make(chan Notice, subscriptionBuffer),
	}
	for _, c := range collections {
		sub.collections[c] = struct{}{}
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s.id)
	b.mu.Unlock()
	s.closeOnce.Do(func() { close(s.ch) })
}

// Publish stamps the notice, delivers it locally and hands it to forwarders.
func (b *Bus) Publish(ctx context.Context, n Notice) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Origin == "" {
		n.Origin = b.origin
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	b.Deliver(n)

	b.mu.RLock()
	forwarders := append([]Forwarder(nil), b.forwarders...)
	b.mu.RUnlock()
	for _, f := range forwarders {
		if err := f.Forward(ctx, n); err != nil {
			utils.ErrorLogger.WithField("notice", n.ID).Errorf("Error forwarding change notice: %v", err)
		}
	}
}

// Deliver hands a notice to local subscribers only. Slow subscribers never block
// the writer; they are flagged as overflowed instead.
func (b *Bus) Deliver(n Notice) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.matches(n) {
			continue
		}
		select {
		case s.ch <- n:
		default:
			s.overflowed.Store(true)
		}
	}
}

// Subscribers counts live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
