package kds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/utils"
)

const (
	ModeRefetch = "refetch"
	ModePatch   = "patch"
)

const (
	FrameSnapshot    = "snapshot"
	FrameProvisional = "provisional"
	FrameError       = "error"
	FramePong        = "pong"
)

// Frame is what a view stream sends. Data is always the full current snapshot;
// after a failed fetch it is the last good one.
type Frame struct {
	Type       string                 `json:"type"`
	View       services.ViewName      `json:"view"`
	Generation uint64                 `json:"generation"`
	Data       *services.ViewSnapshot `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Source reads view data. services.ViewService satisfies it.
type Source interface {
	Snapshot(ctx context.Context, restaurantID uint, view services.ViewName) (*services.ViewSnapshot, error)
	Order(ctx context.Context, restaurantID, id uint) (*models.Order, error)
	Table(ctx context.Context, restaurantID, id uint) (*models.Table, error)
}

// ViewCollections lists the collections whose changes affect a view.
func ViewCollections(view services.ViewName) []string {
	if view == services.ViewKitchen {
		return []string{events.CollectionOrders, events.CollectionMenuItems}
	}
	return []string{events.CollectionOrders, events.CollectionTables, events.CollectionMenuItems}
}

// Synchronizer keeps one view snapshot current for one display. Notices that
// arrive while a fetch runs are coalesced into the next one.
type Synchronizer struct {
	source       Source
	sub          *events.Subscription
	restaurantID uint
	view         services.ViewName
	mode         string

	// Debounce waits for more notices before fetching.
	Debounce time.Duration
	// TimingInterval re-classifies kitchen timings without fetching; 0 disables.
	TimingInterval time.Duration
	Now            func() time.Time

	refresh chan struct{}

	mu         sync.Mutex
	current    *services.ViewSnapshot
	generation uint64
}

// NewSynchronizer subscribes immediately so no notice between subscription and the
// first fetch is lost.
func NewSynchronizer(source Source, bus *events.Bus, restaurantID uint, view services.ViewName, mode string) *Synchronizer {
	if mode != ModePatch {
		mode = ModeRefetch
	}
	return &Synchronizer{
		source:       source,
		sub:          bus.Subscribe(restaurantID, ViewCollections(view)...),
		restaurantID: restaurantID,
		view:         view,
		mode:         mode,
		Debounce:     50 * time.Millisecond,
		Now:          time.Now,
		refresh:      make(chan struct{}, 1),
	}
}

// Snapshot returns a copy of the current snapshot, or nil before the first fetch.
func (s *Synchronizer) Snapshot() *services.ViewSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Clone()
}

// Refresh asks for a full re-fetch.
func (s *Synchronizer) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// ErrNotOnView means the order is absent from the current snapshot.
var ErrNotOnView = errors.New("order is not on this view")

// ApplyOptimistic shows a status change before the server confirms it. Only the
// next forward step is accepted. The next completed fetch replaces the edit.
func (s *Synchronizer) ApplyOptimistic(orderID uint, status models.OrderStatus) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Frame{}, ErrNotOnView
	}
	from, ok := s.current.OrderStatus(orderID)
	if !ok {
		return Frame{}, ErrNotOnView
	}
	if !services.CanTransition(from, status) {
		return Frame{}, fmt.Errorf("%w: order %d is %s and cannot become %s", services.ErrInvalidTransition, orderID, from, status)
	}
	next := s.current.Clone()
	next.SetOrderStatus(orderID, status)
	s.current = next
	return Frame{Type: FrameProvisional, View: s.view, Generation: s.generation, Data: next.Clone()}, nil
}

// Run streams frames to emit until ctx ends or emit fails. The subscription is
// released on return.
func (s *Synchronizer) Run(ctx context.Context, emit func(Frame) error) error {
	defer s.sub.Unsubscribe()

	if err := emit(s.fetch(ctx)); err != nil {
		return err
	}

	var timing <-chan time.Time
	if s.TimingInterval > 0 && s.view == services.ViewKitchen {
		ticker := time.NewTicker(s.TimingInterval)
		defer ticker.Stop()
		timing = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.refresh:
			if err := emit(s.fetch(ctx)); err != nil {
				return err
			}
		case <-timing:
			if frame, ok := s.retime(); ok {
				if err := emit(frame); err != nil {
					return err
				}
			}
		case n, ok := <-s.sub.C():
			if !ok {
				return nil
			}
			batch := s.collect(ctx, n)
			var frame Frame
			if s.mode == ModePatch && !s.sub.Overflowed() {
				frame = s.patch(ctx, batch)
			} else {
				frame = s.fetch(ctx)
			}
			if err := emit(frame); err != nil {
				return err
			}
		}
	}
}

// collect gathers the notice burst that started with first.
func (s *Synchronizer) collect(ctx context.Context, first events.Notice) []events.Notice {
	batch := []events.Notice{first}
	if s.Debounce > 0 {
		timer := time.NewTimer(s.Debounce)
		defer timer.Stop()
	wait:
		for {
			select {
			case n, ok := <-s.sub.C():
				if !ok {
					return batch
				}
				batch = append(batch, n)
			case <-timer.C:
				break wait
			case <-ctx.Done():
				break wait
			}
		}
	}
	for {
		select {
		case n, ok := <-s.sub.C():
			if !ok {
				return batch
			}
			batch = append(batch, n)
		default:
			return batch
		}
	}
}

// fetch performs a full read. On failure the previous snapshot is kept.
func (s *Synchronizer) fetch(ctx context.Context) Frame {
	snap, err := s.source.Snapshot(ctx, s.restaurantID, s.view)
	if err != nil {
		return s.failed(err)
	}
	return s.commit(snap)
}

func (s *Synchronizer) commit(snap *services.ViewSnapshot) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	snap.Generation = s.generation
	snap.Provisional = nil
	s.current = snap
	return Frame{Type: FrameSnapshot, View: s.view, Generation: s.generation, Data: snap.Clone()}
}

func (s *Synchronizer) failed(err error) Frame {
	utils.ErrorLogger.WithFields(logrus.Fields{
		"restaurant_id": s.restaurantID,
		"view":          s.view,
	}).Warnf("View fetch failed, keeping previous snapshot: %v", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	frame := Frame{Type: FrameError, View: s.view, Generation: s.generation, Error: err.Error()}
	if s.current != nil {
		frame.Data = s.current.Clone()
	}
	return frame
}

type recordKey struct {
	collection string
	id         uint
}

// patch re-reads only the records named in batch, plus any order still showing a
// provisional status. Anything it cannot patch falls back to a full fetch.
func (s *Synchronizer) patch(ctx context.Context, batch []events.Notice) Frame {
	s.mu.Lock()
	base := s.current
	s.mu.Unlock()
	if base == nil {
		return s.fetch(ctx)
	}

	last := make(map[recordKey]string)
	var order []recordKey
	for _, n := range batch {
		if n.Collection != events.CollectionOrders && n.Collection != events.CollectionTables {
			return s.fetch(ctx)
		}
		k := recordKey{n.Collection, n.RecordID}
		if _, seen := last[k]; !seen {
			order = append(order, k)
		}
		last[k] = n.Action
	}
	for id := range base.Provisional {
		k := recordKey{events.CollectionOrders, id}
		if _, seen := last[k]; !seen {
			order = append(order, k)
			last[k] = events.ActionUpdate
		}
	}

	next := base.Clone()
	now := s.Now().UTC()
	for _, k := range order {
		if err := s.patchRecord(ctx, next, k, last[k], now); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"restaurant_id": s.restaurantID,
				"view":          s.view,
				"collection":    k.collection,
				"record_id":     k.id,
			}).Warnf("Patch failed, falling back to full fetch: %v", err)
			return s.fetch(ctx)
		}
	}
	next.FetchedAt = now
	return s.commit(next)
}

func (s *Synchronizer) patchRecord(ctx context.Context, snap *services.ViewSnapshot, k recordKey, action string, now time.Time) error {
	switch k.collection {
	case events.CollectionOrders:
		if action == events.ActionDelete {
			snap.RemoveOrder(k.id)
			return nil
		}
		o, err := s.source.Order(ctx, s.restaurantID, k.id)
		if errors.Is(err, services.ErrNotFound) {
			snap.RemoveOrder(k.id)
			return nil
		}
		if err != nil {
			return err
		}
		snap.ApplyOrder(*o, now)
	case events.CollectionTables:
		if action == events.ActionDelete {
			snap.RemoveTable(k.id)
			return nil
		}
		t, err := s.source.Table(ctx, s.restaurantID, k.id)
		if errors.Is(err, services.ErrNotFound) {
			snap.RemoveTable(k.id)
			return nil
		}
		if err != nil {
			return err
		}
		snap.ApplyTable(*t)
	}
	return nil
}

func (s *Synchronizer) retime() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Frame{}, false
	}
	next := s.current.Clone()
	next.RefreshTimings(s.Now().UTC())
	s.current = next
	return Frame{Type: FrameSnapshot, View: s.view, Generation: s.generation, Data: next.Clone()}, true
}
