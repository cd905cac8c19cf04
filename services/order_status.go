package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// EstimateBuffer is added to the slowest line's prep time.
const EstimateBuffer = 5

// NextStatus is the only status an order may move to from s.
func NextStatus(s models.OrderStatus) (models.OrderStatus, bool) {
	for i, st := range models.OrderStatuses {
		if st == s && i+1 < len(models.OrderStatuses) {
			return models.OrderStatuses[i+1], true
		}
	}
	return "", false
}

func IsOrderStatus(s models.OrderStatus) bool {
	for _, st := range models.OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransition allows exactly one forward step.
func CanTransition(from, to models.OrderStatus) bool {
	next, ok := NextStatus(from)
	return ok && next == to
}

// TransitionCapability names who may move an order into status to.
func TransitionCapability(to models.OrderStatus) session.Capability {
	if to == models.OrderDelivered {
		return session.CapServe
	}
	return session.CapKitchen
}

// EstimatedTime is the slowest line's prep time plus EstimateBuffer. Lines whose
// menu item is unknown count as the default prep time.
func EstimatedTime(lines []models.OrderLine) int {
	max := 0
	for _, l := range lines {
		prep := l.MenuItem.PrepTime
		if prep <= 0 {
			prep = models.DefaultPrepTime
		}
		if prep > max {
			max = prep
		}
	}
	if max == 0 {
		max = models.DefaultPrepTime
	}
	return max + EstimateBuffer
}

// Advance moves an order one step forward. The write only applies if the order is
// still in the status it was read in, so concurrent staff actions cannot skip or
// repeat a stage.
func (s *OrderService) Advance(ctx context.Context, sess *session.Context, id uint, to models.OrderStatus) (*models.Order, error) {
	if !IsOrderStatus(to) {
		return nil, validationf("unknown status %q", to)
	}
	order, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, sess, order, to)
}

// transition writes the move from the status order was read in.
func (s *OrderService) transition(ctx context.Context, sess *session.Context, order *models.Order, to models.OrderStatus) (*models.Order, error) {
	id := order.ID
	from := order.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: order %d is %s and cannot become %s", ErrInvalidTransition, id, from, to)
	}
	if !sess.Can(TransitionCapability(to)) {
		return nil, forbiddenf("role %s cannot mark orders %s", sess.Role(), to)
	}

	now := s.Now().UTC()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case models.OrderCooking:
		est := EstimatedTime(order.Lines)
		updates["estimated_time"] = est
		updates["cooking_started_at"] = now
		order.EstimatedTime = &est
		order.CookingStartedAt = &now
	case models.OrderReady:
		updates["ready_at"] = now
		order.ReadyAt = &now
	case models.OrderDelivered:
		updates["delivered_at"] = now
		order.DeliveredAt = &now
	}

	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND restaurant_id = ? AND status = ?", id, sess.RestaurantID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, writeErr(res.Error, fmt.Sprintf("update order %d", id))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order %d changed status concurrently", ErrConflict, id)
	}

	order.Status = to
	order.UpdatedAt = now
	s.publish(ctx, *order, events.ActionUpdate)
	utils.InfoLogger.Printf("Order %d: %s -> %s by user %d", id, from, to, sess.UserID)
	return order, nil
}

// AdvanceNext moves an order to whatever status follows its current one.
func (s *OrderService) AdvanceNext(ctx context.Context, sess *session.Context, id uint) (*models.Order, error) {
	order, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	next, ok := NextStatus(order.Status)
	if !ok {
		return nil, fmt.Errorf("%w: order %d is already %s", ErrInvalidTransition, id, order.Status)
	}
	return s.transition(ctx, sess, order, next)
}
