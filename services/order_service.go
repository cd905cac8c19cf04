package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/cart"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderService struct {
	DB          *gorm.DB
	Events      events.Publisher
	Tables      *TableService
	SideEffects *SideEffectLog
	Now         func() time.Time
}

func NewOrderService(db *gorm.DB, pub events.Publisher, tables *TableService, sideEffects *SideEffectLog) *OrderService {
	if pub == nil {
		pub = events.Discard
	}
	return &OrderService{
		DB:          db,
		Events:      pub,
		Tables:      tables,
		SideEffects: sideEffects,
		Now:         time.Now,
	}
}

type LineInput struct {
	MenuItemID          uint   `json:"menu_item_id"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"special_instructions"`
}

// SubmitInput is a cart ready to become an order. RestaurantID may be zero, in
// which case it is derived from the menu items.
type SubmitInput struct {
	RestaurantID uint
	TableNumber  string
	CustomerName string
	Lines        []LineInput
}

// ParseTableNumber accepts positive decimal integers only.
func ParseTableNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, validationf("table number must be a positive integer")
	}
	return n, nil
}

// LinesFromCart converts accumulated cart lines into submission lines.
func LinesFromCart(c *cart.Cart) []LineInput {
	lines := make([]LineInput, 0, len(c.Lines()))
	for _, l := range c.Lines() {
		lines = append(lines, LineInput{
			MenuItemID:          l.MenuItemID,
			Quantity:            l.Quantity,
			SpecialInstructions: l.SpecialInstructions,
		})
	}
	return lines
}

// Submit validates the cart, then writes the order, its lines and, best effort,
// the table occupancy. Every precondition is checked before the first write.
func (s *OrderService) Submit(ctx context.Context, in SubmitInput) (*models.Order, error) {
	tableNumber, err := ParseTableNumber(in.TableNumber)
	if err != nil {
		return nil, err
	}
	if len(in.Lines) == 0 {
		return nil, validationf("cart is empty")
	}

	c, restaurantID, err := s.buildCart(ctx, in)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		RestaurantID: restaurantID,
		TableNumber:  tableNumber,
		CustomerName: strings.TrimSpace(in.CustomerName),
		Status:       models.OrderPending,
		TotalAmount:  c.TotalAmount(),
	}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, writeErr(err, "create order")
	}

	lines := make([]models.OrderLine, 0, len(c.Lines()))
	for _, l := range c.Lines() {
		lines = append(lines, models.OrderLine{
			OrderID:             order.ID,
			MenuItemID:          l.MenuItemID,
			Quantity:            l.Quantity,
			UnitPrice:           l.Price,
			SpecialInstructions: l.SpecialInstructions,
		})
	}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(&lines).Error; err != nil {
		// The order row stays; it is visible to staff with no items.
		utils.ErrorLogger.WithFields(logrus.Fields{
			"order_id":      order.ID,
			"restaurant_id": order.RestaurantID,
		}).Errorf("Order saved without items: %v", err)
		s.publish(ctx, order, events.ActionInsert)
		return nil, writeErr(err, fmt.Sprintf("create items for order %d", order.ID))
	}
	order.Lines = lines
	for i, l := range c.Lines() {
		order.Lines[i].MenuItem = models.MenuItem{
			ID:           l.MenuItemID,
			RestaurantID: restaurantID,
			Name:         l.Name,
			Price:        l.Price,
			PrepTime:     l.PrepTime,
		}
	}

	s.publish(ctx, order, events.ActionInsert)
	s.markTableOccupied(ctx, &order)

	utils.InfoLogger.Printf("Order %d placed: restaurant=%d table=%d items=%d total=%s",
		order.ID, order.RestaurantID, order.TableNumber, order.ItemCount(), utils.FormatCurrency(order.TotalAmount))
	return &order, nil
}

// buildCart resolves menu items, checks they are orderable from one restaurant and
// folds the lines through the cart reducer so repeated items merge.
func (s *OrderService) buildCart(ctx context.Context, in SubmitInput) (*cart.Cart, uint, error) {
	ids := make([]uint, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity <= 0 || l.Quantity > cart.MaxQuantity {
			return nil, 0, validationf("quantity for menu item %d must be between 1 and %d", l.MenuItemID, cart.MaxQuantity)
		}
		ids = append(ids, l.MenuItemID)
	}

	var items []models.MenuItem
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, 0, readErr(err, "menu items")
	}
	byID := make(map[uint]models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	restaurantID := in.RestaurantID
	c := cart.New()
	for _, l := range in.Lines {
		item, ok := byID[l.MenuItemID]
		if !ok {
			return nil, 0, validationf("menu item %d does not exist", l.MenuItemID)
		}
		if restaurantID == 0 {
			restaurantID = item.RestaurantID
		}
		if item.RestaurantID != restaurantID {
			return nil, 0, validationf("menu item %d belongs to another restaurant", item.ID)
		}
		if !item.IsAvailable {
			return nil, 0, validationf("%s is not available", item.Name)
		}

		if err := c.AddN(cart.Item{
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			PrepTime:   item.PrepTime,
		}, l.Quantity); err != nil {
			return nil, 0, validationf("%s exceeds %d per order", item.Name, cart.MaxQuantity)
		}
		if note := strings.TrimSpace(l.SpecialInstructions); note != "" {
			existing := ""
			for _, cl := range c.Lines() {
				if cl.MenuItemID == item.ID {
					existing = cl.SpecialInstructions
				}
			}
			if existing != "" {
				note = existing + "; " + note
			}
			c.SetInstructions(item.ID, note)
		}
	}
	if restaurantID == 0 {
		return nil, 0, validationf("restaurant could not be determined")
	}
	return c, restaurantID, nil
}

// markTableOccupied never fails the submission; a failed update goes to the
// compensating-action log.
func (s *OrderService) markTableOccupied(ctx context.Context, order *models.Order) {
	if s.Tables == nil {
		return
	}
	err := s.Tables.MarkOccupied(ctx, order.RestaurantID, order.TableNumber)
	if err == nil {
		return
	}

	fields := logrus.Fields{
		"order_id":      order.ID,
		"restaurant_id": order.RestaurantID,
		"table_number":  order.TableNumber,
	}
	utils.ErrorLogger.WithFields(fields).Warnf("Marking table occupied failed: %v", err)
	if s.SideEffects == nil {
		return
	}
	if recErr := s.SideEffects.RecordTableOccupancy(ctx, order, err); recErr != nil {
		utils.ErrorLogger.WithFields(fields).Errorf("Recording table occupancy retry failed: %v", recErr)
	}
}

// Get loads an order of the session's restaurant with its lines and item names.
func (s *OrderService) Get(ctx context.Context, sess *session.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).
		Preload("Lines.MenuItem").
		Where("id = ? AND restaurant_id = ?", id, sess.RestaurantID).
		First(&order).Error; err != nil {
		return nil, readErr(err, fmt.Sprintf("order %d", id))
	}
	return &order, nil
}

func (s *OrderService) publish(ctx context.Context, o models.Order, action string) {
	s.Events.Publish(ctx, events.Notice{
		RestaurantID: o.RestaurantID,
		Collection:   events.CollectionOrders,
		Action:       action,
		RecordID:     o.ID,
	})
}
