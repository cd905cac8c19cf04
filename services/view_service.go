package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/gorm"
)

type ViewName string

const (
	ViewKitchen ViewName = "kitchen"
	ViewWaiter  ViewName = "waiter"
	ViewAdmin   ViewName = "admin"
)

// KitchenStatuses are the orders the kitchen still has to act on.
var KitchenStatuses = []models.OrderStatus{models.OrderPending, models.OrderCooking, models.OrderReady}

func ParseViewName(raw string) (ViewName, error) {
	switch v := ViewName(raw); v {
	case ViewKitchen, ViewWaiter, ViewAdmin:
		return v, nil
	}
	return "", validationf("unknown view %q", raw)
}

// ViewSnapshot is one consistent read of a role-specific screen.
//
//	kitchen: Orders = pending/cooking/ready, newest first, with Timings
//	waiter:  Orders = ready, oldest first; Delivered = delivered today; Tables
//	admin:   Orders = all, newest first; Tables
type ViewSnapshot struct {
	View           ViewName        `json:"view"`
	RestaurantID   uint            `json:"restaurant_id"`
	Orders         []models.Order  `json:"orders"`
	Delivered      []models.Order  `json:"delivered,omitempty"`
	Tables         []models.Table  `json:"tables,omitempty"`
	Timings        map[uint]Timing `json:"timings,omitempty"`
	DeliveredSince time.Time       `json:"delivered_since,omitempty"`
	FetchedAt      time.Time       `json:"fetched_at"`
	Generation     uint64          `json:"generation"`
	Provisional    map[uint]string `json:"provisional,omitempty"`
}

type ViewService struct {
	DB       *gorm.DB
	Now      func() time.Time
	Location *time.Location
}

func NewViewService(db *gorm.DB) *ViewService {
	return &ViewService{DB: db, Now: time.Now, Location: time.Local}
}

// DayStart is local midnight of the current day, in UTC.
func (s *ViewService) DayStart() time.Time {
	now := s.Now().In(s.Location)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.Location).UTC()
}

func (s *ViewService) orders(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.Order{}).Preload("Lines.MenuItem")
}

// Snapshot performs the full fetch for a view.
func (s *ViewService) Snapshot(ctx context.Context, restaurantID uint, view ViewName) (*ViewSnapshot, error) {
	now := s.Now().UTC()
	snap := &ViewSnapshot{View: view, RestaurantID: restaurantID, FetchedAt: now}

	switch view {
	case ViewKitchen:
		if err := s.orders(ctx).
			Where("restaurant_id = ? AND status IN ?", restaurantID, KitchenStatuses).
			Order("created_at DESC").Order("id DESC").
			Find(&snap.Orders).Error; err != nil {
			return nil, readErr(err, "kitchen orders")
		}
	case ViewWaiter:
		snap.DeliveredSince = s.DayStart()
		if err := s.orders(ctx).
			Where("restaurant_id = ? AND status = ?", restaurantID, models.OrderReady).
			Order("created_at ASC").Order("id ASC").
			Find(&snap.Orders).Error; err != nil {
			return nil, readErr(err, "ready orders")
		}
		if err := s.orders(ctx).
			Where("restaurant_id = ? AND status = ? AND delivered_at >= ?", restaurantID, models.OrderDelivered, snap.DeliveredSince).
			Order("delivered_at DESC").Order("id DESC").
			Find(&snap.Delivered).Error; err != nil {
			return nil, readErr(err, "delivered orders")
		}
	case ViewAdmin:
		if err := s.orders(ctx).
			Where("restaurant_id = ?", restaurantID).
			Order("created_at DESC").Order("id DESC").
			Find(&snap.Orders).Error; err != nil {
			return nil, readErr(err, "orders")
		}
	default:
		return nil, validationf("unknown view %q", view)
	}

	if view != ViewKitchen {
		if err := s.DB.WithContext(ctx).
			Where("restaurant_id = ?", restaurantID).
			Order("table_number ASC").
			Find(&snap.Tables).Error; err != nil {
			return nil, readErr(err, "tables")
		}
	}

	snap.RefreshTimings(now)
	return snap, nil
}

// Order re-reads one order for patching a snapshot.
func (s *ViewService) Order(ctx context.Context, restaurantID, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.orders(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&order).Error; err != nil {
		return nil, readErr(err, fmt.Sprintf("order %d", id))
	}
	return &order, nil
}

func (s *ViewService) Table(ctx context.Context, restaurantID, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&table).Error; err != nil {
		return nil, readErr(err, fmt.Sprintf("table %d", id))
	}
	return &table, nil
}

// RefreshTimings re-classifies kitchen orders against now.
func (snap *ViewSnapshot) RefreshTimings(now time.Time) {
	if snap.View != ViewKitchen {
		snap.Timings = nil
		return
	}
	snap.Timings = make(map[uint]Timing, len(snap.Orders))
	for _, o := range snap.Orders {
		snap.Timings[o.ID] = ClassifyTiming(o.CreatedAt, o.EstimatedTime, now)
	}
}

func (snap *ViewSnapshot) Clone() *ViewSnapshot {
	cp := *snap
	cp.Orders = append([]models.Order(nil), snap.Orders...)
	cp.Delivered = append([]models.Order(nil), snap.Delivered...)
	cp.Tables = append([]models.Table(nil), snap.Tables...)
	if snap.Timings != nil {
		cp.Timings = make(map[uint]Timing, len(snap.Timings))
		for k, v := range snap.Timings {
			cp.Timings[k] = v
		}
	}
	if snap.Provisional != nil {
		cp.Provisional = make(map[uint]string, len(snap.Provisional))
		for k, v := range snap.Provisional {
			cp.Provisional[k] = v
		}
	}
	return &cp
}

func removeOrder(list []models.Order, id uint) []models.Order {
	out := list[:0]
	for _, o := range list {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

// RemoveOrder drops an order from every list.
func (snap *ViewSnapshot) RemoveOrder(id uint) {
	snap.Orders = removeOrder(snap.Orders, id)
	snap.Delivered = removeOrder(snap.Delivered, id)
	delete(snap.Timings, id)
	delete(snap.Provisional, id)
}

// ApplyOrder places a freshly read order where the view's full fetch would have
// put it, or removes it if the view no longer shows it.
func (snap *ViewSnapshot) ApplyOrder(o models.Order, now time.Time) {
	snap.RemoveOrder(o.ID)

	switch snap.View {
	case ViewKitchen:
		for _, st := range KitchenStatuses {
			if o.Status == st {
				snap.Orders = append(snap.Orders, o)
				break
			}
		}
		sortNewestFirst(snap.Orders)
	case ViewWaiter:
		switch {
		case o.Status == models.OrderReady:
			snap.Orders = append(snap.Orders, o)
			sort.SliceStable(snap.Orders, func(i, j int) bool {
				if !snap.Orders[i].CreatedAt.Equal(snap.Orders[j].CreatedAt) {
					return snap.Orders[i].CreatedAt.Before(snap.Orders[j].CreatedAt)
				}
				return snap.Orders[i].ID < snap.Orders[j].ID
			})
		case o.Status == models.OrderDelivered && o.DeliveredAt != nil && !o.DeliveredAt.Before(snap.DeliveredSince):
			snap.Delivered = append(snap.Delivered, o)
			sort.SliceStable(snap.Delivered, func(i, j int) bool {
				a, b := snap.Delivered[i], snap.Delivered[j]
				if !a.DeliveredAt.Equal(*b.DeliveredAt) {
					return a.DeliveredAt.After(*b.DeliveredAt)
				}
				return a.ID > b.ID
			})
		}
	case ViewAdmin:
		snap.Orders = append(snap.Orders, o)
		sortNewestFirst(snap.Orders)
	}
	snap.RefreshTimings(now)
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// ApplyTable upserts a table, keeping table-number order.
func (snap *ViewSnapshot) ApplyTable(t models.Table) {
	if snap.View == ViewKitchen {
		return
	}
	snap.RemoveTable(t.ID)
	snap.Tables = append(snap.Tables, t)
	sort.SliceStable(snap.Tables, func(i, j int) bool {
		return snap.Tables[i].TableNumber < snap.Tables[j].TableNumber
	})
}

func (snap *ViewSnapshot) RemoveTable(id uint) {
	out := snap.Tables[:0]
	for _, t := range snap.Tables {
		if t.ID != id {
			out = append(out, t)
		}
	}
	snap.Tables = out
}

// OrderStatus reports the status an order has in the snapshot.
func (snap *ViewSnapshot) OrderStatus(id uint) (models.OrderStatus, bool) {
	for _, list := range [][]models.Order{snap.Orders, snap.Delivered} {
		for _, o := range list {
			if o.ID == id {
				return o.Status, true
			}
		}
	}
	return "", false
}

// SetOrderStatus is a provisional local edit; the next fetch overwrites it.
func (snap *ViewSnapshot) SetOrderStatus(id uint, status models.OrderStatus) bool {
	found := false
	for _, list := range [][]models.Order{snap.Orders, snap.Delivered} {
		for i := range list {
			if list[i].ID == id {
				list[i].Status = status
				found = true
			}
		}
	}
	if found {
		if snap.Provisional == nil {
			snap.Provisional = map[uint]string{}
		}
		snap.Provisional[id] = string(status)
	}
	return found
}

// OrderIDs lists every order id in the snapshot, in list order.
func (snap *ViewSnapshot) OrderIDs() []uint {
	var ids []uint
	for _, o := range snap.Orders {
		ids = append(ids, o.ID)
	}
	for _, o := range snap.Delivered {
		ids = append(ids, o.ID)
	}
	return ids
}

type RecentOrder struct {
	ID           uint               `json:"id"`
	TableNumber  int                `json:"table_number"`
	CustomerName string             `json:"customer_name,omitempty"`
	Status       models.OrderStatus `json:"status"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	ItemCount    int                `json:"item_count"`
	CreatedAt    time.Time          `json:"created_at"`
}

type DashboardStats struct {
	DailyRevenue        decimal.Decimal `json:"daily_revenue"`
	DailyRevenueDisplay string          `json:"daily_revenue_display"`
	ActiveOrders        int64           `json:"active_orders"`
	OccupiedTables      int64           `json:"occupied_tables"`
	TotalTables         int64           `json:"total_tables"`
	AvgOrderTime        int             `json:"avg_order_time"`
	RecentOrders        []RecentOrder   `json:"recent_orders"`
}

// avgOrderTimePlaceholder stands in until order durations are aggregated.
const avgOrderTimePlaceholder = 18

func (s *ViewService) Dashboard(ctx context.Context, restaurantID uint) (*DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	stats := &DashboardStats{AvgOrderTime: avgOrderTimePlaceholder}

	var revenue decimal.NullDecimal
	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("restaurant_id = ? AND created_at >= ?", restaurantID, s.DayStart()).
		Row().Scan(&revenue); err != nil {
		return nil, readErr(err, "daily revenue")
	}
	stats.DailyRevenue = revenue.Decimal.Round(2)
	stats.DailyRevenueDisplay = utils.FormatCurrency(stats.DailyRevenue)

	if err := db.Model(&models.Order{}).
		Where("restaurant_id = ? AND status <> ?", restaurantID, models.OrderDelivered).
		Count(&stats.ActiveOrders).Error; err != nil {
		return nil, readErr(err, "active orders")
	}
	if err := db.Model(&models.Table{}).
		Where("restaurant_id = ?", restaurantID).
		Count(&stats.TotalTables).Error; err != nil {
		return nil, readErr(err, "tables")
	}
	if err := db.Model(&models.Table{}).
		Where("restaurant_id = ? AND is_occupied = ?", restaurantID, true).
		Count(&stats.OccupiedTables).Error; err != nil {
		return nil, readErr(err, "occupied tables")
	}

	var recent []models.Order
	if err := db.Preload("Lines").
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").Order("id DESC").
		Limit(5).
		Find(&recent).Error; err != nil {
		return nil, readErr(err, "recent orders")
	}
	stats.RecentOrders = make([]RecentOrder, 0, len(recent))
	for _, o := range recent {
		stats.RecentOrders = append(stats.RecentOrders, RecentOrder{
			ID:           o.ID,
			TableNumber:  o.TableNumber,
			CustomerName: o.CustomerName,
			Status:       o.Status,
			TotalAmount:  o.TotalAmount,
			ItemCount:    o.ItemCount(),
			CreatedAt:    o.CreatedAt,
		})
	}
	return stats, nil
}
