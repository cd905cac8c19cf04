package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCooking   OrderStatus = "cooking"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
)

// OrderStatuses is the forward-only lifecycle, in order.
var OrderStatuses = []OrderStatus{OrderPending, OrderCooking, OrderReady, OrderDelivered}

type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	RestaurantID     uint            `gorm:"not null;index:idx_orders_restaurant_status" json:"restaurant_id"`
	TableNumber      int             `gorm:"not null" json:"table_number"`
	CustomerName     string          `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_restaurant_status" json:"status"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	EstimatedTime    *int            `json:"estimated_time,omitempty"`
	CookingStartedAt *time.Time      `json:"cooking_started_at,omitempty"`
	ReadyAt          *time.Time      `json:"ready_at,omitempty"`
	DeliveredAt      *time.Time      `gorm:"index" json:"delivered_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
	Lines            []OrderLine     `gorm:"foreignKey:OrderID" json:"order_items"`
}

// ItemCount sums line quantities.
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
