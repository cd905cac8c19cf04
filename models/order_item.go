package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine is stored in order_items. UnitPrice is captured at submission and never
// follows later menu price changes.
type OrderLine struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order               Order           `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuItemID          uint            `gorm:"not null" json:"menu_item_id"`
	MenuItem            MenuItem        `gorm:"foreignKey:MenuItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu_item"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	SpecialInstructions string          `gorm:"type:text" json:"special_instructions,omitempty"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
}

func (OrderLine) TableName() string {
	return "order_items"
}

// Subtotal is UnitPrice × Quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
