package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultPrepTime = 15

// MenuCategories is the fixed category set, in display order.
var MenuCategories = []string{
	"Appetizers",
	"Main Courses",
	"Desserts",
	"Beverages",
	"Specials",
	"Salads",
	"Soups",
	"Sides",
}

func IsMenuCategory(name string) bool {
	for _, c := range MenuCategories {
		if c == name {
			return true
		}
	}
	return false
}

type MenuItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	RestaurantID uint            `gorm:"not null;index" json:"restaurant_id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category     string          `gorm:"type:varchar(50);not null" json:"category"`
	IsAvailable  bool            `gorm:"not null;default:true" json:"is_available"`
	PrepTime     int             `gorm:"not null;default:15" json:"prep_time"`
	ImageURL     string          `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}
