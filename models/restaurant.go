package models

import "time"

type Restaurant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Phone       string    `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Email       string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address     string    `gorm:"type:varchar(255)" json:"address,omitempty"`
	City        string    `gorm:"type:varchar(100)" json:"city,omitempty"`
	State       string    `gorm:"type:varchar(100)" json:"state,omitempty"`
	ZipCode     string    `gorm:"type:varchar(20)" json:"zip_code,omitempty"`
	LogoURL     string    `gorm:"type:varchar(512)" json:"logo_url,omitempty"`
	Website     string    `gorm:"type:varchar(255)" json:"website,omitempty"`
	CuisineType string    `gorm:"type:varchar(100)" json:"cuisine_type,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
