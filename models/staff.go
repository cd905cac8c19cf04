package models

import "time"

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleChef   = "chef"
	RoleWaiter = "waiter"
)

// StaffAssignment links a user to a restaurant with a role.
type StaffAssignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;uniqueIndex:idx_staff_restaurant_user" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"-"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_staff_restaurant_user;index" json:"user_id"`
	User         User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role         string     `gorm:"type:varchar(20);not null" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (StaffAssignment) TableName() string {
	return "restaurant_staff"
}
