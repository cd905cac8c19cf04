package models

import "time"

const (
	SideEffectMarkTableOccupied = "mark_table_occupied"

	SideEffectPending   = "pending"
	SideEffectDone      = "done"
	SideEffectAbandoned = "abandoned"
)

// PendingSideEffect is a compensating-action log entry for a non-critical write that
// failed after its primary operation succeeded.
type PendingSideEffect struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Kind          string    `gorm:"type:varchar(50);not null" json:"kind"`
	RestaurantID  uint      `gorm:"not null" json:"restaurant_id"`
	OrderID       uint      `json:"order_id"`
	TableNumber   int       `json:"table_number"`
	Status        string    `gorm:"type:varchar(20);not null;default:'pending';index:idx_side_effect_due" json:"status"`
	Attempts      int       `gorm:"not null;default:0" json:"attempts"`
	LastError     string    `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time `gorm:"not null;index:idx_side_effect_due" json:"next_attempt_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
