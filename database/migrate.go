package database

import (
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/gorm"
)

// Models lists every persisted entity in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Restaurant{},
		&models.StaffAssignment{},
		&models.MenuItem{},
		&models.Table{},
		&models.Order{},
		&models.OrderLine{},
		&models.PendingSideEffect{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}

	// Restaurant lookups by owner and active staff are on every authenticated request.
	if !db.Migrator().HasIndex(&models.StaffAssignment{}, "idx_staff_user_active") {
		if err := db.Exec("CREATE INDEX idx_staff_user_active ON restaurant_staff (user_id, is_active)").Error; err != nil {
			utils.ErrorLogger.Printf("Error creating staff index: %v", err)
		}
	}

	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
