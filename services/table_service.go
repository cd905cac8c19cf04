package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/gorm"
)

type TableService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewTableService(db *gorm.DB, pub events.Publisher) *TableService {
	if pub == nil {
		pub = events.Discard
	}
	return &TableService{DB: db, Events: pub}
}

// List returns the restaurant's tables by table number.
func (s *TableService) List(ctx context.Context, restaurantID uint) ([]models.Table, error) {
	var tables []models.Table
	if err := s.DB.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("table_number ASC").
		Find(&tables).Error; err != nil {
		return nil, readErr(err, "tables")
	}
	return tables, nil
}

type TableInput struct {
	TableNumber int `json:"table_number"`
	Capacity    int `json:"capacity"`
}

func (s *TableService) Create(ctx context.Context, sess *session.Context, in TableInput) (*models.Table, error) {
	if !sess.Can(session.CapManageTables) {
		return nil, forbiddenf("table management requires admin role")
	}
	if in.TableNumber <= 0 {
		return nil, validationf("table number must be a positive integer")
	}
	if in.Capacity == 0 {
		in.Capacity = 4
	}
	if in.Capacity < 0 {
		return nil, validationf("capacity must be positive")
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.Table{}).
		Where("restaurant_id = ? AND table_number = ?", sess.RestaurantID, in.TableNumber).
		Count(&existing).Error; err != nil {
		return nil, readErr(err, "tables")
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: table %d already exists", ErrConflict, in.TableNumber)
	}

	table := models.Table{
		RestaurantID: sess.RestaurantID,
		TableNumber:  in.TableNumber,
		Capacity:     in.Capacity,
	}
	if err := s.DB.WithContext(ctx).Create(&table).Error; err != nil {
		return nil, writeErr(err, "create table")
	}
	s.publish(ctx, table, events.ActionInsert)
	utils.InfoLogger.Printf("New table created: %d (restaurant=%d)", table.TableNumber, table.RestaurantID)
	return &table, nil
}

func (s *TableService) get(ctx context.Context, restaurantID, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&table).Error; err != nil {
		return nil, readErr(err, fmt.Sprintf("table %d", id))
	}
	return &table, nil
}

func (s *TableService) Delete(ctx context.Context, sess *session.Context, id uint) error {
	if !sess.Can(session.CapManageTables) {
		return forbiddenf("table management requires admin role")
	}
	table, err := s.get(ctx, sess.RestaurantID, id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(table).Error; err != nil {
		return writeErr(err, "delete table")
	}
	s.publish(ctx, *table, events.ActionDelete)
	return nil
}

// SetOccupancy is the manual operator override; order delivery never clears a table.
func (s *TableService) SetOccupancy(ctx context.Context, sess *session.Context, id uint, occupied bool) (*models.Table, error) {
	if !sess.Can(session.CapServe) && !sess.Can(session.CapManageTables) {
		return nil, forbiddenf("updating table occupancy requires waiter or admin role")
	}
	table, err := s.get(ctx, sess.RestaurantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(table).Update("is_occupied", occupied).Error; err != nil {
		return nil, writeErr(err, "update table occupancy")
	}
	table.IsOccupied = occupied
	s.publish(ctx, *table, events.ActionUpdate)
	return table, nil
}

// MarkOccupied flags the table carrying tableNumber. A restaurant without such a
// table is not an error.
func (s *TableService) MarkOccupied(ctx context.Context, restaurantID uint, tableNumber int) error {
	var table models.Table
	err := s.DB.WithContext(ctx).
		Where("restaurant_id = ? AND table_number = ?", restaurantID, tableNumber).
		First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InfoLogger.WithFields(logrus.Fields{
			"restaurant_id": restaurantID,
			"table_number":  tableNumber,
		}).Warn("Order placed for a table that is not registered")
		return nil
	}
	if err != nil {
		return err
	}
	if table.IsOccupied {
		return nil
	}
	if err := s.DB.WithContext(ctx).Model(&table).Update("is_occupied", true).Error; err != nil {
		return err
	}
	table.IsOccupied = true
	s.publish(ctx, table, events.ActionUpdate)
	return nil
}

func (s *TableService) publish(ctx context.Context, t models.Table, action string) {
	s.Events.Publish(ctx, events.Notice{
		RestaurantID: t.RestaurantID,
		Collection:   events.CollectionTables,
		Action:       action,
		RecordID:     t.ID,
	})
}
