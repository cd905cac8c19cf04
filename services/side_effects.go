package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/gorm"
)

// SideEffectLog records non-critical writes that failed so they can be retried.
type SideEffectLog struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewSideEffectLog(db *gorm.DB) *SideEffectLog {
	return &SideEffectLog{DB: db, Now: time.Now}
}

// RecordTableOccupancy queues a retry of marking the order's table occupied.
func (l *SideEffectLog) RecordTableOccupancy(ctx context.Context, order *models.Order, cause error) error {
	entry := models.PendingSideEffect{
		Kind:          models.SideEffectMarkTableOccupied,
		RestaurantID:  order.RestaurantID,
		OrderID:       order.ID,
		TableNumber:   order.TableNumber,
		Status:        models.SideEffectPending,
		LastError:     cause.Error(),
		NextAttemptAt: l.Now().UTC(),
	}
	return l.DB.WithContext(ctx).Create(&entry).Error
}

// SideEffectMonitor replays pending side effects on a ticker with exponential
// backoff until they succeed or run out of attempts.
type SideEffectMonitor struct {
	DB          *gorm.DB
	Tables      *TableService
	Interval    time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	BatchSize   int
	Now         func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewSideEffectMonitor(db *gorm.DB, tables *TableService) *SideEffectMonitor {
	return &SideEffectMonitor{
		DB:          db,
		Tables:      tables,
		Interval:    5 * time.Second,
		MaxAttempts: 10,
		BaseBackoff: 5 * time.Second,
		MaxBackoff:  5 * time.Minute,
		BatchSize:   50,
		Now:         time.Now,
		stopChan:    make(chan struct{}),
	}
}

func (m *SideEffectMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := m.RunOnce(context.Background()); err != nil {
					utils.ErrorLogger.Errorf("Side effect retry pass failed: %v", err)
				}
			case <-m.stopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Println("Side effect monitor started")
}

func (m *SideEffectMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// RunOnce processes the entries that are due and reports how many succeeded.
func (m *SideEffectMonitor) RunOnce(ctx context.Context) (int, error) {
	now := m.Now().UTC()

	var due []models.PendingSideEffect
	if err := m.DB.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.SideEffectPending, now).
		Order("id ASC").
		Limit(m.BatchSize).
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("load pending side effects: %w", err)
	}

	succeeded := 0
	for i := range due {
		entry := &due[i]
		entry.Attempts++

		err := m.apply(ctx, entry)
		switch {
		case err == nil:
			entry.Status = models.SideEffectDone
			entry.LastError = ""
			succeeded++
		case entry.Attempts >= m.MaxAttempts:
			entry.Status = models.SideEffectAbandoned
			entry.LastError = err.Error()
			utils.ErrorLogger.WithFields(logrus.Fields{
				"side_effect": entry.ID,
				"kind":        entry.Kind,
				"order_id":    entry.OrderID,
			}).Errorf("Giving up on side effect after %d attempts: %v", entry.Attempts, err)
		default:
			entry.LastError = err.Error()
			entry.NextAttemptAt = now.Add(m.backoff(entry.Attempts))
		}

		if err := m.DB.WithContext(ctx).Save(entry).Error; err != nil {
			return succeeded, fmt.Errorf("save side effect %d: %w", entry.ID, err)
		}
	}
	return succeeded, nil
}

func (m *SideEffectMonitor) apply(ctx context.Context, entry *models.PendingSideEffect) error {
	switch entry.Kind {
	case models.SideEffectMarkTableOccupied:
		return m.Tables.MarkOccupied(ctx, entry.RestaurantID, entry.TableNumber)
	default:
		return fmt.Errorf("unknown side effect kind %q", entry.Kind)
	}
}

func (m *SideEffectMonitor) backoff(attempts int) time.Duration {
	d := m.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= m.MaxBackoff {
			return m.MaxBackoff
		}
	}
	return d
}
