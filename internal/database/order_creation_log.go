package database

import (
	"context"

	"gorm.io/gorm"

	"tiffin-api/internal/models"
)

// LogFilter narrows ListLogs. Zero values match everything.
type LogFilter struct {
	DailyMealID uint
	Status      models.LogStatus
	Limit       int
}

const defaultLogLimit = 50

// CreateLog persists a new batch log.
func (s *Store) CreateLog(ctx context.Context, log *models.OrderCreationLog) error {
	return s.db.WithContext(ctx).Omit("FailedOrders", "SuccessfulOrders").Create(log).Error
}

// SetUsersFound records how many subscriptions a batch matched.
func (s *Store) SetUsersFound(ctx context.Context, logID uint, total int) error {
	return s.db.WithContext(ctx).
		Model(&models.OrderCreationLog{}).
		Where("id = ?", logID).
		Update("total_users_found", total).Error
}

// AppendFailedOrder stores a failure entry and bumps the failure counter together.
func (s *Store) AppendFailedOrder(ctx context.Context, logID uint, entry *models.FailedOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry.LogID = logID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.OrderCreationLog{}).
			Where("id = ?", logID).
			UpdateColumn("total_orders_failed", gorm.Expr("total_orders_failed + 1")).Error
	})
}

// AppendSuccessfulOrder stores a success entry and bumps the created counter together.
func (s *Store) AppendSuccessfulOrder(ctx context.Context, logID uint, entry *models.SuccessfulOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry.LogID = logID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.OrderCreationLog{}).
			Where("id = ?", logID).
			UpdateColumn("total_orders_created", gorm.Expr("total_orders_created + 1")).Error
	})
}

// FinishLog writes the final status of a batch.
func (s *Store) FinishLog(ctx context.Context, log *models.OrderCreationLog) error {
	return s.db.WithContext(ctx).
		Model(&models.OrderCreationLog{}).
		Where("id = ?", log.ID).
		Updates(map[string]interface{}{
			"status":        log.Status,
			"completed_at":  log.CompletedAt,
			"error_message": log.ErrorMessage,
		}).Error
}

// ResolveFailedOrder replaces a failure entry with the successes of its retry.
func (s *Store) ResolveFailedOrder(ctx context.Context, logID, failedOrderID uint, successes []models.SuccessfulOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND log_id = ?", failedOrderID, logID).Delete(&models.FailedOrder{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.OrderCreationLog{}).
			Where("id = ? AND total_orders_failed > 0", logID).
			UpdateColumn("total_orders_failed", gorm.Expr("total_orders_failed - 1")).Error; err != nil {
			return err
		}
		for i := range successes {
			successes[i].LogID = logID
			if err := tx.Create(&successes[i]).Error; err != nil {
				return err
			}
		}
		if len(successes) == 0 {
			return nil
		}
		return tx.Model(&models.OrderCreationLog{}).
			Where("id = ?", logID).
			UpdateColumn("total_orders_created", gorm.Expr("total_orders_created + ?", len(successes))).Error
	})
}

// GetLog loads a log with its failure and success entries in insertion order.
func (s *Store) GetLog(ctx context.Context, id uint) (*models.OrderCreationLog, error) {
	var log models.OrderCreationLog
	err := s.db.WithContext(ctx).
		Preload("FailedOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("SuccessfulOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&log, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &log, nil
}

// ListLogs returns logs newest first, without their entries.
func (s *Store) ListLogs(ctx context.Context, filter LogFilter) ([]models.OrderCreationLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultLogLimit
	}
	query := s.db.WithContext(ctx).Model(&models.OrderCreationLog{})
	if filter.DailyMealID != 0 {
		query = query.Where("daily_meal_id = ?", filter.DailyMealID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var logs []models.OrderCreationLog
	err := query.Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
