package database

import (
	"context"
	"time"

	"tiffin-api/internal/models"
)

// CreateUserSubscription 创建用户订阅
func (s *Store) CreateUserSubscription(ctx context.Context, sub *models.UserSubscription) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

// GetUserSubscription loads one subscription by id.
func (s *Store) GetUserSubscription(ctx context.Context, id uint) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// FindEligibleSubscriptions returns subscriptions of planID that may receive
// orders on the day [dayStart, dayEnd]: active, not flagged expired, vendor
// assigned, and covering the day.
func (s *Store) FindEligibleSubscriptions(ctx context.Context, planID uint, dayStart, dayEnd time.Time) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("subscription_id = ? AND status = ? AND is_expired = ? AND vendor_is_vendor_assigned = ?",
			planID, models.SubscriptionActive, false, true).
		Where("start_date <= ? AND end_date >= ?", utc(dayEnd), utc(dayStart)).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

// FindOverdueSubscriptions returns unflagged subscriptions whose end date is before cutoff.
func (s *Store) FindOverdueSubscriptions(ctx context.Context, cutoff time.Time) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("end_date < ? AND is_expired = ?", utc(cutoff), false).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

// SaveExpiry writes the sweep's fields only, leaving the credit ledger untouched.
func (s *Store) SaveExpiry(ctx context.Context, sub *models.UserSubscription) error {
	return s.db.WithContext(ctx).
		Model(sub).
		Select("is_expired", "status", "updated_at").
		Updates(sub).Error
}
