package database

import (
	"context"
	"fmt"
	"time"

	"tiffin-api/internal/models"
)

// FindLiveOrder returns the non-skipped, non-cancelled order of a subscription
// for one meal on the day [dayStart, dayEnd], or ErrNotFound.
func (s *Store) FindLiveOrder(ctx context.Context, userID, userSubscriptionID uint, dayStart, dayEnd time.Time, mealType models.MealType) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND user_subscription_id = ? AND meal_type = ?", userID, userSubscriptionID, mealType).
		Where("delivery_date BETWEEN ? AND ?", utc(dayStart), utc(dayEnd)).
		Where("status NOT IN ?", models.DeadOrderStatuses).
		Order("id ASC").
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// CreateOrder inserts order. A unique violation becomes ErrDuplicateOrder.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	err := s.db.WithContext(ctx).Create(order).Error
	if errorsLikeUnique(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateOrder, err)
	}
	return err
}

// ListOrdersForDailyMeal returns the orders materialized from one DailyMeal.
func (s *Store) ListOrdersForDailyMeal(ctx context.Context, dailyMealID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("daily_meal_id = ?", dailyMealID).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}
