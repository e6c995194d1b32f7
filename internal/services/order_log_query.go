package services

import (
	"context"
	"errors"
	"fmt"

	"tiffin-api/internal/database"
	"tiffin-api/internal/models"
)

// GetLog returns a log with its failed and successful entries.
func (s *OrderCreationService) GetLog(ctx context.Context, id uint) (*models.OrderCreationLog, error) {
	log, err := s.logs.GetLog(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrLogNotFound, id)
		}
		return nil, fmt.Errorf("load order creation log %d: %w", id, err)
	}
	return log, nil
}

// ListLogs returns logs newest first.
func (s *OrderCreationService) ListLogs(ctx context.Context, filter database.LogFilter) ([]models.OrderCreationLog, error) {
	return s.logs.ListLogs(ctx, filter)
}

// ListOrders returns the orders created from one DailyMeal, oldest first.
func (s *OrderCreationService) ListOrders(ctx context.Context, dailyMealID uint) ([]models.Order, error) {
	if _, err := s.meals.GetDailyMeal(ctx, dailyMealID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrDailyMealNotFound, dailyMealID)
		}
		return nil, fmt.Errorf("load daily meal %d: %w", dailyMealID, err)
	}
	orders, err := s.orders.ListOrdersForDailyMeal(ctx, dailyMealID)
	if err != nil {
		return nil, fmt.Errorf("list orders of daily meal %d: %w", dailyMealID, err)
	}
	return orders, nil
}
