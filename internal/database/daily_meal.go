package database

import (
	"context"
	"time"

	"tiffin-api/internal/models"
)

// CreateDailyMeal publishes a menu for one plan and date.
func (s *Store) CreateDailyMeal(ctx context.Context, meal *models.DailyMeal) error {
	return s.db.WithContext(ctx).Create(meal).Error
}

// GetDailyMeal loads one DailyMeal by id.
func (s *Store) GetDailyMeal(ctx context.Context, id uint) (*models.DailyMeal, error) {
	var meal models.DailyMeal
	if err := s.db.WithContext(ctx).First(&meal, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &meal, nil
}

// FindDailyMealsBetween returns every DailyMeal dated within [start, end].
func (s *Store) FindDailyMealsBetween(ctx context.Context, start, end time.Time) ([]models.DailyMeal, error) {
	var meals []models.DailyMeal
	err := s.db.WithContext(ctx).
		Where("meal_date BETWEEN ? AND ?", utc(start), utc(end)).
		Order("id ASC").
		Find(&meals).Error
	return meals, err
}
