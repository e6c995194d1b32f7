package services

import (
	"context"
	"time"

	"tiffin-api/internal/database"
	"tiffin-api/internal/models"
)

// Lookups return database.ErrNotFound when the row does not exist.

type SubscriptionRepository interface {
	GetUserSubscription(ctx context.Context, id uint) (*models.UserSubscription, error)
	FindEligibleSubscriptions(ctx context.Context, planID uint, dayStart, dayEnd time.Time) ([]models.UserSubscription, error)
	FindOverdueSubscriptions(ctx context.Context, cutoff time.Time) ([]models.UserSubscription, error)
	SaveExpiry(ctx context.Context, sub *models.UserSubscription) error
}

type DailyMealRepository interface {
	GetDailyMeal(ctx context.Context, id uint) (*models.DailyMeal, error)
	FindDailyMealsBetween(ctx context.Context, start, end time.Time) ([]models.DailyMeal, error)
}

// OrderRepository persists orders. CreateOrder returns database.ErrDuplicateOrder
// when a live order already holds the (subscription, day, meal) slot.
type OrderRepository interface {
	FindLiveOrder(ctx context.Context, userID, userSubscriptionID uint, dayStart, dayEnd time.Time, mealType models.MealType) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrdersForDailyMeal(ctx context.Context, dailyMealID uint) ([]models.Order, error)
}

// OrderCreationLogRepository persists batch logs. Every mutator is one atomic write.
type OrderCreationLogRepository interface {
	CreateLog(ctx context.Context, log *models.OrderCreationLog) error
	SetUsersFound(ctx context.Context, logID uint, total int) error
	AppendFailedOrder(ctx context.Context, logID uint, entry *models.FailedOrder) error
	AppendSuccessfulOrder(ctx context.Context, logID uint, entry *models.SuccessfulOrder) error
	FinishLog(ctx context.Context, log *models.OrderCreationLog) error
	ResolveFailedOrder(ctx context.Context, logID, failedOrderID uint, successes []models.SuccessfulOrder) error
	GetLog(ctx context.Context, id uint) (*models.OrderCreationLog, error)
	ListLogs(ctx context.Context, filter database.LogFilter) ([]models.OrderCreationLog, error)
}

var (
	_ SubscriptionRepository     = (*database.Store)(nil)
	_ DailyMealRepository        = (*database.Store)(nil)
	_ OrderRepository            = (*database.Store)(nil)
	_ OrderCreationLogRepository = (*database.Store)(nil)
)
