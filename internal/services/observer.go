package services

import (
	"context"
	"time"

	"tiffin-api/internal/models"
	"tiffin-api/pkg/logging"
)

// BatchStartEvent is emitted once the running log is persisted.
type BatchStartEvent struct {
	RunID       string
	LogID       uint
	DailyMealID uint
	PlanID      uint
	MealDate    time.Time
	TriggeredBy string
}

// ItemEvent is emitted for every recorded (subscription, meal type) outcome.
// Failure is nil for a created order.
type ItemEvent struct {
	RunID              string
	LogID              uint
	UserID             uint
	UserSubscriptionID uint
	MealType           models.MealType
	Order              *models.Order
	Failure            *ItemFailure
	Retry              bool
}

// BatchEndEvent is emitted when a batch finishes, Err set when it failed.
type BatchEndEvent struct {
	RunID    string
	Log      *models.OrderCreationLog
	Duration time.Duration
	Err      error
}

// BatchObserver receives the engine's structured events.
type BatchObserver interface {
	OnBatchStart(ctx context.Context, e BatchStartEvent)
	OnItem(ctx context.Context, e ItemEvent)
	OnBatchEnd(ctx context.Context, e BatchEndEvent)
}

// SweepObserver receives the result of an expiry sweep.
type SweepObserver interface {
	OnSweep(ctx context.Context, r SweepResult)
}

// Observers fans events out to several observers in order.
type Observers []BatchObserver

func (o Observers) OnBatchStart(ctx context.Context, e BatchStartEvent) {
	for _, obs := range o {
		obs.OnBatchStart(ctx, e)
	}
}

func (o Observers) OnItem(ctx context.Context, e ItemEvent) {
	for _, obs := range o {
		obs.OnItem(ctx, e)
	}
}

func (o Observers) OnBatchEnd(ctx context.Context, e BatchEndEvent) {
	for _, obs := range o {
		obs.OnBatchEnd(ctx, e)
	}
}

// LoggingObserver writes batch events as structured log records.
type LoggingObserver struct{}

func (LoggingObserver) OnBatchStart(_ context.Context, e BatchStartEvent) {
	logging.Infow("order batch started",
		"run_id", e.RunID,
		"log_id", e.LogID,
		"daily_meal_id", e.DailyMealID,
		"plan_id", e.PlanID,
		"meal_date", e.MealDate.Format(time.DateOnly),
		"triggered_by", e.TriggeredBy,
	)
}

func (LoggingObserver) OnItem(_ context.Context, e ItemEvent) {
	if e.Failure != nil {
		logging.Warnw("order item failed",
			"run_id", e.RunID,
			"log_id", e.LogID,
			"user_subscription_id", e.UserSubscriptionID,
			"meal_type", e.MealType,
			"failure_code", e.Failure.Code,
			"can_retry", e.Failure.CanRetry,
			"reason", e.Failure.Reason,
			"retry", e.Retry,
		)
		return
	}
	logging.Infow("order created",
		"run_id", e.RunID,
		"log_id", e.LogID,
		"user_subscription_id", e.UserSubscriptionID,
		"meal_type", e.MealType,
		"order_id", e.Order.ID,
		"order_number", e.Order.OrderNumber,
		"retry", e.Retry,
	)
}

func (LoggingObserver) OnBatchEnd(_ context.Context, e BatchEndEvent) {
	if e.Err != nil {
		logging.Errorw("order batch failed",
			"run_id", e.RunID,
			"log_id", e.Log.ID,
			"duration", e.Duration,
			"error", e.Err,
		)
		return
	}
	logging.Infow("order batch finished",
		"run_id", e.RunID,
		"log_id", e.Log.ID,
		"status", e.Log.Status,
		"users_found", e.Log.TotalUsersFound,
		"orders_created", e.Log.TotalOrdersCreated,
		"orders_failed", e.Log.TotalOrdersFailed,
		"duration", e.Duration,
	)
}
