package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiffin-api/internal/database"
	"tiffin-api/internal/models"
)

// RetryStatus is the outcome of RetryFailedOrder.
type RetryStatus string

const (
	RetryCreated        RetryStatus = "created"
	RetryFailed         RetryStatus = "failed"
	RetryInvalidIndex   RetryStatus = "invalid_index"
	RetryNotRetryable   RetryStatus = "not_retryable"
	RetryBatchRunning   RetryStatus = "batch_running"
	RetryTargetNotFound RetryStatus = "target_not_found"
)

// RetryResult reports a retry. Rejections and failed attempts are results,
// not errors; the log entry is only removed when Status is RetryCreated.
type RetryResult struct {
	Status  RetryStatus              `json:"status"`
	Message string                   `json:"message"`
	Orders  []models.Order           `json:"orders,omitempty"`
	Failure *ItemFailure             `json:"failure,omitempty"`
	Log     *models.OrderCreationLog `json:"log"`
}

func (r *RetryResult) Success() bool {
	return r.Status == RetryCreated
}

func rejected(status RetryStatus, log *models.OrderCreationLog, format string, args ...interface{}) *RetryResult {
	return &RetryResult{Status: status, Message: fmt.Sprintf(format, args...), Log: log}
}

// RetryFailedOrder re-attempts the failed entry at index of a finished log.
// Both kinds of entry re-check the subscription first. Meal-level entries
// then re-run the single order attempt; subscription-level entries ("all")
// re-run every enabled meal type. A slot that already has a live order
// counts as covered in both cases.
func (s *OrderCreationService) RetryFailedOrder(ctx context.Context, logID uint, index int, actor string) (*RetryResult, error) {
	unlock, err := s.locker.TryLock(ctx, retryLockKey(logID), s.lockTTL)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("%w: log %d", ErrRetryInProgress, logID)
		}
		return nil, err
	}
	defer unlock()

	log, err := s.logs.GetLog(ctx, logID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrLogNotFound, logID)
		}
		return nil, fmt.Errorf("load order creation log %d: %w", logID, err)
	}
	if !log.IsFinished() {
		return rejected(RetryBatchRunning, log, "batch %s is still running", log.RunID), nil
	}

	entry, err := log.FailedOrderAt(index)
	if err != nil {
		return rejected(RetryInvalidIndex, log, "%v", err), nil
	}
	if !entry.CanRetry {
		return rejected(RetryNotRetryable, log, "%s failures are not retryable", entry.FailureCode), nil
	}

	sub, err := s.subs.GetUserSubscription(ctx, entry.UserSubscriptionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return rejected(RetryTargetNotFound, log, "subscription %d no longer exists", entry.UserSubscriptionID), nil
		}
		return nil, fmt.Errorf("load subscription %d: %w", entry.UserSubscriptionID, err)
	}
	meal, err := s.meals.GetDailyMeal(ctx, log.DailyMealID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return rejected(RetryTargetNotFound, log, "daily meal %d no longer exists", log.DailyMealID), nil
		}
		return nil, fmt.Errorf("load daily meal %d: %w", log.DailyMealID, err)
	}

	var (
		orders  []models.Order
		failure *ItemFailure
	)
	if entry.MealType == models.MealAll {
		orders, failure = s.retrySubscription(ctx, sub, meal)
	} else if failure = s.checkRetryTarget(sub, meal); failure == nil {
		order, f := s.attemptOrder(ctx, sub, meal, entry.MealType)
		switch {
		case f == nil:
			orders = append(orders, *order)
		case f.Code == models.FailureOrderAlreadyExists:
			// the slot was filled after the batch ran; nothing is left to create
		default:
			failure = f
		}
	}

	for i := range orders {
		s.notifyCreated(ctx, &orders[i])
	}

	if failure != nil {
		s.observer.OnItem(ctx, ItemEvent{
			RunID:              log.RunID,
			LogID:              log.ID,
			UserID:             sub.UserID,
			UserSubscriptionID: sub.ID,
			MealType:           failure.MealType,
			Failure:            failure,
			Retry:              true,
		})
		return &RetryResult{
			Status:  RetryFailed,
			Message: failure.Reason,
			Orders:  orders,
			Failure: failure,
			Log:     log,
		}, nil
	}

	successes := make([]models.SuccessfulOrder, 0, len(orders))
	for _, o := range orders {
		successes = append(successes, models.SuccessfulOrder{
			UserID:             o.UserID,
			UserSubscriptionID: o.UserSubscriptionID,
			OrderID:            o.ID,
			MealType:           o.MealType,
		})
	}
	failedID := entry.ID
	writeCtx, cancel := detach(ctx)
	defer cancel()
	if err := s.logs.ResolveFailedOrder(writeCtx, log.ID, failedID, successes); err != nil {
		return nil, fmt.Errorf("resolve failed order %d of log %d: %w", failedID, log.ID, err)
	}
	if _, err := log.RemoveFailedOrder(index); err != nil {
		return nil, err
	}
	for i, success := range successes {
		log.AddSuccessfulOrder(success)
		s.observer.OnItem(ctx, ItemEvent{
			RunID:              log.RunID,
			LogID:              log.ID,
			UserID:             success.UserID,
			UserSubscriptionID: success.UserSubscriptionID,
			MealType:           success.MealType,
			Order:              &orders[i],
			Retry:              true,
		})
	}

	message := fmt.Sprintf("retry by %s created %d orders", actor, len(orders))
	if len(orders) == 0 {
		message = fmt.Sprintf("retry by %s found every slot already ordered", actor)
	}
	return &RetryResult{
		Status:  RetryCreated,
		Message: message,
		Orders:  orders,
		Log:     log,
	}, nil
}

// retrySubscription re-runs a whole subscription. Orders created before a
// failing meal type are returned alongside the failure.
func (s *OrderCreationService) retrySubscription(ctx context.Context, sub *models.UserSubscription, meal *models.DailyMeal) ([]models.Order, *ItemFailure) {
	if failure := s.checkRetryTarget(sub, meal); failure != nil {
		return nil, failure
	}
	var orders []models.Order
	for _, mealType := range sub.MealTypes() {
		order, failure := s.attemptOrder(ctx, sub, meal, mealType)
		if failure != nil {
			if failure.Code == models.FailureOrderAlreadyExists {
				continue
			}
			return orders, failure
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// checkRetryTarget applies the subscription checks plus the gates the batch
// gets from the eligible-subscription query: vendor assigned and meal date
// within [StartDate, EndDate].
func (s *OrderCreationService) checkRetryTarget(sub *models.UserSubscription, meal *models.DailyMeal) *ItemFailure {
	if failure := s.checkSubscription(sub); failure != nil {
		return failure
	}
	if !sub.VendorDetails.IsVendorAssigned {
		return newFailure(models.MealAll, models.FailureSubscriptionInactive,
			"subscription %d has no vendor assigned", sub.ID)
	}
	if !sub.CoversDay(meal.MealDate, s.tw) {
		code := models.FailureSubscriptionInactive
		if sub.EndDate.Before(meal.MealDate) {
			code = models.FailureSubscriptionExpired
		}
		return newFailure(models.MealAll, code, "subscription %d does not cover %s",
			sub.ID, s.tw.In(meal.MealDate).Format(time.DateOnly))
	}
	return nil
}
