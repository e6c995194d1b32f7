package services

import (
	"context"
	"fmt"
	"time"

	"tiffin-api/internal/models"
)

// logRecorder records outcomes on a batch log. Each call persists before it
// returns, so a crash leaves the log matching exactly what was processed.
type logRecorder struct {
	repo     OrderCreationLogRepository
	observer BatchObserver
	log      *models.OrderCreationLog
}

const logWriteTimeout = 10 * time.Second

// detach keeps ctx's values but drops its cancellation, so log writes still
// land after the caller gave up on the batch.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
}

func (r *logRecorder) setUsersFound(ctx context.Context, total int) error {
	writeCtx, cancel := detach(ctx)
	defer cancel()
	if err := r.repo.SetUsersFound(writeCtx, r.log.ID, total); err != nil {
		return fmt.Errorf("record users found: %w", err)
	}
	r.log.TotalUsersFound = total
	return nil
}

func (r *logRecorder) recordFailure(ctx context.Context, sub *models.UserSubscription, f *ItemFailure) error {
	entry := models.FailedOrder{
		UserID:             sub.UserID,
		UserSubscriptionID: sub.ID,
		MealType:           f.MealType,
		FailureCode:        f.Code,
		Reason:             f.Reason,
		CanRetry:           f.CanRetry,
	}
	writeCtx, cancel := detach(ctx)
	defer cancel()
	if err := r.repo.AppendFailedOrder(writeCtx, r.log.ID, &entry); err != nil {
		return fmt.Errorf("record failed order for subscription %d: %w", sub.ID, err)
	}
	r.log.AddFailedOrder(entry)

	r.observer.OnItem(ctx, ItemEvent{
		RunID:              r.log.RunID,
		LogID:              r.log.ID,
		UserID:             sub.UserID,
		UserSubscriptionID: sub.ID,
		MealType:           f.MealType,
		Failure:            f,
	})
	return nil
}

func (r *logRecorder) recordSuccess(ctx context.Context, sub *models.UserSubscription, order *models.Order) error {
	entry := models.SuccessfulOrder{
		UserID:             sub.UserID,
		UserSubscriptionID: sub.ID,
		OrderID:            order.ID,
		MealType:           order.MealType,
	}
	writeCtx, cancel := detach(ctx)
	defer cancel()
	if err := r.repo.AppendSuccessfulOrder(writeCtx, r.log.ID, &entry); err != nil {
		return fmt.Errorf("record order %d: %w", order.ID, err)
	}
	r.log.AddSuccessfulOrder(entry)

	r.observer.OnItem(ctx, ItemEvent{
		RunID:              r.log.RunID,
		LogID:              r.log.ID,
		UserID:             sub.UserID,
		UserSubscriptionID: sub.ID,
		MealType:           order.MealType,
		Order:              order,
	})
	return nil
}

// finish persists the final status. cause nil completes the log. It runs
// detached so a cancelled batch still ends up failed rather than running.
func (r *logRecorder) finish(ctx context.Context, now func() time.Time, cause error) error {
	if cause != nil {
		r.log.MarkFailed(now(), cause)
	} else {
		r.log.MarkCompleted(now())
	}
	writeCtx, cancel := detach(ctx)
	defer cancel()
	if err := r.repo.FinishLog(writeCtx, r.log); err != nil {
		return fmt.Errorf("finish order creation log %d: %w", r.log.ID, err)
	}
	return nil
}
