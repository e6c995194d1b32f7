package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiffin-api/internal/models"
	"tiffin-api/pkg/logging"
	"tiffin-api/pkg/timewindow"
)

// BatchRunner runs one locked batch. OrderCreationService implements it.
type BatchRunner interface {
	RunLockedBatch(ctx context.Context, meal *models.DailyMeal, triggeredBy string) (*BatchResult, error)
}

// MealBatchSummary is the outcome of one DailyMeal in a scheduled run.
type MealBatchSummary struct {
	DailyMealID uint   `json:"daily_meal_id"`
	LogID       uint   `json:"log_id,omitempty"`
	Created     int    `json:"created"`
	Failed      int    `json:"failed"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// DailyOrderJob is what the scheduler runs every morning: one batch per
// DailyMeal published for the target day.
type DailyOrderJob struct {
	meals    DailyMealRepository
	runner   BatchRunner
	tw       timewindow.Window
	leadDays int
	now      func() time.Time
}

func NewDailyOrderJob(meals DailyMealRepository, runner BatchRunner, tw timewindow.Window, leadDays int) *DailyOrderJob {
	return &DailyOrderJob{meals: meals, runner: runner, tw: tw, leadDays: leadDays, now: time.Now}
}

// Run materializes the DailyMeals dated today plus the lead days.
func (j *DailyOrderJob) Run(ctx context.Context) error {
	_, err := j.RunForDate(ctx, j.tw.AddDays(j.tw.Today(j.now()), j.leadDays))
	return err
}

// RunForDate runs the batch of every DailyMeal dated on day's business day.
// A failing batch is logged and the next DailyMeal still runs; there is no
// automatic retry of a failed batch.
func (j *DailyOrderJob) RunForDate(ctx context.Context, day time.Time) ([]MealBatchSummary, error) {
	start, end := j.tw.DayRange(day)
	meals, err := j.meals.FindDailyMealsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("find daily meals for %s: %w", start.Format(time.DateOnly), err)
	}
	logging.Infof("Daily order job: %d daily meals on %s", len(meals), start.Format(time.DateOnly))

	summaries := make([]MealBatchSummary, 0, len(meals))
	for i := range meals {
		meal := &meals[i]
		summary := MealBatchSummary{DailyMealID: meal.ID}

		result, err := j.runner.RunLockedBatch(ctx, meal, models.TriggeredBySystem)
		if result != nil && result.Log != nil {
			summary.LogID = result.Log.ID
			summary.Created = result.Log.TotalOrdersCreated
			summary.Failed = result.Log.TotalOrdersFailed
		}
		if err != nil {
			summary.Error = err.Error()
			summary.Skipped = errors.Is(err, ErrBatchInProgress)
			logging.Errorf("Daily order batch for daily meal %d failed: %v", meal.ID, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
