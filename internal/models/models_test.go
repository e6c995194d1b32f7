package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin-api/pkg/timewindow"
)

func kolkata(t *testing.T) timewindow.Window {
	t.Helper()
	tw, err := timewindow.Load("Asia/Kolkata")
	require.NoError(t, err)
	return tw
}

func lunchOnly(t *testing.T, tw timewindow.Window) *UserSubscription {
	t.Helper()
	loc := tw.Location()
	return &UserSubscription{
		UserID:         1,
		SubscriptionID: 7,
		CreditsGranted: 30,
		CreditsUsed:    10,
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, loc),
		EndDate:        tw.EndOfDay(time.Date(2025, 1, 31, 0, 0, 0, 0, loc)),
		Status:         SubscriptionActive,
		MealTiming: MealTiming{
			Lunch: MealSlot{Enabled: true, Time: "12:30"},
		},
	}
}

func TestCreditLedger(t *testing.T) {
	tw := kolkata(t)
	sub := lunchOnly(t, tw)

	assert.True(t, sub.IsActive())
	assert.Equal(t, 20, sub.RemainingCredits())
	assert.Equal(t, []MealType{MealLunch}, sub.MealTypes())
	assert.Equal(t, 1, sub.DailyMealCount())
	assert.True(t, sub.CanUseCredits(1))
	assert.True(t, sub.CanUseCredits(20))
	assert.False(t, sub.CanUseCredits(21))

	sub.MealTiming.Dinner = MealSlot{Enabled: true, Time: "20:00"}
	assert.Equal(t, []MealType{MealLunch, MealDinner}, sub.MealTypes())
	assert.Equal(t, 2, sub.DailyMealCount())
	assert.Equal(t, "20:00", sub.DeliveryTimeFor(MealDinner))
	assert.Equal(t, "", sub.DeliveryTimeFor(MealAll))

	sub.CreditsUsed = 30
	assert.Equal(t, 0, sub.RemainingCredits())
	assert.False(t, sub.CanUseCredits(1))
	assert.True(t, sub.CanUseCredits(0))
}

func TestValidateCredits(t *testing.T) {
	sub := &UserSubscription{CreditsGranted: 5, CreditsUsed: 5}
	require.NoError(t, sub.ValidateCredits())

	sub.CreditsUsed = 6
	err := sub.ValidateCredits()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCreditsExceeded))

	sub.CreditsUsed = -1
	assert.Error(t, sub.ValidateCredits())
}

func TestCheckIsExpired(t *testing.T) {
	tw := kolkata(t)
	sub := lunchOnly(t, tw)
	loc := tw.Location()

	// last minute of the end date is still covered
	assert.False(t, sub.CheckIsExpired(time.Date(2025, 1, 31, 23, 59, 0, 0, loc), tw))
	assert.True(t, sub.CheckIsExpired(time.Date(2025, 2, 1, 0, 0, 1, 0, loc), tw))

	sub.IsExpired = true
	assert.True(t, sub.CheckIsExpired(time.Date(2025, 1, 10, 0, 0, 0, 0, loc), tw))
}

func TestCoversDay(t *testing.T) {
	tw := kolkata(t)
	sub := lunchOnly(t, tw)
	loc := tw.Location()

	assert.True(t, sub.CoversDay(time.Date(2025, 1, 1, 0, 0, 0, 0, loc), tw))
	assert.True(t, sub.CoversDay(time.Date(2025, 1, 31, 18, 0, 0, 0, loc), tw))
	assert.False(t, sub.CoversDay(time.Date(2024, 12, 31, 23, 0, 0, 0, loc), tw))
	assert.False(t, sub.CoversDay(time.Date(2025, 2, 1, 0, 0, 0, 0, loc), tw))

	// a start stored mid-morning still covers its whole first day
	sub.StartDate = time.Date(2025, 1, 5, 9, 0, 0, 0, loc)
	assert.True(t, sub.CoversDay(time.Date(2025, 1, 5, 0, 0, 0, 0, loc), tw))
}

func TestSubscriptionTransitions(t *testing.T) {
	sub := &UserSubscription{Status: SubscriptionPending}

	require.NoError(t, sub.TransitionTo(SubscriptionActive))
	assert.Equal(t, SubscriptionActive, sub.Status)

	err := sub.TransitionTo(SubscriptionPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, sub.TransitionTo(SubscriptionCancelled))
	for _, next := range []SubscriptionStatus{SubscriptionActive, SubscriptionExpired, SubscriptionPending} {
		assert.False(t, sub.CanTransitionTo(next), "cancelled -> %s", next)
	}
}

func TestMarkExpired(t *testing.T) {
	tests := []struct {
		name       string
		status     SubscriptionStatus
		isExpired  bool
		wantStatus SubscriptionStatus
		wantChange bool
	}{
		{"active", SubscriptionActive, false, SubscriptionExpired, true},
		{"pending", SubscriptionPending, false, SubscriptionExpired, true},
		{"cancelled keeps status", SubscriptionCancelled, false, SubscriptionCancelled, true},
		{"failed keeps status", SubscriptionFailed, false, SubscriptionFailed, true},
		{"already flagged", SubscriptionExpired, true, SubscriptionExpired, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &UserSubscription{Status: tt.status, IsExpired: tt.isExpired}
			assert.Equal(t, tt.wantChange, sub.MarkExpired())
			assert.True(t, sub.IsExpired)
			assert.Equal(t, tt.wantStatus, sub.Status)
		})
	}
}

func TestCoverageEnd(t *testing.T) {
	tw := kolkata(t)
	loc := tw.Location()
	start := time.Date(2025, 1, 31, 15, 0, 0, 0, loc)

	weekly := &SubscriptionPlan{DurationKind: DurationWeekly}
	assert.Equal(t, tw.EndOfDay(time.Date(2025, 2, 6, 0, 0, 0, 0, loc)), weekly.CoverageEnd(start, tw))

	monthly := &SubscriptionPlan{DurationKind: DurationMonthly}
	// Jan 31 + 1 month clamps to Feb 28, so coverage ends Feb 27
	assert.Equal(t, tw.EndOfDay(time.Date(2025, 2, 27, 0, 0, 0, 0, loc)), monthly.CoverageEnd(start, tw))

	custom := &SubscriptionPlan{DurationKind: DurationCustom, DurationDays: 1}
	assert.Equal(t, tw.EndOfDay(start), custom.CoverageEnd(start, tw))

	zero := &SubscriptionPlan{DurationKind: DurationCustom}
	assert.Equal(t, tw.EndOfDay(start), zero.CoverageEnd(start, tw))
}

func TestMenusForReturnsCopy(t *testing.T) {
	meal := &DailyMeal{
		SelectedMenus: SelectedMenus{
			LunchMenus: []MenuItem{{Title: "Dal Rice", Price: decimal.NewFromInt(120)}},
		},
	}

	lunch := meal.MenusFor(MealLunch)
	require.Len(t, lunch, 1)
	lunch[0].Title = "changed"
	assert.Equal(t, "Dal Rice", meal.SelectedMenus.LunchMenus[0].Title)

	assert.Empty(t, meal.MenusFor(MealDinner))
	assert.Empty(t, meal.MenusFor(MealAll))
}

func TestFailureCodeRetryable(t *testing.T) {
	want := map[FailureCode]bool{
		FailureSubscriptionInactive: false,
		FailureSubscriptionExpired:  false,
		FailureInsufficientCredits:  false,
		FailureOrderAlreadyExists:   false,
		FailureNoMenuAvailable:      true,
		FailureOrderCreationFailed:  true,
		FailureValidationError:      true,
	}
	require.Len(t, FailureCodes(), len(want))
	for _, code := range FailureCodes() {
		assert.Equal(t, want[code], code.Retryable(), string(code))
	}
	assert.False(t, FailureCode("UNKNOWN").Retryable())
}

func TestOrderCreationLogBookkeeping(t *testing.T) {
	now := time.Date(2025, 1, 10, 5, 0, 0, 0, time.UTC)
	meal := &DailyMeal{BaseModel: BaseModel{ID: 3}, SubscriptionID: 7}
	log := NewOrderCreationLog("run-1", meal, "admin-9", now)
	log.ID = 11

	assert.Equal(t, LogRunning, log.Status)
	assert.Equal(t, uint(3), log.DailyMealID)
	assert.Equal(t, uint(7), log.SubscriptionID)
	assert.False(t, log.IsFinished())

	log.AddFailedOrder(FailedOrder{UserSubscriptionID: 1, MealType: MealDinner, FailureCode: FailureNoMenuAvailable, CanRetry: true})
	log.AddFailedOrder(FailedOrder{UserSubscriptionID: 2, MealType: MealAll, FailureCode: FailureInsufficientCredits})
	log.AddSuccessfulOrder(SuccessfulOrder{UserSubscriptionID: 1, OrderID: 50, MealType: MealLunch})

	assert.Equal(t, 2, log.TotalOrdersFailed)
	assert.Equal(t, 1, log.TotalOrdersCreated)
	assert.Equal(t, uint(11), log.FailedOrders[0].LogID)

	entry, err := log.FailedOrderAt(1)
	require.NoError(t, err)
	assert.Equal(t, FailureInsufficientCredits, entry.FailureCode)

	_, err = log.FailedOrderAt(2)
	assert.ErrorIs(t, err, ErrFailedOrderIndex)
	_, err = log.FailedOrderAt(-1)
	assert.ErrorIs(t, err, ErrFailedOrderIndex)

	removed, err := log.RemoveFailedOrder(0)
	require.NoError(t, err)
	assert.Equal(t, FailureNoMenuAvailable, removed.FailureCode)
	assert.Equal(t, 1, log.TotalOrdersFailed)
	require.Len(t, log.FailedOrders, 1)
	assert.Equal(t, uint(2), log.FailedOrders[0].UserSubscriptionID)

	log.MarkCompleted(now.Add(time.Minute))
	assert.Equal(t, LogCompleted, log.Status)
	require.NotNil(t, log.CompletedAt)
	assert.True(t, log.IsFinished())

	log.MarkFailed(now, errors.New("query failed"))
	assert.Equal(t, LogFailed, log.Status)
	assert.Equal(t, "query failed", log.ErrorMessage)
}

func TestOrderStatusIsLive(t *testing.T) {
	assert.True(t, OrderUpcoming.IsLive())
	assert.True(t, OrderDelivered.IsLive())
	assert.False(t, OrderCancelled.IsLive())
	assert.False(t, OrderSkipped.IsLive())
}
