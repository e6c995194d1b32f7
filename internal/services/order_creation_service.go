package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tiffin-api/internal/database"
	"tiffin-api/internal/models"
	"tiffin-api/pkg/logging"
	"tiffin-api/pkg/timewindow"
)

var (
	ErrLogNotFound       = errors.New("order creation log not found")
	ErrDailyMealNotFound = errors.New("daily meal not found")
	ErrBatchInProgress   = errors.New("an order batch for this daily meal is already running")
	ErrRetryInProgress   = errors.New("a retry on this order creation log is already running")
)

// ItemFailure is the typed outcome of one (subscription, meal type) item that
// did not produce an order.
type ItemFailure struct {
	MealType models.MealType    `json:"meal_type"`
	Code     models.FailureCode `json:"failure_code"`
	Reason   string             `json:"reason"`
	CanRetry bool               `json:"can_retry"`
}

func newFailure(mealType models.MealType, code models.FailureCode, format string, args ...interface{}) *ItemFailure {
	return &ItemFailure{
		MealType: mealType,
		Code:     code,
		Reason:   fmt.Sprintf(format, args...),
		CanRetry: code.Retryable(),
	}
}

func (f *ItemFailure) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Code, f.MealType, f.Reason)
}

// BatchResult summarizes one CreateOrdersForDailyMeal run.
type BatchResult struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Log     *models.OrderCreationLog `json:"log"`
}

// OrderCreationOptions wires the engine's collaborators. Nil optional fields
// fall back to in-process defaults.
type OrderCreationOptions struct {
	Subscriptions SubscriptionRepository
	DailyMeals    DailyMealRepository
	Orders        OrderRepository
	Logs          OrderCreationLogRepository

	OrderNumbers OrderNumberGenerator
	Locker       Locker
	Observer     BatchObserver
	Listeners    []OrderListener

	TimeWindow     timewindow.Window
	DefaultCountry string
	BatchLockTTL   time.Duration

	Now      func() time.Time
	NewRunID func() string
}

// OrderCreationService materializes daily orders from subscriptions and keeps
// the audit log of every batch.
type OrderCreationService struct {
	subs   SubscriptionRepository
	meals  DailyMealRepository
	orders OrderRepository
	logs   OrderCreationLogRepository

	numbers   OrderNumberGenerator
	locker    Locker
	observer  BatchObserver
	listeners []OrderListener
	validate  *validator.Validate

	tw             timewindow.Window
	defaultCountry string
	lockTTL        time.Duration
	now            func() time.Time
	newRunID       func() string
}

func NewOrderCreationService(opts OrderCreationOptions) (*OrderCreationService, error) {
	if opts.Subscriptions == nil || opts.DailyMeals == nil || opts.Orders == nil || opts.Logs == nil {
		return nil, errors.New("order creation service needs subscription, daily meal, order and log repositories")
	}
	s := &OrderCreationService{
		subs:           opts.Subscriptions,
		meals:          opts.DailyMeals,
		orders:         opts.Orders,
		logs:           opts.Logs,
		numbers:        opts.OrderNumbers,
		locker:         opts.Locker,
		observer:       opts.Observer,
		listeners:      opts.Listeners,
		validate:       newOrderValidator(),
		tw:             opts.TimeWindow,
		defaultCountry: opts.DefaultCountry,
		lockTTL:        opts.BatchLockTTL,
		now:            opts.Now,
		newRunID:       opts.NewRunID,
	}
	if s.numbers == nil {
		numbers, err := NewSnowflakeNumbers(1)
		if err != nil {
			return nil, err
		}
		s.numbers = numbers
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.observer == nil {
		s.observer = LoggingObserver{}
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 30 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newRunID == nil {
		s.newRunID = uuid.NewString
	}
	return s, nil
}

// TriggerBatch loads a DailyMeal and runs its batch under the batch lock.
func (s *OrderCreationService) TriggerBatch(ctx context.Context, dailyMealID uint, triggeredBy string) (*BatchResult, error) {
	meal, err := s.meals.GetDailyMeal(ctx, dailyMealID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrDailyMealNotFound, dailyMealID)
		}
		return nil, fmt.Errorf("load daily meal %d: %w", dailyMealID, err)
	}
	return s.RunLockedBatch(ctx, meal, triggeredBy)
}

// RunLockedBatch runs CreateOrdersForDailyMeal unless another run holds the
// batch lock of the same DailyMeal.
func (s *OrderCreationService) RunLockedBatch(ctx context.Context, meal *models.DailyMeal, triggeredBy string) (*BatchResult, error) {
	unlock, err := s.locker.TryLock(ctx, batchLockKey(meal.ID), s.lockTTL)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("%w: daily meal %d", ErrBatchInProgress, meal.ID)
		}
		return nil, err
	}
	defer unlock()
	return s.CreateOrdersForDailyMeal(ctx, meal, triggeredBy)
}

// CreateOrdersForDailyMeal creates the orders of every eligible subscriber of
// meal's plan for meal's date. Per-item problems end up in the returned log;
// an error means the batch itself failed and the log was marked failed.
func (s *OrderCreationService) CreateOrdersForDailyMeal(ctx context.Context, meal *models.DailyMeal, triggeredBy string) (*BatchResult, error) {
	if meal == nil {
		return nil, ErrDailyMealNotFound
	}
	started := s.now()

	log := models.NewOrderCreationLog(s.newRunID(), meal, triggeredBy, started)
	if err := s.logs.CreateLog(ctx, log); err != nil {
		return nil, fmt.Errorf("create order creation log: %w", err)
	}
	rec := &logRecorder{repo: s.logs, observer: s.observer, log: log}

	s.observer.OnBatchStart(ctx, BatchStartEvent{
		RunID:       log.RunID,
		LogID:       log.ID,
		DailyMealID: meal.ID,
		PlanID:      meal.SubscriptionID,
		MealDate:    s.tw.In(meal.MealDate),
		TriggeredBy: triggeredBy,
	})

	batchErr := s.runBatch(ctx, meal, rec)
	if finishErr := rec.finish(ctx, s.now, batchErr); finishErr != nil {
		if batchErr == nil {
			batchErr = finishErr
		} else {
			logging.Errorf("Failed to mark order creation log %d as failed: %v", log.ID, finishErr)
		}
	}

	s.observer.OnBatchEnd(ctx, BatchEndEvent{
		RunID:    log.RunID,
		Log:      log,
		Duration: s.now().Sub(started),
		Err:      batchErr,
	})

	if batchErr != nil {
		return &BatchResult{Success: false, Message: batchErr.Error(), Log: log}, batchErr
	}
	return &BatchResult{Success: true, Message: batchMessage(log), Log: log}, nil
}

func batchMessage(log *models.OrderCreationLog) string {
	if log.TotalUsersFound == 0 {
		return "no active subscriptions for this daily meal"
	}
	return fmt.Sprintf("processed %d subscriptions: %d orders created, %d failed",
		log.TotalUsersFound, log.TotalOrdersCreated, log.TotalOrdersFailed)
}

// runBatch returns only batch-fatal errors.
func (s *OrderCreationService) runBatch(ctx context.Context, meal *models.DailyMeal, rec *logRecorder) error {
	dayStart, dayEnd := s.tw.DayRange(meal.MealDate)
	subs, err := s.subs.FindEligibleSubscriptions(ctx, meal.SubscriptionID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("find eligible subscriptions for plan %d: %w", meal.SubscriptionID, err)
	}
	if err := rec.setUsersFound(ctx, len(subs)); err != nil {
		return err
	}

	for i := range subs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch interrupted after %d of %d subscriptions: %w", i, len(subs), err)
		}
		if err := s.processSubscription(ctx, &subs[i], meal, rec); err != nil {
			return err
		}
	}
	return nil
}

// processSubscription runs the subscription checks and then every enabled
// meal type independently. It only returns an error when the log itself
// could not be written.
func (s *OrderCreationService) processSubscription(ctx context.Context, sub *models.UserSubscription, meal *models.DailyMeal, rec *logRecorder) error {
	if failure := s.checkSubscription(sub); failure != nil {
		return rec.recordFailure(ctx, sub, failure)
	}

	for _, mealType := range sub.MealTypes() {
		order, failure := s.attemptOrder(ctx, sub, meal, mealType)
		if failure != nil {
			if err := rec.recordFailure(ctx, sub, failure); err != nil {
				return err
			}
			continue
		}
		if err := rec.recordSuccess(ctx, sub, order); err != nil {
			return err
		}
		s.notifyCreated(ctx, order)
	}
	return nil
}

// checkSubscription applies the subscription-level gates; the first failing
// check wins. A panic inside the checks is reported as VALIDATION_ERROR.
func (s *OrderCreationService) checkSubscription(sub *models.UserSubscription) (failure *ItemFailure) {
	defer func() {
		if r := recover(); r != nil {
			failure = newFailure(models.MealAll, models.FailureValidationError, "subscription checks failed: %v", r)
		}
	}()

	if !sub.IsActive() {
		return newFailure(models.MealAll, models.FailureSubscriptionInactive,
			"subscription %d is %s, not active", sub.ID, sub.Status)
	}
	if sub.CheckIsExpired(s.now(), s.tw) {
		return newFailure(models.MealAll, models.FailureSubscriptionExpired,
			"subscription %d expired on %s", sub.ID, s.tw.In(sub.EndDate).Format(time.DateOnly))
	}
	needed := sub.DailyMealCount()
	if !sub.CanUseCredits(needed) {
		return newFailure(models.MealAll, models.FailureInsufficientCredits,
			"subscription %d needs %d credits but has %d remaining", sub.ID, needed, sub.RemainingCredits())
	}
	return nil
}

// attemptOrder creates the order of one (subscription, meal type) item. It
// records nothing; the caller decides what the outcome means for the log.
func (s *OrderCreationService) attemptOrder(ctx context.Context, sub *models.UserSubscription, meal *models.DailyMeal, mealType models.MealType) (order *models.Order, failure *ItemFailure) {
	defer func() {
		if r := recover(); r != nil {
			order = nil
			failure = newFailure(mealType, models.FailureOrderCreationFailed, "unexpected error: %v", r)
		}
	}()

	day := s.tw.In(meal.MealDate).Format(time.DateOnly)
	dayStart, dayEnd := s.tw.DayRange(meal.MealDate)

	existing, err := s.orders.FindLiveOrder(ctx, sub.UserID, sub.ID, dayStart, dayEnd, mealType)
	switch {
	case err == nil:
		return nil, newFailure(mealType, models.FailureOrderAlreadyExists,
			"order %s already covers %s on %s", existing.OrderNumber, mealType, day)
	case !errors.Is(err, database.ErrNotFound):
		return nil, newFailure(mealType, models.FailureOrderCreationFailed, "check existing order: %v", err)
	}

	menus := meal.MenusFor(mealType)
	if len(menus) == 0 {
		return nil, newFailure(mealType, models.FailureNoMenuAvailable,
			"no %s menu published for %s", mealType, day)
	}

	order = s.buildOrder(sub, meal, mealType, menus)
	if err := s.validate.Struct(order); err != nil {
		return nil, newFailure(mealType, models.FailureOrderCreationFailed, "order validation failed: %v", err)
	}

	number, err := s.numbers.NextOrderNumber(ctx, order.OrderDate)
	if err != nil {
		return nil, newFailure(mealType, models.FailureOrderCreationFailed, "generate order number: %v", err)
	}
	order.OrderNumber = number

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, database.ErrDuplicateOrder) {
			// a concurrent batch won the slot between the check and the insert
			if existing, lookupErr := s.orders.FindLiveOrder(ctx, sub.UserID, sub.ID, dayStart, dayEnd, mealType); lookupErr == nil {
				return nil, newFailure(mealType, models.FailureOrderAlreadyExists,
					"order %s already covers %s on %s", existing.OrderNumber, mealType, day)
			}
		}
		return nil, newFailure(mealType, models.FailureOrderCreationFailed, "save order: %v", err)
	}
	return order, nil
}

// buildOrder snapshots menus, timing, address and vendor into a new order.
func (s *OrderCreationService) buildOrder(sub *models.UserSubscription, meal *models.DailyMeal, mealType models.MealType, menus []models.MenuItem) *models.Order {
	address := sub.DeliveryAddress
	if address.Country == "" {
		address.Country = s.defaultCountry
	}
	if address.Coordinates == nil {
		address.Coordinates = &models.GeoPoint{}
	} else {
		point := *address.Coordinates
		address.Coordinates = &point
	}

	return &models.Order{
		UserID:             sub.UserID,
		UserSubscriptionID: sub.ID,
		DailyMealID:        meal.ID,
		OrderDate:          s.now(),
		DeliveryDate:       meal.MealDate,
		MealType:           mealType,
		SelectedMenus:      menus,
		DeliveryTime:       sub.DeliveryTimeFor(mealType),
		DeliveryAddress:    address,
		VendorDetails: models.VendorRef{
			VendorID:   sub.VendorDetails.CurrentVendor.VendorID,
			VendorType: sub.VendorDetails.CurrentVendor.VendorType,
		},
		Status: models.OrderUpcoming,
	}
}

func (s *OrderCreationService) notifyCreated(ctx context.Context, order *models.Order) {
	for _, l := range s.listeners {
		l.OrderCreated(ctx, order)
	}
}
