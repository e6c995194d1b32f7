package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"tiffin-api/internal/database"
	"tiffin-api/internal/models"
)

// fakeStore is an in-memory implementation of every repository interface.
// FindEligibleSubscriptions returns every subscription of the plan so the
// engine's own gates are exercised.
type fakeStore struct {
	mu sync.Mutex

	subs   map[uint]*models.UserSubscription
	meals  map[uint]*models.DailyMeal
	orders []*models.Order
	logs   map[uint]*models.OrderCreationLog

	nextID uint

	eligibleErr      error
	appendSuccessErr error
	appendFailedErr  error
	finishErr        error
	saveExpiryErr    map[uint]error
	// raceOnCreate inserts a competing live order right before CreateOrder
	raceOnCreate bool

	savedExpiry []uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subs:  make(map[uint]*models.UserSubscription),
		meals: make(map[uint]*models.DailyMeal),
		logs:  make(map[uint]*models.OrderCreationLog),
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addSubscription(sub *models.UserSubscription) *models.UserSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.ID == 0 {
		sub.ID = f.id()
	}
	cp := *sub
	f.subs[sub.ID] = &cp
	return sub
}

func (f *fakeStore) updateSubscription(id uint, update func(*models.UserSubscription)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	update(f.subs[id])
}

func (f *fakeStore) addDailyMeal(meal *models.DailyMeal) *models.DailyMeal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if meal.ID == 0 {
		meal.ID = f.id()
	}
	cp := *meal
	f.meals[meal.ID] = &cp
	return meal
}

func (f *fakeStore) setDinnerMenus(mealID uint, items []models.MenuItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meals[mealID].SelectedMenus.DinnerMenus = items
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeStore) subscription(id uint) models.UserSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.subs[id]
}

func (f *fakeStore) putLog(log *models.OrderCreationLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if log.ID == 0 {
		log.ID = f.id()
	}
	for i := range log.FailedOrders {
		if log.FailedOrders[i].ID == 0 {
			log.FailedOrders[i].ID = f.id()
		}
		log.FailedOrders[i].LogID = log.ID
	}
	f.logs[log.ID] = copyLog(log)
}

func copyLog(l *models.OrderCreationLog) *models.OrderCreationLog {
	cp := *l
	cp.FailedOrders = append([]models.FailedOrder(nil), l.FailedOrders...)
	cp.SuccessfulOrders = append([]models.SuccessfulOrder(nil), l.SuccessfulOrders...)
	return &cp
}

// SubscriptionRepository

func (f *fakeStore) GetUserSubscription(_ context.Context, id uint) (*models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeStore) FindEligibleSubscriptions(ctx context.Context, planID uint, _, _ time.Time) ([]models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.eligibleErr != nil {
		return nil, f.eligibleErr
	}
	var out []models.UserSubscription
	for _, sub := range f.subs {
		if sub.SubscriptionID == planID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FindOverdueSubscriptions(_ context.Context, cutoff time.Time) ([]models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserSubscription
	for _, sub := range f.subs {
		if sub.EndDate.Before(cutoff) && !sub.IsExpired {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) SaveExpiry(_ context.Context, sub *models.UserSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveExpiryErr[sub.ID]; err != nil {
		return err
	}
	stored := f.subs[sub.ID]
	stored.IsExpired = sub.IsExpired
	stored.Status = sub.Status
	f.savedExpiry = append(f.savedExpiry, sub.ID)
	return nil
}

// DailyMealRepository

func (f *fakeStore) GetDailyMeal(_ context.Context, id uint) (*models.DailyMeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meal, ok := f.meals[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *meal
	return &cp, nil
}

func (f *fakeStore) FindDailyMealsBetween(_ context.Context, start, end time.Time) ([]models.DailyMeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DailyMeal
	for _, meal := range f.meals {
		if !meal.MealDate.Before(start) && !meal.MealDate.After(end) {
			out = append(out, *meal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// OrderRepository

func (f *fakeStore) findLive(userID, subID uint, dayStart, dayEnd time.Time, mealType models.MealType) *models.Order {
	for _, o := range f.orders {
		if o.UserID == userID && o.UserSubscriptionID == subID && o.MealType == mealType &&
			!o.DeliveryDate.Before(dayStart) && !o.DeliveryDate.After(dayEnd) && o.Status.IsLive() {
			return o
		}
	}
	return nil
}

func (f *fakeStore) FindLiveOrder(ctx context.Context, userID, subID uint, dayStart, dayEnd time.Time, mealType models.MealType) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o := f.findLive(userID, subID, dayStart, dayEnd, mealType); o != nil {
		cp := *o
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.raceOnCreate {
		winner := *order
		winner.ID = f.id()
		winner.OrderNumber = "ORD-CONCURRENT"
		f.orders = append(f.orders, &winner)
	}
	for _, o := range f.orders {
		if o.UserSubscriptionID == order.UserSubscriptionID && o.MealType == order.MealType &&
			o.DeliveryDate.Equal(order.DeliveryDate) && o.Status.IsLive() {
			return database.ErrDuplicateOrder
		}
	}
	order.ID = f.id()
	cp := *order
	f.orders = append(f.orders, &cp)
	return nil
}

func (f *fakeStore) ListOrdersForDailyMeal(_ context.Context, dailyMealID uint) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.DailyMealID == dailyMealID {
			out = append(out, *o)
		}
	}
	return out, nil
}

// addOrder stores an order directly, bypassing the slot check.
func (f *fakeStore) addOrder(order models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = f.id()
	f.orders = append(f.orders, &order)
}

// OrderCreationLogRepository

func (f *fakeStore) CreateLog(_ context.Context, log *models.OrderCreationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	log.ID = f.id()
	f.logs[log.ID] = copyLog(log)
	return nil
}

func (f *fakeStore) SetUsersFound(ctx context.Context, logID uint, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.logs[logID].TotalUsersFound = total
	return nil
}

func (f *fakeStore) AppendFailedOrder(ctx context.Context, logID uint, entry *models.FailedOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.appendFailedErr != nil {
		return f.appendFailedErr
	}
	entry.ID = f.id()
	entry.LogID = logID
	log := f.logs[logID]
	log.FailedOrders = append(log.FailedOrders, *entry)
	log.TotalOrdersFailed++
	return nil
}

func (f *fakeStore) AppendSuccessfulOrder(ctx context.Context, logID uint, entry *models.SuccessfulOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.appendSuccessErr != nil {
		return f.appendSuccessErr
	}
	entry.ID = f.id()
	entry.LogID = logID
	log := f.logs[logID]
	log.SuccessfulOrders = append(log.SuccessfulOrders, *entry)
	log.TotalOrdersCreated++
	return nil
}

func (f *fakeStore) FinishLog(ctx context.Context, log *models.OrderCreationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.finishErr != nil {
		return f.finishErr
	}
	stored := f.logs[log.ID]
	stored.Status = log.Status
	stored.CompletedAt = log.CompletedAt
	stored.ErrorMessage = log.ErrorMessage
	return nil
}

func (f *fakeStore) ResolveFailedOrder(ctx context.Context, logID, failedOrderID uint, successes []models.SuccessfulOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	log, ok := f.logs[logID]
	if !ok {
		return database.ErrNotFound
	}
	idx := -1
	for i, e := range log.FailedOrders {
		if e.ID == failedOrderID {
			idx = i
		}
	}
	if idx < 0 {
		return database.ErrNotFound
	}
	log.FailedOrders = append(log.FailedOrders[:idx], log.FailedOrders[idx+1:]...)
	log.TotalOrdersFailed--
	for _, s := range successes {
		s.ID = f.id()
		s.LogID = logID
		log.SuccessfulOrders = append(log.SuccessfulOrders, s)
		log.TotalOrdersCreated++
	}
	return nil
}

func (f *fakeStore) GetLog(_ context.Context, id uint) (*models.OrderCreationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log, ok := f.logs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copyLog(log), nil
}

func (f *fakeStore) ListLogs(_ context.Context, filter database.LogFilter) ([]models.OrderCreationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderCreationLog
	for _, log := range f.logs {
		if filter.DailyMealID != 0 && log.DailyMealID != filter.DailyMealID {
			continue
		}
		if filter.Status != "" && log.Status != filter.Status {
			continue
		}
		out = append(out, *copyLog(log))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

var (
	_ SubscriptionRepository     = (*fakeStore)(nil)
	_ DailyMealRepository        = (*fakeStore)(nil)
	_ OrderRepository            = (*fakeStore)(nil)
	_ OrderCreationLogRepository = (*fakeStore)(nil)
)
