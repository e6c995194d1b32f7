package models

import (
	"errors"
	"fmt"
	"time"
)

// FailureCode classifies why one (subscription, meal type) item was not ordered.
type FailureCode string

const (
	FailureSubscriptionInactive FailureCode = "SUBSCRIPTION_INACTIVE"
	FailureSubscriptionExpired  FailureCode = "SUBSCRIPTION_EXPIRED"
	FailureInsufficientCredits  FailureCode = "INSUFFICIENT_CREDITS"
	FailureOrderAlreadyExists   FailureCode = "ORDER_ALREADY_EXISTS"
	FailureNoMenuAvailable      FailureCode = "NO_MENU_AVAILABLE"
	FailureOrderCreationFailed  FailureCode = "ORDER_CREATION_FAILED"
	FailureValidationError      FailureCode = "VALIDATION_ERROR"
)

var retryableFailures = map[FailureCode]bool{
	FailureSubscriptionInactive: false,
	FailureSubscriptionExpired:  false,
	FailureInsufficientCredits:  false,
	FailureOrderAlreadyExists:   false,
	FailureNoMenuAvailable:      true,
	FailureOrderCreationFailed:  true,
	FailureValidationError:      true,
}

// Retryable is the default retry flag recorded for the code.
func (c FailureCode) Retryable() bool {
	return retryableFailures[c]
}

// FailureCodes lists every code in a stable order.
func FailureCodes() []FailureCode {
	return []FailureCode{
		FailureSubscriptionInactive,
		FailureSubscriptionExpired,
		FailureInsufficientCredits,
		FailureOrderAlreadyExists,
		FailureNoMenuAvailable,
		FailureOrderCreationFailed,
		FailureValidationError,
	}
}

// LogStatus is the state of a batch run.
type LogStatus string

const (
	LogRunning   LogStatus = "running"
	LogCompleted LogStatus = "completed"
	LogFailed    LogStatus = "failed"
)

// TriggeredBySystem is the actor recorded for scheduled batches.
const TriggeredBySystem = "system"

var ErrFailedOrderIndex = errors.New("failed order index out of range")

// FailedOrder is one failure entry of a batch log.
type FailedOrder struct {
	ID                 uint        `json:"-" gorm:"primaryKey"`
	LogID              uint        `json:"-" gorm:"not null;index"`
	UserID             uint        `json:"user_id"`
	UserSubscriptionID uint        `json:"user_subscription_id" gorm:"index"`
	MealType           MealType    `json:"meal_type" gorm:"size:10"`
	FailureCode        FailureCode `json:"failure_code" gorm:"size:40;index"`
	Reason             string      `json:"reason" gorm:"type:text"`
	CanRetry           bool        `json:"can_retry"`
	CreatedAt          time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

func (FailedOrder) TableName() string { return "order_creation_failed_orders" }

// SuccessfulOrder is one created order of a batch log.
type SuccessfulOrder struct {
	ID                 uint      `json:"-" gorm:"primaryKey"`
	LogID              uint      `json:"-" gorm:"not null;index"`
	UserID             uint      `json:"user_id"`
	UserSubscriptionID uint      `json:"user_subscription_id"`
	OrderID            uint      `json:"order_id"`
	MealType           MealType  `json:"meal_type" gorm:"size:10"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (SuccessfulOrder) TableName() string { return "order_creation_successful_orders" }

// OrderCreationLog is the audit record of one batch run. It is never deleted;
// once finished only retry bookkeeping changes it.
type OrderCreationLog struct {
	BaseModel

	RunID          string    `json:"run_id" gorm:"size:36;uniqueIndex"`
	DailyMealID    uint      `json:"daily_meal_id" gorm:"not null;index"`
	SubscriptionID uint      `json:"subscription_id" gorm:"not null;index"`
	TriggerDate    time.Time `json:"trigger_date" gorm:"not null"`
	TriggeredBy    string    `json:"triggered_by" gorm:"size:64;not null"`

	TotalUsersFound    int `json:"total_users_found"`
	TotalOrdersCreated int `json:"total_orders_created"`
	TotalOrdersFailed  int `json:"total_orders_failed"`

	Status       LogStatus  `json:"status" gorm:"size:20;not null;index"`
	CompletedAt  *time.Time `json:"completed_at"`
	ErrorMessage string     `json:"error_message,omitempty" gorm:"type:text"`

	FailedOrders     []FailedOrder     `json:"failed_orders" gorm:"foreignKey:LogID"`
	SuccessfulOrders []SuccessfulOrder `json:"successful_orders" gorm:"foreignKey:LogID"`
}

func (OrderCreationLog) TableName() string { return "order_creation_logs" }

// NewOrderCreationLog starts a running log for a batch over meal.
func NewOrderCreationLog(runID string, meal *DailyMeal, triggeredBy string, now time.Time) *OrderCreationLog {
	return &OrderCreationLog{
		RunID:          runID,
		DailyMealID:    meal.ID,
		SubscriptionID: meal.SubscriptionID,
		TriggerDate:    now,
		TriggeredBy:    triggeredBy,
		Status:         LogRunning,
	}
}

func (l *OrderCreationLog) AddFailedOrder(entry FailedOrder) {
	entry.LogID = l.ID
	l.FailedOrders = append(l.FailedOrders, entry)
	l.TotalOrdersFailed++
}

func (l *OrderCreationLog) AddSuccessfulOrder(entry SuccessfulOrder) {
	entry.LogID = l.ID
	l.SuccessfulOrders = append(l.SuccessfulOrders, entry)
	l.TotalOrdersCreated++
}

func (l *OrderCreationLog) MarkCompleted(now time.Time) {
	l.Status = LogCompleted
	l.CompletedAt = &now
}

func (l *OrderCreationLog) MarkFailed(now time.Time, cause error) {
	l.Status = LogFailed
	l.CompletedAt = &now
	if cause != nil {
		l.ErrorMessage = cause.Error()
	}
}

// IsFinished reports whether the run reached completed or failed.
func (l *OrderCreationLog) IsFinished() bool {
	return l.Status == LogCompleted || l.Status == LogFailed
}

// FailedOrderAt returns the failure entry at index.
func (l *OrderCreationLog) FailedOrderAt(index int) (*FailedOrder, error) {
	if index < 0 || index >= len(l.FailedOrders) {
		return nil, fmt.Errorf("%w: %d (log has %d)", ErrFailedOrderIndex, index, len(l.FailedOrders))
	}
	return &l.FailedOrders[index], nil
}

// RemoveFailedOrder drops the entry at index and decrements the failure counter.
func (l *OrderCreationLog) RemoveFailedOrder(index int) (FailedOrder, error) {
	entry, err := l.FailedOrderAt(index)
	if err != nil {
		return FailedOrder{}, err
	}
	removed := *entry
	l.FailedOrders = append(l.FailedOrders[:index], l.FailedOrders[index+1:]...)
	if l.TotalOrdersFailed > 0 {
		l.TotalOrdersFailed--
	}
	return removed, nil
}
