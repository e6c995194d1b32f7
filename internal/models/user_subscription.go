package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tiffin-api/pkg/timewindow"
)

// SubscriptionStatus is the lifecycle state of a purchased subscription.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionFailed    SubscriptionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionExpired || s == SubscriptionCancelled || s == SubscriptionFailed
}

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionPending: {SubscriptionActive, SubscriptionCancelled, SubscriptionFailed, SubscriptionExpired},
	SubscriptionActive:  {SubscriptionExpired, SubscriptionCancelled},
}

// ErrInvalidTransition is returned when a lifecycle move is not allowed.
var ErrInvalidTransition = errors.New("invalid subscription status transition")

// ErrCreditsExceeded is returned when used credits exceed granted credits.
var ErrCreditsExceeded = errors.New("credits used exceed credits granted")

// MealSlot is one meal of a subscription and when it is delivered.
type MealSlot struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time" gorm:"size:5"`
}

// MealTiming holds the per-meal delivery preferences.
type MealTiming struct {
	Lunch  MealSlot `json:"lunch" gorm:"embedded;embeddedPrefix:lunch_"`
	Dinner MealSlot `json:"dinner" gorm:"embedded;embeddedPrefix:dinner_"`
}

// VendorDetails is the vendor assignment of a subscription.
type VendorDetails struct {
	CurrentVendor    VendorRef `json:"current_vendor" gorm:"embedded;embeddedPrefix:current_"`
	IsVendorAssigned bool      `json:"is_vendor_assigned" gorm:"index"`
}

// UserSubscription is a purchased plan: it owns the credit ledger and the lifecycle.
type UserSubscription struct {
	BaseModel

	UserID         uint `json:"user_id" gorm:"not null;index"`
	SubscriptionID uint `json:"subscription_id" gorm:"not null;index"` // plan
	TransactionID  uint `json:"transaction_id" gorm:"index"`

	// Credit ledger; CreditsUsed only grows, and only through consumption events
	CreditsGranted int `json:"credits_granted" gorm:"not null"`
	CreditsUsed    int `json:"credits_used" gorm:"not null;default:0"`

	StartDate time.Time          `json:"start_date" gorm:"not null;index"`
	EndDate   time.Time          `json:"end_date" gorm:"not null;index"`
	Status    SubscriptionStatus `json:"status" gorm:"size:20;not null;index"`
	// IsExpired is written by the expiry sweep independently of Status
	IsExpired bool `json:"is_expired" gorm:"not null;default:false;index"`

	MealTiming      MealTiming    `json:"meal_timing" gorm:"embedded;embeddedPrefix:meal_"`
	DeliveryAddress Address       `json:"delivery_address" gorm:"embedded;embeddedPrefix:address_"`
	VendorDetails   VendorDetails `json:"vendor_details" gorm:"embedded;embeddedPrefix:vendor_"`

	PromoCodeUsed   string          `json:"promo_code_used" gorm:"size:50"`
	OriginalPrice   decimal.Decimal `json:"original_price" gorm:"type:numeric(12,2)"`
	DiscountApplied decimal.Decimal `json:"discount_applied" gorm:"type:numeric(12,2)"`
	FinalPrice      decimal.Decimal `json:"final_price" gorm:"type:numeric(12,2)"`
}

// BeforeSave keeps the ledger invariant in the database.
func (s *UserSubscription) BeforeSave(tx *gorm.DB) error {
	s.StartDate = s.StartDate.UTC()
	s.EndDate = s.EndDate.UTC()
	return s.ValidateCredits()
}

// ValidateCredits checks 0 <= CreditsUsed <= CreditsGranted.
func (s *UserSubscription) ValidateCredits() error {
	if s.CreditsGranted < 0 || s.CreditsUsed < 0 {
		return fmt.Errorf("credits must not be negative (granted=%d, used=%d)", s.CreditsGranted, s.CreditsUsed)
	}
	if s.CreditsUsed > s.CreditsGranted {
		return fmt.Errorf("%w (granted=%d, used=%d)", ErrCreditsExceeded, s.CreditsGranted, s.CreditsUsed)
	}
	return nil
}

// IsActive reports whether the subscription status is active.
func (s *UserSubscription) IsActive() bool {
	return s.Status == SubscriptionActive
}

// CheckIsExpired reports whether the sweep flagged the subscription or its
// last covered business day is already behind now.
func (s *UserSubscription) CheckIsExpired(now time.Time, tw timewindow.Window) bool {
	if s.IsExpired {
		return true
	}
	return now.After(tw.EndOfDay(s.EndDate))
}

// RemainingCredits is granted minus used.
func (s *UserSubscription) RemainingCredits() int {
	return s.CreditsGranted - s.CreditsUsed
}

// CanUseCredits reports whether n more credits fit in the remaining balance.
func (s *UserSubscription) CanUseCredits(n int) bool {
	return s.RemainingCredits() >= n
}

// MealTypes lists the enabled meal slots, lunch first.
func (s *UserSubscription) MealTypes() []MealType {
	types := make([]MealType, 0, 2)
	if s.MealTiming.Lunch.Enabled {
		types = append(types, MealLunch)
	}
	if s.MealTiming.Dinner.Enabled {
		types = append(types, MealDinner)
	}
	return types
}

// DailyMealCount is the number of credits one day of deliveries needs.
func (s *UserSubscription) DailyMealCount() int {
	return len(s.MealTypes())
}

// DeliveryTimeFor returns the configured delivery time for a meal slot.
func (s *UserSubscription) DeliveryTimeFor(mealType MealType) string {
	switch mealType {
	case MealLunch:
		return s.MealTiming.Lunch.Time
	case MealDinner:
		return s.MealTiming.Dinner.Time
	}
	return ""
}

// CoversDay reports whether the business day of day lies within [StartDate, EndDate].
func (s *UserSubscription) CoversDay(day time.Time, tw timewindow.Window) bool {
	start, end := tw.DayRange(day)
	return !s.StartDate.After(end) && !s.EndDate.Before(start)
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s *UserSubscription) CanTransitionTo(next SubscriptionStatus) bool {
	for _, allowed := range subscriptionTransitions[s.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the subscription to next or returns ErrInvalidTransition.
func (s *UserSubscription) TransitionTo(next SubscriptionStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	return nil
}

// MarkExpired flags the subscription as expired. The status only moves to
// expired from a non-terminal state; cancelled and failed stay as they are.
// It returns true when anything changed.
func (s *UserSubscription) MarkExpired() bool {
	changed := !s.IsExpired
	s.IsExpired = true
	if !s.Status.IsTerminal() && s.TransitionTo(SubscriptionExpired) == nil {
		changed = true
	}
	return changed
}

func (UserSubscription) TableName() string { return "user_subscriptions" }
