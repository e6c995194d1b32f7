package models

import (
	"time"

	"github.com/shopspring/decimal"

	"tiffin-api/pkg/timewindow"
)

// DurationKind is how a plan's validity is expressed.
type DurationKind string

const (
	DurationWeekly  DurationKind = "weekly"
	DurationMonthly DurationKind = "monthly"
	DurationYearly  DurationKind = "yearly"
	DurationCustom  DurationKind = "custom"
)

// PlanCategory separates home chefs from commercial kitchens.
type PlanCategory string

const (
	CategoryHomeChef   PlanCategory = "home_chef"
	CategoryFoodVendor PlanCategory = "food_vendor"
)

// OrderWindow is a meal slot a plan offers and when it can be ordered.
type OrderWindow struct {
	Available bool   `json:"available"`
	StartTime string `json:"start_time" gorm:"size:5"`
	EndTime   string `json:"end_time" gorm:"size:5"`
}

// SubscriptionPlan is the admin-authored template users buy.
// Purchases snapshot price and credits, so edits only affect new purchases.
type SubscriptionPlan struct {
	BaseModel

	PlanName     string       `json:"plan_name" gorm:"size:120;not null"`
	DurationKind DurationKind `json:"duration_kind" gorm:"size:20;not null"`
	DurationDays int          `json:"duration_days"`

	Lunch  OrderWindow `json:"lunch" gorm:"embedded;embeddedPrefix:lunch_"`
	Dinner OrderWindow `json:"dinner" gorm:"embedded;embeddedPrefix:dinner_"`

	MealsPerPlan    int             `json:"meals_per_plan" gorm:"not null"`
	OriginalPrice   decimal.Decimal `json:"original_price" gorm:"type:numeric(12,2)"`
	DiscountedPrice decimal.Decimal `json:"discounted_price" gorm:"type:numeric(12,2)"`
	Category        PlanCategory    `json:"category" gorm:"size:20;index"`
	IsActive        bool            `json:"is_active" gorm:"default:true"`
}

// CoverageEnd returns the last business day a purchase starting at start covers.
func (p *SubscriptionPlan) CoverageEnd(start time.Time, tw timewindow.Window) time.Time {
	begin := tw.StartOfDay(start)
	var next time.Time
	switch p.DurationKind {
	case DurationWeekly:
		next = tw.AddDays(begin, 7)
	case DurationMonthly:
		next = tw.AddMonths(begin, 1)
	case DurationYearly:
		next = tw.AddMonths(begin, 12)
	default:
		days := p.DurationDays
		if days < 1 {
			days = 1
		}
		next = tw.AddDays(begin, days)
	}
	return tw.EndOfDay(tw.AddDays(next, -1))
}

func (SubscriptionPlan) TableName() string { return "subscription_plans" }
