package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tiffin-api/internal/models"
	"tiffin-api/pkg/logging"
	"tiffin-api/pkg/timewindow"
)

// insertDemoData inserts a lunch plan, one paying subscriber and today's menu
// so a fresh development database can run a batch end to end.
func insertDemoData(db *gorm.DB, tw timewindow.Window, now time.Time) error {
	today := tw.StartOfDay(now)

	plan := models.SubscriptionPlan{
		PlanName:        "Lunch Only",
		DurationKind:    models.DurationMonthly,
		Lunch:           models.OrderWindow{Available: true, StartTime: "11:00", EndTime: "14:00"},
		MealsPerPlan:    30,
		OriginalPrice:   decimal.NewFromInt(3600),
		DiscountedPrice: decimal.NewFromInt(3000),
		Category:        models.CategoryHomeChef,
		IsActive:        true,
	}
	// Use FirstOrCreate to avoid duplicates
	if err := db.Where("plan_name = ?", plan.PlanName).FirstOrCreate(&plan).Error; err != nil {
		return fmt.Errorf("failed to create demo plan: %w", err)
	}

	paidAt := now
	txn := models.Transaction{
		UserID:     1,
		GatewayRef: "demo-payment-1",
		Gateway:    "demo",
		Amount:     plan.DiscountedPrice,
		Currency:   "INR",
		Status:     models.TransactionCaptured,
		PaidAt:     &paidAt,
	}
	if err := db.Where("gateway_ref = ?", txn.GatewayRef).FirstOrCreate(&txn).Error; err != nil {
		return fmt.Errorf("failed to create demo transaction: %w", err)
	}

	sub := models.UserSubscription{
		UserID:         txn.UserID,
		SubscriptionID: plan.ID,
		TransactionID:  txn.ID,
		CreditsGranted: plan.MealsPerPlan,
		StartDate:      today,
		EndDate:        plan.CoverageEnd(today, tw),
		Status:         models.SubscriptionActive,
		MealTiming: models.MealTiming{
			Lunch: models.MealSlot{Enabled: true, Time: "12:30"},
		},
		DeliveryAddress: models.Address{
			Street:  "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			ZipCode: "560001",
		},
		VendorDetails: models.VendorDetails{
			CurrentVendor:    models.VendorRef{VendorID: 1, VendorType: string(models.CategoryHomeChef)},
			IsVendorAssigned: true,
		},
		OriginalPrice:   plan.OriginalPrice,
		FinalPrice:      plan.DiscountedPrice,
		DiscountApplied: plan.OriginalPrice.Sub(plan.DiscountedPrice),
	}
	if err := db.Where("transaction_id = ?", txn.ID).FirstOrCreate(&sub).Error; err != nil {
		return fmt.Errorf("failed to create demo subscription: %w", err)
	}

	meal := models.DailyMeal{
		SubscriptionID: plan.ID,
		MealDate:       today,
		SelectedMenus: models.SelectedMenus{
			LunchMenus: []models.MenuItem{
				{MenuID: 1, Title: "Dal Rice", Price: decimal.NewFromInt(120)},
			},
		},
	}
	if err := db.Where("subscription_id = ? AND meal_date = ?", plan.ID, today.UTC()).FirstOrCreate(&meal).Error; err != nil {
		return fmt.Errorf("failed to create demo daily meal: %w", err)
	}

	logging.Infof("Demo data inserted successfully (plan=%d, subscription=%d, daily_meal=%d)", plan.ID, sub.ID, meal.ID)
	return nil
}
