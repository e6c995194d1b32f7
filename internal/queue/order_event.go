package queue

import (
	"fmt"
	"time"

	"tiffin-api/internal/models"
)

// OrderEvent is the order.created message written to Kafka.
type OrderEvent struct {
	Event              string            `json:"event"`
	OrderID            uint              `json:"order_id"`
	OrderNumber        string            `json:"order_number"`
	UserID             uint              `json:"user_id"`
	UserSubscriptionID uint              `json:"user_subscription_id"`
	DailyMealID        uint              `json:"daily_meal_id"`
	VendorID           uint              `json:"vendor_id"`
	MealType           models.MealType   `json:"meal_type"`
	DeliveryDate       time.Time         `json:"delivery_date"`
	DeliveryTime       string            `json:"delivery_time"`
	Items              []models.MenuItem `json:"items"`
	OccurredAt         time.Time         `json:"occurred_at"`
}

const EventOrderCreated = "order.created"

func newOrderEvent(order *models.Order, now time.Time) OrderEvent {
	return OrderEvent{
		Event:              EventOrderCreated,
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		UserSubscriptionID: order.UserSubscriptionID,
		DailyMealID:        order.DailyMealID,
		VendorID:           order.VendorDetails.VendorID,
		MealType:           order.MealType,
		DeliveryDate:       order.DeliveryDate.UTC(),
		DeliveryTime:       order.DeliveryTime,
		Items:              order.SelectedMenus,
		OccurredAt:         now.UTC(),
	}
}

// Validate rejects events consumers could not route.
func (e OrderEvent) Validate() error {
	if e.OrderNumber == "" {
		return fmt.Errorf("order_number is required")
	}
	if e.UserSubscriptionID == 0 {
		return fmt.Errorf("user_subscription_id is required")
	}
	if e.MealType != models.MealLunch && e.MealType != models.MealDinner {
		return fmt.Errorf("meal_type %q is invalid", e.MealType)
	}
	if e.DeliveryDate.IsZero() {
		return fmt.Errorf("delivery_date is required")
	}
	return nil
}
