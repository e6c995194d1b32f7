package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus is the delivery state of an order.
type OrderStatus string

const (
	OrderUpcoming       OrderStatus = "upcoming"
	OrderPreparing      OrderStatus = "preparing"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderSkipped        OrderStatus = "skipped"
)

// IsLive reports whether the order still occupies its delivery slot.
func (s OrderStatus) IsLive() bool {
	return s != OrderCancelled && s != OrderSkipped
}

// DeadOrderStatuses are the statuses that free a (subscription, day, meal) slot.
var DeadOrderStatuses = []OrderStatus{OrderSkipped, OrderCancelled}

// Order is one concrete meal delivery materialized from a subscription.
// Menus, address and vendor are snapshots taken at creation.
type Order struct {
	BaseModel

	OrderNumber string `json:"order_number" gorm:"size:64;uniqueIndex;not null"`

	UserID             uint `json:"user_id" gorm:"not null;index" validate:"required"`
	UserSubscriptionID uint `json:"user_subscription_id" gorm:"not null;uniqueIndex:idx_orders_live_slot,where:status <> 'skipped' AND status <> 'cancelled'" validate:"required"`
	DailyMealID        uint `json:"daily_meal_id" gorm:"not null;index" validate:"required"`

	OrderDate    time.Time `json:"order_date" gorm:"not null" validate:"required"`
	DeliveryDate time.Time `json:"delivery_date" gorm:"not null;index;uniqueIndex:idx_orders_live_slot" validate:"required"`
	MealType     MealType  `json:"meal_type" gorm:"size:10;not null;uniqueIndex:idx_orders_live_slot" validate:"required,oneof=lunch dinner"`

	SelectedMenus   datatypes.JSONSlice[MenuItem] `json:"selected_menus" validate:"required,min=1"`
	DeliveryTime    string                        `json:"delivery_time" gorm:"size:5;not null" validate:"required,hhmm"`
	DeliveryAddress Address                       `json:"delivery_address" gorm:"embedded;embeddedPrefix:delivery_"`
	VendorDetails   VendorRef                     `json:"vendor_details" gorm:"embedded;embeddedPrefix:vendor_"`

	Status OrderStatus `json:"status" gorm:"size:20;not null;index"`
}

func (Order) TableName() string { return "orders" }

// BeforeSave stores instants in UTC so day-range queries compare equal on every driver.
func (o *Order) BeforeSave(tx *gorm.DB) error {
	o.OrderDate = o.OrderDate.UTC()
	o.DeliveryDate = o.DeliveryDate.UTC()
	return nil
}
