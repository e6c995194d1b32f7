package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MenuItem is one dish offered on a day.
type MenuItem struct {
	MenuID      uint            `json:"menu_id,omitempty"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Description string          `json:"description,omitempty"`
}

// SelectedMenus are the dishes chosen for each meal slot.
type SelectedMenus struct {
	LunchMenus  datatypes.JSONSlice[MenuItem] `json:"lunch_menus"`
	DinnerMenus datatypes.JSONSlice[MenuItem] `json:"dinner_menus"`
}

// DailyMeal is the menu an admin publishes for one plan on one date.
// A non-empty slot list is what allows orders for that slot.
type DailyMeal struct {
	BaseModel

	SubscriptionID uint          `json:"subscription_id" gorm:"not null;uniqueIndex:idx_daily_meal_plan_date"`
	MealDate       time.Time     `json:"meal_date" gorm:"not null;uniqueIndex:idx_daily_meal_plan_date"`
	SelectedMenus  SelectedMenus `json:"selected_menus" gorm:"embedded"`
}

func (DailyMeal) TableName() string { return "daily_meals" }

func (m *DailyMeal) BeforeSave(tx *gorm.DB) error {
	m.MealDate = m.MealDate.UTC()
	return nil
}

// MenusFor returns a copy of the dishes for mealType.
func (m *DailyMeal) MenusFor(mealType MealType) []MenuItem {
	var src []MenuItem
	switch mealType {
	case MealLunch:
		src = m.SelectedMenus.LunchMenus
	case MealDinner:
		src = m.SelectedMenus.DinnerMenus
	}
	if len(src) == 0 {
		return nil
	}
	out := make([]MenuItem, len(src))
	copy(out, src)
	return out
}
