package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// MealType identifies a meal slot of the day.
type MealType string

const (
	MealLunch  MealType = "lunch"
	MealDinner MealType = "dinner"
	// MealAll marks log entries that concern the whole subscription rather than one slot.
	MealAll MealType = "all"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a delivery address. Orders carry a snapshot of it.
type Address struct {
	Street      string    `json:"street" gorm:"size:255" validate:"required"`
	City        string    `json:"city" gorm:"size:100" validate:"required"`
	State       string    `json:"state" gorm:"size:100"`
	ZipCode     string    `json:"zip_code" gorm:"size:20" validate:"required"`
	Country     string    `json:"country" gorm:"size:100"`
	Coordinates *GeoPoint `json:"coordinates,omitempty" gorm:"serializer:json"`
}

// VendorRef points at the kitchen responsible for a delivery.
type VendorRef struct {
	VendorID   uint   `json:"vendor_id" validate:"required"`
	VendorType string `json:"vendor_type" gorm:"size:20"`
}
