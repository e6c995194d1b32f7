package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the gateway state of a payment.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionCaptured TransactionStatus = "captured"
	TransactionFailed   TransactionStatus = "failed"
	TransactionRefunded TransactionStatus = "refunded"
)

// Transaction is the payment behind a subscription purchase.
// The purchase flow writes it; order creation only links to it.
type Transaction struct {
	BaseModel

	UserID     uint   `json:"user_id" gorm:"not null;index"`
	GatewayRef string `json:"gateway_ref" gorm:"size:100;uniqueIndex"` // payment id from the gateway
	Gateway    string `json:"gateway" gorm:"size:30"`

	Amount   decimal.Decimal   `json:"amount" gorm:"type:numeric(12,2)"`
	Currency string            `json:"currency" gorm:"size:3;default:INR"`
	Status   TransactionStatus `json:"status" gorm:"size:20;not null;index"`

	PaidAt *time.Time `json:"paid_at"`
}

func (Transaction) TableName() string { return "transactions" }
