package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzabox/pizzabox-backend/pkg/enums"
)

// Payment tracks a gateway transaction for an order. Metadata keeps the raw
// provider responses (create order, fetched payment) as an opaque blob.
type Payment struct {
	ID                uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	UserID            *uuid.UUID             `gorm:"column:user_id;type:uuid;index"`
	Provider          enums.PaymentProvider  `gorm:"column:provider;type:text;not null;default:'razorpay'"`
	ProviderOrderID   string                 `gorm:"column:provider_order_id;type:text;not null;uniqueIndex"`
	ProviderPaymentID *string                `gorm:"column:provider_payment_id"`
	Amount            decimal.Decimal        `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency          string                 `gorm:"column:currency;type:text;not null;default:'INR'"`
	Status            enums.PaymentTxnStatus `gorm:"column:status;type:text;not null;default:'initiated'"`
	FailureReason     *string                `gorm:"column:failure_reason"`
	Metadata          json.RawMessage        `gorm:"column:metadata;type:jsonb"`
	VerifiedAt        *time.Time             `gorm:"column:verified_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
