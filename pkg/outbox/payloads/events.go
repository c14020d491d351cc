package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzabox/pizzabox-backend/pkg/enums"
)

// OrderCreatedEvent signals a freshly placed order.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID           `json:"order_id"`
	OrderNo   string              `json:"order_no"`
	UserID    uuid.UUID           `json:"user_id"`
	Total     decimal.Decimal     `json:"total"`
	ItemCount int                 `json:"item_count"`
	Method    enums.PaymentMethod `json:"method"`
	PlacedAt  time.Time           `json:"placed_at"`
}

// OrderStatusChangedEvent is emitted on every admin-driven transition. It
// carries the customer-facing message so consumers render it verbatim.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNo       string            `json:"order_no"`
	UserID        uuid.UUID         `json:"user_id"`
	FromStatus    enums.OrderStatus `json:"from_status"`
	ToStatus      enums.OrderStatus `json:"to_status"`
	StatusMessage string            `json:"status_message"`
}

// OrderCancelledEvent is emitted when a customer cancels a pre-payment order.
type OrderCancelledEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	OrderNo string            `json:"order_no"`
	UserID  uuid.UUID         `json:"user_id"`
	From    enums.OrderStatus `json:"from"`
}

// PaymentEvent covers both successful and failed verification outcomes.
type PaymentEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	OrderNo   string          `json:"order_no"`
	UserID    uuid.UUID       `json:"user_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
}
