package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart holds the mutable basket for either a guest token or a user.
// Exactly one of GuestToken/UserID is set; a user has at most one cart.
type Cart struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID      `gorm:"column:user_id;type:uuid;uniqueIndex:uq_carts_user_id,where:user_id IS NOT NULL"`
	GuestToken     *string         `gorm:"column:guest_token;uniqueIndex:uq_carts_guest_token,where:guest_token IS NOT NULL"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null;default:0"`
	Tax            decimal.Decimal `gorm:"column:tax;type:numeric(10,2);not null;default:0"`
	DeliveryCharge decimal.Decimal `gorm:"column:delivery_charge;type:numeric(10,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(10,2);not null;default:0"`
	Items          []CartItem      `gorm:"foreignKey:CartID"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is one cart line; lines with the same pizza/size/crust/topping-set
// are merged by incrementing Quantity.
type CartItem struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;index"`
	PizzaID   uuid.UUID         `gorm:"column:pizza_id;type:uuid;not null"`
	SizeID    uuid.UUID         `gorm:"column:size_id;type:uuid;not null"`
	CrustID   uuid.UUID         `gorm:"column:crust_id;type:uuid;not null"`
	Quantity  int               `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal   `gorm:"column:unit_price;type:numeric(10,2);not null"`
	LineTotal decimal.Decimal   `gorm:"column:line_total;type:numeric(10,2);not null"`
	Toppings  []CartItemTopping `gorm:"foreignKey:CartItemID"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItemTopping links a cart line to a selected topping.
type CartItemTopping struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartItemID uuid.UUID `gorm:"column:cart_item_id;type:uuid;not null;index"`
	ToppingID  uuid.UUID `gorm:"column:topping_id;type:uuid;not null"`
}
