package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzabox/pizzabox-backend/pkg/enums"
)

// Order is a placed order with pricing frozen at checkout time.
type Order struct {
	ID              uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNo         string              `gorm:"column:order_no;type:text;not null;uniqueIndex"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Tax             decimal.Decimal     `gorm:"column:tax;type:numeric(10,2);not null"`
	DeliveryCharge  decimal.Decimal     `gorm:"column:delivery_charge;type:numeric(10,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	DeliveryAddress string              `gorm:"column:delivery_address;type:text;not null"`
	Notes           *string             `gorm:"column:notes"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots one order line. Names and component prices are copied
// from the catalog at order time so later menu edits cannot change history.
type OrderItem struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PizzaID    uuid.UUID          `gorm:"column:pizza_id;type:uuid;not null"`
	PizzaName  string             `gorm:"column:pizza_name;not null"`
	SizeName   string             `gorm:"column:size_name;not null"`
	CrustName  string             `gorm:"column:crust_name;not null"`
	BasePrice  decimal.Decimal    `gorm:"column:base_price;type:numeric(10,2);not null"`
	SizeMult   decimal.Decimal    `gorm:"column:size_multiplier;type:numeric(6,3);not null"`
	CrustPrice decimal.Decimal    `gorm:"column:crust_price;type:numeric(10,2);not null"`
	Quantity   int                `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal    `gorm:"column:unit_price;type:numeric(10,2);not null"`
	LineTotal  decimal.Decimal    `gorm:"column:line_total;type:numeric(10,2);not null"`
	Toppings   []OrderItemTopping `gorm:"foreignKey:OrderItemID"`
}

// OrderItemTopping snapshots a topping name/price on an order line.
type OrderItemTopping struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID uuid.UUID       `gorm:"column:order_item_id;type:uuid;not null;index"`
	ToppingID   uuid.UUID       `gorm:"column:topping_id;type:uuid;not null"`
	Name        string          `gorm:"column:name;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
}
