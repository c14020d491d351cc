package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzabox/pizzabox-backend/pkg/enums"
)

// Pizza is a menu entry carrying the base price before size/crust multipliers.
// DefaultToppings lists the toppings a pizza ships with; they are not priced
// separately.
type Pizza struct {
	ID              uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string              `gorm:"type:text;not null;uniqueIndex"`
	Description     string              `gorm:"column:description;not null;default:''"`
	Category        enums.PizzaCategory `gorm:"column:category;type:text;not null"`
	BasePrice       decimal.Decimal     `gorm:"column:base_price;type:numeric(10,2);not null"`
	ImageURL        *string             `gorm:"column:image_url"`
	IsAvailable     bool                `gorm:"column:is_available;not null;default:true"`
	DefaultToppings []PizzaTopping      `gorm:"foreignKey:PizzaID"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// PizzaTopping links a pizza to one of its default toppings. Position keeps
// the menu ordering stable.
type PizzaTopping struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PizzaID   uuid.UUID `gorm:"column:pizza_id;type:uuid;not null;index"`
	ToppingID uuid.UUID `gorm:"column:topping_id;type:uuid;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
}

// Size scales a pizza's base price by Multiplier.
type Size struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"type:text;not null;uniqueIndex"`
	Multiplier  decimal.Decimal `gorm:"column:multiplier;type:numeric(6,3);not null"`
	IsAvailable bool            `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Crust adds a flat surcharge on top of the sized base price.
type Crust struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"type:text;not null;uniqueIndex"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	IsAvailable bool            `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Topping is an optional extra priced per unit.
type Topping struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"type:text;not null;uniqueIndex"`
	Category    enums.ToppingCategory `gorm:"column:category;type:text;not null"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	IsAvailable bool                  `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
