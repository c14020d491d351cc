package menu

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogsvc "github.com/pizzabox/pizzabox-backend/internal/catalog"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
)

type pizzaRequest struct {
	Name              string   `json:"name" validate:"required,min=2,max=120"`
	Description       string   `json:"description" validate:"max=2000"`
	Category          string   `json:"category" validate:"required,oneof=veg non_veg"`
	BasePrice         string   `json:"base_price" validate:"required"`
	ImageURL          *string  `json:"image_url,omitempty" validate:"omitempty,url"`
	DefaultToppingIDs []string `json:"default_topping_ids,omitempty" validate:"omitempty,dive,uuid"`
}

func (p pizzaRequest) toInput() (catalogsvc.PizzaInput, error) {
	price, err := decimal.NewFromString(p.BasePrice)
	if err != nil {
		return catalogsvc.PizzaInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid base price")
	}
	category, err := enums.ParsePizzaCategory(p.Category)
	if err != nil {
		return catalogsvc.PizzaInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	input := catalogsvc.PizzaInput{
		Name:        p.Name,
		Description: p.Description,
		Category:    category,
		BasePrice:   price,
		ImageURL:    p.ImageURL,
	}
	// an absent list leaves default toppings untouched, [] clears them
	if p.DefaultToppingIDs != nil {
		ids := make([]uuid.UUID, 0, len(p.DefaultToppingIDs))
		for _, raw := range p.DefaultToppingIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return catalogsvc.PizzaInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid topping id")
			}
			ids = append(ids, id)
		}
		input.DefaultToppingIDs = ids
	}
	return input, nil
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type sizeRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=60"`
	Multiplier string `json:"multiplier" validate:"required"`
}

type crustRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=60"`
	Price string `json:"price" validate:"required"`
}

type toppingRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=60"`
	Category string `json:"category" validate:"required"`
	Price    string `json:"price" validate:"required"`
}
