package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/pizzabox/pizzabox-backend/internal/cart"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
)

type addItemRequest struct {
	PizzaID    string   `json:"pizza_id" validate:"required,uuid"`
	SizeID     string   `json:"size_id" validate:"required,uuid"`
	CrustID    string   `json:"crust_id" validate:"required,uuid"`
	ToppingIDs []string `json:"topping_ids" validate:"dive,uuid"`
	Quantity   int      `json:"quantity" validate:"required,min=1,max=99"`
}

func (a addItemRequest) toInput() (cartsvc.AddItemInput, error) {
	pizzaID, err := uuid.Parse(a.PizzaID)
	if err != nil {
		return cartsvc.AddItemInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid pizza id")
	}
	sizeID, err := uuid.Parse(a.SizeID)
	if err != nil {
		return cartsvc.AddItemInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid size id")
	}
	crustID, err := uuid.Parse(a.CrustID)
	if err != nil {
		return cartsvc.AddItemInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid crust id")
	}
	toppingIDs := make([]uuid.UUID, 0, len(a.ToppingIDs))
	for _, raw := range a.ToppingIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.AddItemInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid topping id")
		}
		toppingIDs = append(toppingIDs, id)
	}
	return cartsvc.AddItemInput{
		PizzaID:    pizzaID,
		SizeID:     sizeID,
		CrustID:    crustID,
		ToppingIDs: toppingIDs,
		Quantity:   a.Quantity,
	}, nil
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

type mergeRequest struct {
	GuestToken string `json:"guest_token"`
}
