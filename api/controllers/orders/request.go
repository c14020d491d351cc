package orders

import (
	"github.com/google/uuid"

	ordersvc "github.com/pizzabox/pizzabox-backend/internal/orders"
)

type createRequest struct {
	AddressID     string              `json:"address_id" validate:"required,uuid"`
	PaymentMethod string              `json:"payment_method" validate:"required,oneof=cod card upi"`
	Items         []createItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes         *string             `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type createItemRequest struct {
	PizzaID    string   `json:"pizza_id" validate:"required,uuid"`
	SizeID     string   `json:"size_id" validate:"required,uuid"`
	CrustID    string   `json:"crust_id" validate:"required,uuid"`
	ToppingIDs []string `json:"topping_ids" validate:"omitempty,dive,uuid"`
	Quantity   int      `json:"quantity" validate:"required,min=1,max=99"`
}

func (req createItemRequest) toInput() (ordersvc.ItemInput, error) {
	pizzaID, err := uuid.Parse(req.PizzaID)
	if err != nil {
		return ordersvc.ItemInput{}, err
	}
	sizeID, err := uuid.Parse(req.SizeID)
	if err != nil {
		return ordersvc.ItemInput{}, err
	}
	crustID, err := uuid.Parse(req.CrustID)
	if err != nil {
		return ordersvc.ItemInput{}, err
	}
	toppingIDs := make([]uuid.UUID, 0, len(req.ToppingIDs))
	for _, raw := range req.ToppingIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return ordersvc.ItemInput{}, err
		}
		toppingIDs = append(toppingIDs, id)
	}
	return ordersvc.ItemInput{
		PizzaID:    pizzaID,
		SizeID:     sizeID,
		CrustID:    crustID,
		ToppingIDs: toppingIDs,
		Quantity:   req.Quantity,
	}, nil
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
