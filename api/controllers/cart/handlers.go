package cart

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	"github.com/pizzabox/pizzabox-backend/api/responses"
	"github.com/pizzabox/pizzabox-backend/api/validators"
	cartsvc "github.com/pizzabox/pizzabox-backend/internal/cart"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

// GuestTokenHeader carries the opaque token that identifies an anonymous cart.
const GuestTokenHeader = "X-Guest-Cart-Token"

func guestToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(GuestTokenHeader))
}

// owner resolves the cart owner for the request: authenticated users own
// their user cart, everyone else is identified by the guest token header.
func owner(r *http.Request) (cartsvc.Owner, error) {
	if userID := apimiddleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
		return cartsvc.Owner{UserID: &userID}, nil
	}
	token := guestToken(r)
	if token == "" {
		return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "guest cart token is required")
	}
	return cartsvc.Owner{GuestToken: token}, nil
}

// GetCart returns the caller's cart, creating one on first touch. Anonymous
// callers without a token get a fresh one, echoed back in the response header.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID := apimiddleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
			userCart, err := svc.GetOrCreateUserCart(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, userCart)
			return
		}

		token := guestToken(r)
		if token == "" {
			token = cartsvc.NewGuestToken()
		}
		guestCart, err := svc.GetOrCreateGuestCart(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(GuestTokenHeader, token)
		responses.WriteSuccess(w, guestCart)
	}
}

// AddItem adds a configured pizza line to the caller's cart.
func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartOwner, err := owner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.AddItem(r.Context(), cartOwner, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cart)
	}
}

// UpdateItemQuantity sets the quantity of one cart line.
func UpdateItemQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartOwner, err := owner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.UpdateItemQuantity(r.Context(), cartOwner, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// RemoveItem deletes one line from the caller's cart.
func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartOwner, err := owner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.RemoveItem(r.Context(), cartOwner, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// Clear removes every line from the caller's cart.
func Clear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartOwner, err := owner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Clear(r.Context(), cartOwner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// Merge folds the caller's guest cart into their user cart after login.
func Merge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		token := guestToken(r)
		if token == "" {
			var payload mergeRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			token = strings.TrimSpace(payload.GuestToken)
		}
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "guest cart token is required"))
			return
		}
		cart, err := svc.MergeGuestIntoUser(r.Context(), token, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}
