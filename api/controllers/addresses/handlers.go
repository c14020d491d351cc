package addresses

import (
	"net/http"

	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	"github.com/pizzabox/pizzabox-backend/api/responses"
	"github.com/pizzabox/pizzabox-backend/api/validators"
	addresssvc "github.com/pizzabox/pizzabox-backend/internal/address"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

type addressRequest struct {
	Label     string  `json:"label" validate:"required,min=1,max=60"`
	Line1     string  `json:"line1" validate:"required,min=3,max=200"`
	Line2     *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City      string  `json:"city" validate:"required,min=2,max=100"`
	State     string  `json:"state" validate:"required,min=2,max=100"`
	Pincode   string  `json:"pincode" validate:"required,len=6,numeric"`
	Phone     string  `json:"phone" validate:"required,min=10,max=15"`
	IsDefault bool    `json:"is_default"`
}

func (a addressRequest) toInput() addresssvc.Input {
	return addresssvc.Input{
		Label:     a.Label,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
		Phone:     a.Phone,
		IsDefault: a.IsDefault,
	}
}

// List returns the caller's address book.
func List(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		addresses, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addresses)
	}
}

// Get returns one of the caller's addresses.
func Get(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		addressID, err := validators.ParseUUIDParam(r, "addressID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		address, err := svc.Get(r.Context(), userID, addressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, address)
	}
}

// Create adds a delivery address to the caller's address book.
func Create(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		address, err := svc.Create(r.Context(), userID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, address)
	}
}

// Update replaces one of the caller's addresses.
func Update(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		addressID, err := validators.ParseUUIDParam(r, "addressID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		address, err := svc.Update(r.Context(), userID, addressID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, address)
	}
}

// Delete removes one of the caller's addresses.
func Delete(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		addressID, err := validators.ParseUUIDParam(r, "addressID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), userID, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
