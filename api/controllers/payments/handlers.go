package payments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	"github.com/pizzabox/pizzabox-backend/api/responses"
	"github.com/pizzabox/pizzabox-backend/api/validators"
	paymentsvc "github.com/pizzabox/pizzabox-backend/internal/payments"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

type createGatewayOrderRequest struct {
	OrderNo string `json:"order_no" validate:"required"`
}

type verifyRequest struct {
	ProviderOrderID   string `json:"razorpay_order_id" validate:"required"`
	ProviderPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature         string `json:"razorpay_signature" validate:"required"`
}

type gatewayOrderResponse struct {
	PaymentID       string `json:"payment_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	OrderID  string `json:"order_id"`
}

// CreateGatewayOrder opens a gateway order for an online payment attempt.
func CreateGatewayOrder(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		var payload createGatewayOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, gatewayOrder, err := svc.CreateGatewayOrder(r.Context(), userID, payload.OrderNo)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, gatewayOrderResponse{
			PaymentID:       payment.ID.String(),
			ProviderOrderID: gatewayOrder.ID,
			Amount:          gatewayOrder.Amount,
			Currency:        gatewayOrder.Currency,
		})
	}
}

// Verify checks a completed checkout against the gateway signature.
func Verify(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.VerifyPayment(r.Context(), userID, paymentsvc.VerifyInput{
			ProviderOrderID:   payload.ProviderOrderID,
			ProviderPaymentID: payload.ProviderPaymentID,
			Signature:         payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, verifyResponse{
			Verified: result.Verified,
			Status:   result.Payment.Status.String(),
			Reason:   result.Reason,
			OrderID:  result.Payment.OrderID.String(),
		})
	}
}

// ListByOrder returns the payment attempts recorded against one order.
func ListByOrder(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := apimiddleware.UserIDFromContext(r.Context())
		orderNo := chi.URLParam(r, "orderNo")
		payments, err := svc.ListByOrder(r.Context(), userID, orderNo)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments)
	}
}
