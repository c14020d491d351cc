package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/internal/orders"
	dbpkg "github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox/payloads"
	"github.com/pizzabox/pizzabox-backend/pkg/razorpay"
)

// VerifyInput carries the checkout callback fields sent by the client after
// the gateway widget completes.
type VerifyInput struct {
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// VerifyResult reports the outcome of a verification attempt. A signature
// mismatch is a result, not an error.
type VerifyResult struct {
	Payment  *models.Payment
	Verified bool
	Reason   string
}

// Service drives gateway orders and payment verification.
type Service interface {
	CreateGatewayOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Payment, *razorpay.Order, error)
	VerifyPayment(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error)
	ListByOrder(ctx context.Context, userID uuid.UUID, orderNo string) ([]models.Payment, error)
}

type service struct {
	client    *dbpkg.Client
	repo      Repository
	orderRepo orders.Repository
	gateway   razorpay.Gateway
	emitter   outbox.Emitter
	currency  string
	logg      *logger.Logger
}

// NewService wires payment dependencies.
func NewService(
	client *dbpkg.Client,
	repo Repository,
	orderRepo orders.Repository,
	gateway razorpay.Gateway,
	emitter outbox.Emitter,
	currency string,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if currency == "" {
		currency = "INR"
	}
	return &service{
		client:    client,
		repo:      repo,
		orderRepo: orderRepo,
		gateway:   gateway,
		emitter:   emitter,
		currency:  currency,
		logg:      logg,
	}, nil
}

// toMinorUnits converts a major-unit decimal amount into the currency's
// smallest unit (paise for INR).
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// paymentMetadata is the opaque blob stored on a payment row: the raw gateway
// response for the created order and, once verified, the fetched payment.
type paymentMetadata struct {
	GatewayOrder   *razorpay.Order   `json:"gateway_order,omitempty"`
	GatewayPayment *razorpay.Payment `json:"gateway_payment,omitempty"`
}

func (m paymentMetadata) raw() json.RawMessage {
	raw, _ := json.Marshal(m)
	return raw
}

// CreateGatewayOrder opens a gateway order for an unpaid online order and
// records the attempt. Nothing is persisted when the gateway call fails.
func (s *service) CreateGatewayOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Payment, *razorpay.Order, error) {
	order, err := s.loadUserOrder(ctx, userID, orderNo)
	if err != nil {
		return nil, nil, err
	}
	if order.PaymentMethod == enums.PaymentMethodCOD {
		return nil, nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "cash on delivery orders are not paid online")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderParams{
		Amount:   toMinorUnits(order.Total),
		Currency: s.currency,
		Receipt:  order.OrderNo,
	})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create gateway order")
	}

	payment := models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		UserID:          &order.UserID,
		Provider:        enums.PaymentProviderRazorpay,
		ProviderOrderID: gatewayOrder.ID,
		Amount:          order.Total,
		Currency:        s.currency,
		Status:          enums.PaymentTxnStatusInitiated,
		Metadata:        paymentMetadata{GatewayOrder: gatewayOrder}.raw(),
	}
	if err := s.repo.Create(ctx, &payment); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}

	logCtx := s.logg.WithOrderNo(s.logg.WithUserID(ctx, userID.String()), order.OrderNo)
	s.logg.Info(logCtx, "gateway order created")
	return &payment, gatewayOrder, nil
}

// VerifyPayment settles a checkout callback. Repeated calls for an already
// verified payment return the stored result without emitting again.
func (s *service) VerifyPayment(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error) {
	if strings.TrimSpace(input.ProviderOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id required")
	}

	payment, err := s.repo.GetByProviderOrderID(ctx, input.ProviderOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get payment")
	}
	order, err := s.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	if payment.Status == enums.PaymentTxnStatusSuccess {
		return &VerifyResult{Payment: payment, Verified: true}, nil
	}

	if err := s.gateway.VerifySignature(input.ProviderOrderID, input.ProviderPaymentID, input.Signature); err != nil {
		if errors.Is(err, razorpay.ErrSignatureMismatch) {
			if markErr := s.markFailed(ctx, payment, order, "signature mismatch"); markErr != nil {
				return nil, markErr
			}
			return &VerifyResult{Payment: payment, Verified: false, Reason: "signature mismatch"}, nil
		}
		if markErr := s.markFailed(ctx, payment, order, err.Error()); markErr != nil {
			return nil, markErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "verify payment")
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		now := time.Now()
		payment.Status = enums.PaymentTxnStatusSuccess
		payment.ProviderPaymentID = &input.ProviderPaymentID
		payment.FailureReason = nil
		payment.VerifiedAt = &now
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment success")
		}

		if err := orderRepo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		if order.Status.CanTransitionTo(enums.OrderStatusConfirmed) {
			if err := orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusConfirmed); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
			}
			order.Status = enums.OrderStatusConfirmed
		}

		event := payloads.PaymentEvent{
			OrderID:   order.ID,
			OrderNo:   order.OrderNo,
			UserID:    order.UserID,
			PaymentID: payment.ID,
			Amount:    payment.Amount,
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			Topic:       enums.TopicPaymentEvents,
			EventType:   enums.EventPaymentSuccessful,
			AggregateID: order.ID,
			Actor:       &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer.String()},
			Data:        event,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderNo(s.logg.WithUserID(ctx, userID.String()), order.OrderNo)
	if detail, fetchErr := s.gateway.FetchPayment(ctx, input.ProviderPaymentID); fetchErr != nil {
		// Metadata only; the payment is already settled.
		s.logg.Warn(s.logg.WithField(logCtx, "error", fetchErr.Error()), "fetch payment detail failed")
	} else {
		logCtx = s.logg.WithField(logCtx, "gateway_status", detail.Status)
		var meta paymentMetadata
		if len(payment.Metadata) > 0 {
			_ = json.Unmarshal(payment.Metadata, &meta)
		}
		meta.GatewayPayment = detail
		payment.Metadata = meta.raw()
		if updateErr := s.repo.Update(ctx, payment); updateErr != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", updateErr.Error()), "store payment detail failed")
		}
	}
	s.logg.Info(logCtx, "payment verified")
	return &VerifyResult{Payment: payment, Verified: true}, nil
}

// markFailed records a failed attempt and flags the order, emitting a
// payment_failed event in the same transaction.
func (s *service) markFailed(ctx context.Context, payment *models.Payment, order *models.Order, reason string) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		payment.Status = enums.PaymentTxnStatusFailed
		payment.FailureReason = &reason
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		if err := orderRepo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusFailed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order payment failed")
		}
		order.PaymentStatus = enums.PaymentStatusFailed

		event := payloads.PaymentEvent{
			OrderID:   order.ID,
			OrderNo:   order.OrderNo,
			UserID:    order.UserID,
			PaymentID: payment.ID,
			Amount:    payment.Amount,
			Reason:    reason,
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			Topic:       enums.TopicPaymentEvents,
			EventType:   enums.EventPaymentFailed,
			AggregateID: order.ID,
			Data:        event,
		})
	})
}

func (s *service) ListByOrder(ctx context.Context, userID uuid.UUID, orderNo string) ([]models.Payment, error) {
	order, err := s.loadUserOrder(ctx, userID, orderNo)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

func (s *service) loadUserOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
