package payments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/internal/orders"
	dbpkg "github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox"
	"github.com/pizzabox/pizzabox-backend/pkg/razorpay"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY, order_no TEXT NOT NULL UNIQUE, user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending', payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL, subtotal NUMERIC NOT NULL, tax NUMERIC NOT NULL,
  delivery_charge NUMERIC NOT NULL, total NUMERIC NOT NULL,
  delivery_address TEXT NOT NULL, notes TEXT, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE order_items (
  id TEXT PRIMARY KEY, order_id TEXT NOT NULL, pizza_id TEXT NOT NULL,
  pizza_name TEXT NOT NULL, size_name TEXT NOT NULL, crust_name TEXT NOT NULL,
  base_price NUMERIC NOT NULL, size_multiplier NUMERIC NOT NULL, crust_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL, unit_price NUMERIC NOT NULL, line_total NUMERIC NOT NULL);`,
		`CREATE TABLE order_item_toppings (
  id TEXT PRIMARY KEY, order_item_id TEXT NOT NULL, topping_id TEXT NOT NULL,
  name TEXT NOT NULL, price NUMERIC NOT NULL);`,
		`CREATE TABLE payments (
  id TEXT PRIMARY KEY, order_id TEXT NOT NULL, user_id TEXT, provider TEXT NOT NULL DEFAULT 'razorpay',
  provider_order_id TEXT NOT NULL UNIQUE, provider_payment_id TEXT,
  amount NUMERIC NOT NULL, currency TEXT NOT NULL DEFAULT 'INR',
  status TEXT NOT NULL DEFAULT 'initiated', failure_reason TEXT, metadata TEXT, verified_at DATETIME,
  created_at DATETIME, updated_at DATETIME);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// stubGateway fakes the provider. createErr and verifyErr steer the outcome.
type stubGateway struct {
	created   []razorpay.CreateOrderParams
	createErr error
	verifyErr error
	nextOrder int
}

func (g *stubGateway) CreateOrder(_ context.Context, params razorpay.CreateOrderParams) (*razorpay.Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextOrder++
	g.created = append(g.created, params)
	return &razorpay.Order{
		ID:       fmt.Sprintf("order_stub%d", g.nextOrder),
		Amount:   params.Amount,
		Currency: params.Currency,
		Receipt:  params.Receipt,
		Status:   "created",
	}, nil
}

func (g *stubGateway) FetchPayment(_ context.Context, paymentID string) (*razorpay.Payment, error) {
	return &razorpay.Payment{ID: paymentID, Status: "captured"}, nil
}

func (g *stubGateway) VerifySignature(_, _, _ string) error {
	return g.verifyErr
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	r.events = append(r.events, event)
	return nil
}

type paymentFixture struct {
	svc     Service
	gateway *stubGateway
	emitter *recordingEmitter
	conn    *gorm.DB
	userID  uuid.UUID
	order   *models.Order
}

func newPaymentFixture(t *testing.T, method enums.PaymentMethod) *paymentFixture {
	t.Helper()
	conn := setupPaymentTestDB(t)
	gateway := &stubGateway{}
	emitter := &recordingEmitter{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &bytes.Buffer{}})

	svc, err := NewService(dbpkg.FromConn(conn), NewRepository(conn), orders.NewRepository(conn), gateway, emitter, "INR", logg)
	require.NoError(t, err)

	userID := uuid.New()
	order := &models.Order{
		ID:              uuid.New(),
		OrderNo:         "PBX-0AB1C2D3",
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   method,
		Subtotal:        decimal.RequireFromString("32.00"),
		Tax:             decimal.RequireFromString("5.76"),
		DeliveryCharge:  decimal.RequireFromString("50.00"),
		Total:           decimal.RequireFromString("87.76"),
		DeliveryAddress: "12 MG Road, Bengaluru, Karnataka, 560001 (9999999999)",
	}
	require.NoError(t, orders.NewRepository(conn).Create(context.Background(), order))

	return &paymentFixture{svc: svc, gateway: gateway, emitter: emitter, conn: conn, userID: userID, order: order}
}

func (f *paymentFixture) initiate(t *testing.T) *models.Payment {
	t.Helper()
	payment, gatewayOrder, err := f.svc.CreateGatewayOrder(context.Background(), f.userID, f.order.OrderNo)
	require.NoError(t, err)
	require.NotNil(t, gatewayOrder)
	return payment
}

func TestCreateGatewayOrderConvertsToPaise(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodUPI)

	payment := f.initiate(t)

	assert.Equal(t, enums.PaymentTxnStatusInitiated, payment.Status)
	assert.Equal(t, "order_stub1", payment.ProviderOrderID)
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("87.76")))
	require.NotNil(t, payment.UserID)
	assert.Equal(t, f.userID, *payment.UserID)
	assert.Contains(t, string(payment.Metadata), "order_stub1")

	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, int64(8776), f.gateway.created[0].Amount)
	assert.Equal(t, "INR", f.gateway.created[0].Currency)
	assert.Equal(t, f.order.OrderNo, f.gateway.created[0].Receipt)
}

func TestCreateGatewayOrderRejectsCOD(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodCOD)

	_, _, err := f.svc.CreateGatewayOrder(context.Background(), f.userID, f.order.OrderNo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBusinessRule, pkgerrors.As(err).Code())
}

func TestCreateGatewayOrderFailureLeavesNoRow(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodCard)
	f.gateway.createErr = errors.New("gateway down")

	_, _, err := f.svc.CreateGatewayOrder(context.Background(), f.userID, f.order.OrderNo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, f.conn.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestVerifyPaymentSuccess(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodUPI)
	ctx := context.Background()
	payment := f.initiate(t)

	result, err := f.svc.VerifyPayment(ctx, f.userID, VerifyInput{
		ProviderOrderID:   payment.ProviderOrderID,
		ProviderPaymentID: "pay_123",
		Signature:         "sig",
	})
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, enums.PaymentTxnStatusSuccess, result.Payment.Status)
	require.NotNil(t, result.Payment.VerifiedAt)

	reloaded, err := orders.NewRepository(f.conn).GetByID(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.TopicPaymentEvents, f.emitter.events[0].Topic)
	assert.Equal(t, enums.EventPaymentSuccessful, f.emitter.events[0].EventType)

	// the fetched provider payment is folded into the stored metadata
	stored, err := NewRepository(f.conn).GetByProviderOrderID(ctx, payment.ProviderOrderID)
	require.NoError(t, err)
	assert.Contains(t, string(stored.Metadata), "gateway_order")
	assert.Contains(t, string(stored.Metadata), "captured")
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodUPI)
	ctx := context.Background()
	payment := f.initiate(t)

	input := VerifyInput{ProviderOrderID: payment.ProviderOrderID, ProviderPaymentID: "pay_123", Signature: "sig"}
	_, err := f.svc.VerifyPayment(ctx, f.userID, input)
	require.NoError(t, err)

	// a replayed callback returns verified without emitting again
	result, err := f.svc.VerifyPayment(ctx, f.userID, input)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Len(t, f.emitter.events, 1)
}

func TestVerifyPaymentSignatureMismatch(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodUPI)
	ctx := context.Background()
	payment := f.initiate(t)
	f.gateway.verifyErr = razorpay.ErrSignatureMismatch

	result, err := f.svc.VerifyPayment(ctx, f.userID, VerifyInput{
		ProviderOrderID:   payment.ProviderOrderID,
		ProviderPaymentID: "pay_123",
		Signature:         "forged",
	})
	require.NoError(t, err, "a mismatch is an outcome, not an error")
	assert.False(t, result.Verified)
	assert.Equal(t, enums.PaymentTxnStatusFailed, result.Payment.Status)

	reloaded, err := orders.NewRepository(f.conn).GetByID(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, reloaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status, "fulfillment status is untouched")

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventPaymentFailed, f.emitter.events[0].EventType)
}

func TestVerifyPaymentTransportErrorPropagates(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodUPI)
	payment := f.initiate(t)
	f.gateway.verifyErr = errors.New("gateway timeout")

	_, err := f.svc.VerifyPayment(context.Background(), f.userID, VerifyInput{
		ProviderOrderID:   payment.ProviderOrderID,
		ProviderPaymentID: "pay_123",
		Signature:         "sig",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventPaymentFailed, f.emitter.events[0].EventType)
}

func TestVerifyPaymentScopedToOwner(t *testing.T) {
	f := newPaymentFixture(t, enums.PaymentMethodUPI)
	payment := f.initiate(t)

	_, err := f.svc.VerifyPayment(context.Background(), uuid.New(), VerifyInput{
		ProviderOrderID:   payment.ProviderOrderID,
		ProviderPaymentID: "pay_123",
		Signature:         "sig",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
