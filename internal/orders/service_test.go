package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/internal/address"
	"github.com/pizzabox/pizzabox-backend/internal/catalog"
	dbpkg "github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox/payloads"
	"github.com/pizzabox/pizzabox-backend/pkg/pagination"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE pizzas (
  id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE, description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL, base_price NUMERIC NOT NULL, image_url TEXT,
  is_available INTEGER NOT NULL DEFAULT 1, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE pizza_toppings (id TEXT PRIMARY KEY, pizza_id TEXT NOT NULL, topping_id TEXT NOT NULL, position INTEGER NOT NULL DEFAULT 0);`,
		`CREATE TABLE sizes (
  id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE, multiplier NUMERIC NOT NULL,
  is_available INTEGER NOT NULL DEFAULT 1, created_at DATETIME);`,
		`CREATE TABLE crusts (
  id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE, price NUMERIC NOT NULL,
  is_available INTEGER NOT NULL DEFAULT 1, created_at DATETIME);`,
		`CREATE TABLE toppings (
  id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE, category TEXT NOT NULL,
  price NUMERIC NOT NULL, is_available INTEGER NOT NULL DEFAULT 1, created_at DATETIME);`,
		`CREATE TABLE addresses (
  id TEXT PRIMARY KEY, user_id TEXT NOT NULL, label TEXT NOT NULL,
  line1 TEXT NOT NULL, line2 TEXT, city TEXT NOT NULL, state TEXT NOT NULL,
  pincode TEXT NOT NULL, phone TEXT NOT NULL, is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME, updated_at DATETIME);`,
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
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	err = conn.Callback().Create().Before("gorm:create").Register("test_assign_id", func(db *gorm.DB) {
		switch dest := db.Statement.Dest.(type) {
		case *models.Pizza:
			if dest.ID == uuid.Nil {
				dest.ID = uuid.New()
			}
		case *models.Size:
			if dest.ID == uuid.Nil {
				dest.ID = uuid.New()
			}
		case *models.Crust:
			if dest.ID == uuid.Nil {
				dest.ID = uuid.New()
			}
		case *models.Topping:
			if dest.ID == uuid.Nil {
				dest.ID = uuid.New()
			}
		case *[]models.PizzaTopping:
			for i := range *dest {
				if (*dest)[i].ID == uuid.Nil {
					(*dest)[i].ID = uuid.New()
				}
			}
		}
	})
	require.NoError(t, err)
	return conn
}

// recordingEmitter captures emitted domain events without touching storage.
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

func (r *recordingEmitter) last() outbox.DomainEvent {
	return r.events[len(r.events)-1]
}

type orderFixture struct {
	svc       Service
	catalog   catalog.Service
	addresses address.Service
	emitter   *recordingEmitter
	conn      *gorm.DB
	userID    uuid.UUID
	addressID uuid.UUID
	sel       catalog.Selection
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	conn := setupOrderTestDB(t)
	client := dbpkg.FromConn(conn)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &bytes.Buffer{}})

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	addressSvc, err := address.NewService(client, address.NewRepository(conn))
	require.NoError(t, err)

	emitter := &recordingEmitter{}
	svc, err := NewService(client, NewRepository(conn), catalog.NewRepository(conn), addressSvc, emitter, logg)
	require.NoError(t, err)

	ctx := context.Background()
	pizza, err := catalogSvc.CreatePizza(ctx, catalog.PizzaInput{Name: "Margherita", Category: enums.PizzaCategoryVeg, BasePrice: decimal.RequireFromString("10.00")})
	require.NoError(t, err)
	size, err := catalogSvc.CreateSize(ctx, catalog.SizeInput{Name: "Medium", Multiplier: decimal.RequireFromString("1.0")})
	require.NoError(t, err)
	crust, err := catalogSvc.CreateCrust(ctx, catalog.CrustInput{Name: "Cheese Burst", Price: decimal.RequireFromString("3.00")})
	require.NoError(t, err)
	olives, err := catalogSvc.CreateTopping(ctx, catalog.ToppingInput{Name: "Olives", Category: enums.ToppingCategoryVegetable, Price: decimal.RequireFromString("1.50")})
	require.NoError(t, err)
	jalapenos, err := catalogSvc.CreateTopping(ctx, catalog.ToppingInput{Name: "Jalapenos", Category: enums.ToppingCategoryVegetable, Price: decimal.RequireFromString("1.50")})
	require.NoError(t, err)

	userID := uuid.New()
	addr, err := addressSvc.Create(ctx, userID, address.Input{
		Label: "Home", Line1: "12 MG Road", City: "Bengaluru", State: "Karnataka",
		Pincode: "560001", Phone: "9999999999",
	})
	require.NoError(t, err)

	return &orderFixture{
		svc:       svc,
		catalog:   catalogSvc,
		addresses: addressSvc,
		emitter:   emitter,
		conn:      conn,
		userID:    userID,
		addressID: addr.ID,
		sel: catalog.Selection{
			PizzaID:    pizza.ID,
			SizeID:     size.ID,
			CrustID:    crust.ID,
			ToppingIDs: []uuid.UUID{olives.ID, jalapenos.ID},
		},
	}
}

// item builds one two-topping checkout line from the seeded catalog.
func (f *orderFixture) item(quantity int) ItemInput {
	return ItemInput{
		PizzaID:    f.sel.PizzaID,
		SizeID:     f.sel.SizeID,
		CrustID:    f.sel.CrustID,
		ToppingIDs: f.sel.ToppingIDs,
		Quantity:   quantity,
	}
}

func (f *orderFixture) placeOrder(t *testing.T, quantity int) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		AddressID:     f.addressID,
		PaymentMethod: enums.PaymentMethodCOD,
		Items:         []ItemInput{f.item(quantity)},
	})
	require.NoError(t, err)
	return order
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestCreateOrderSnapshotsItemsAndEmits(t *testing.T) {
	f := newOrderFixture(t)

	order := f.placeOrder(t, 2)

	assert.True(t, strings.HasPrefix(order.OrderNo, "PBX-"), "order no %s", order.OrderNo)
	assert.Len(t, order.OrderNo, len("PBX-")+8)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.True(t, order.Subtotal.Equal(dec("32.00")), "subtotal %s", order.Subtotal)
	assert.True(t, order.Tax.Equal(dec("5.76")), "tax %s", order.Tax)
	assert.True(t, order.DeliveryCharge.Equal(dec("50.00")), "delivery %s", order.DeliveryCharge)
	assert.True(t, order.Total.Equal(dec("87.76")), "total %s", order.Total)
	assert.Contains(t, order.DeliveryAddress, "12 MG Road")

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, "Margherita", item.PizzaName)
	assert.Equal(t, "Medium", item.SizeName)
	assert.Equal(t, "Cheese Burst", item.CrustName)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(dec("16.00")), "unit %s", item.UnitPrice)

	require.Len(t, f.emitter.events, 1)
	event := f.emitter.last()
	assert.Equal(t, enums.TopicOrderEvents, event.Topic)
	assert.Equal(t, enums.EventOrderCreated, event.EventType)
	assert.Equal(t, order.ID, event.AggregateID)
}

func TestCreateOrderSnapshotSurvivesMenuEdit(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, 1)

	// rename and reprice the pizza after the order was placed
	updated, err := f.catalog.UpdatePizza(ctx, f.sel.PizzaID, catalog.PizzaInput{
		Name: "Margherita Royale", Category: enums.PizzaCategoryVeg,
		BasePrice: decimal.RequireFromString("99.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "Margherita Royale", updated.Name)

	reloaded, err := f.svc.GetUserOrder(ctx, f.userID, order.OrderNo)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "Margherita", reloaded.Items[0].PizzaName)
	assert.True(t, reloaded.Items[0].BasePrice.Equal(dec("10.00")))
	assert.True(t, reloaded.Items[0].UnitPrice.Equal(dec("16.00")))
	require.Len(t, reloaded.Items[0].Toppings, 2)
}

func TestCreateOrderWithoutItemsFails(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		AddressID:     f.addressID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateOrderUnknownPizzaFails(t *testing.T) {
	f := newOrderFixture(t)

	bad := f.item(1)
	bad.PizzaID = uuid.New()
	_, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		AddressID:     f.addressID,
		PaymentMethod: enums.PaymentMethodCOD,
		Items:         []ItemInput{bad},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCreateOrderUnavailableSizeFails(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.catalog.SetSizeAvailability(ctx, f.sel.SizeID, false)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.userID, CreateInput{
		AddressID:     f.addressID,
		PaymentMethod: enums.PaymentMethodCOD,
		Items:         []ItemInput{f.item(1)},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBusinessRule, pkgerrors.As(err).Code())
}

func TestCreateOrderUnknownAddressFails(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodCOD,
		Items:         []ItemInput{f.item(1)},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetUserOrderScopedToOwner(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, 1)

	_, err := f.svc.GetUserOrder(ctx, uuid.New(), order.OrderNo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	got, err := f.svc.GetUserOrder(ctx, f.userID, order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestCancelPendingOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, 1)

	cancelled, err := f.svc.CancelUserOrder(ctx, f.userID, order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	event := f.emitter.last()
	assert.Equal(t, enums.EventOrderCancelled, event.EventType)

	// cancelled is terminal
	_, err = f.svc.CancelUserOrder(ctx, f.userID, order.OrderNo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCancelPaidOrderForbidden(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, 1)

	repo := NewRepository(f.conn)
	require.NoError(t, repo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid))

	_, err := f.svc.CancelUserOrder(ctx, f.userID, order.OrderNo)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBusinessRule, pkgerrors.As(err).Code())
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, 1)

	// pending cannot jump straight to preparing
	_, err := f.svc.UpdateStatus(ctx, order.OrderNo, enums.OrderStatusPreparing)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	for _, next := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusPreparing,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	} {
		updated, err := f.svc.UpdateStatus(ctx, order.OrderNo, next)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
		assert.Equal(t, enums.EventOrderStatusChanged, f.emitter.last().EventType)
	}

	// delivered is terminal
	_, err = f.svc.UpdateStatus(ctx, order.OrderNo, enums.OrderStatusCancelled)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestUpdateStatusEventCarriesStatusMessage(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, 1)

	_, err := f.svc.UpdateStatus(ctx, order.OrderNo, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, order.OrderNo, enums.OrderStatusPreparing)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, order.OrderNo, enums.OrderStatusOutForDelivery)
	require.NoError(t, err)

	event, ok := f.emitter.last().Data.(payloads.OrderStatusChangedEvent)
	require.True(t, ok, "expected a status change payload, got %T", f.emitter.last().Data)
	assert.Equal(t, "Your order "+order.OrderNo+" is out for delivery.", event.StatusMessage)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status_message"`)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	first := f.placeOrder(t, 1)
	second := f.placeOrder(t, 1)

	_, err := f.svc.UpdateStatus(ctx, second.OrderNo, enums.OrderStatusConfirmed)
	require.NoError(t, err)

	status := enums.OrderStatusPending
	result, err := f.svc.List(ctx, ListFilters{Status: &status}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, first.ID, result.Items[0].ID)
	assert.Equal(t, int64(1), result.Total)

	all, err := f.svc.List(ctx, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
}

func TestStatsCountsPaidRevenue(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	paid := f.placeOrder(t, 2)
	f.placeOrder(t, 1)

	repo := NewRepository(f.conn)
	require.NoError(t, repo.UpdatePaymentStatus(ctx, paid.ID, enums.PaymentStatusPaid))

	stats, err := f.svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.ByStatus[enums.OrderStatusPending])
	assert.True(t, stats.PaidRevenue.Equal(dec("87.76")), "revenue %s", stats.PaidRevenue)
	assert.Equal(t, int64(2), stats.OrdersToday)
}
