package cart

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/internal/catalog"
	dbpkg "github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE carts (
  id TEXT PRIMARY KEY, user_id TEXT, guest_token TEXT,
  subtotal NUMERIC NOT NULL DEFAULT 0, tax NUMERIC NOT NULL DEFAULT 0,
  delivery_charge NUMERIC NOT NULL DEFAULT 0, total NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME, updated_at DATETIME);`,
		`CREATE UNIQUE INDEX uq_carts_user_id ON carts(user_id) WHERE user_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX uq_carts_guest_token ON carts(guest_token) WHERE guest_token IS NOT NULL;`,
		`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY, cart_id TEXT NOT NULL, pizza_id TEXT NOT NULL,
  size_id TEXT NOT NULL, crust_id TEXT NOT NULL, quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL, line_total NUMERIC NOT NULL,
  created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE cart_item_toppings (id TEXT PRIMARY KEY, cart_item_id TEXT NOT NULL, topping_id TEXT NOT NULL);`,
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
		case *models.Cart:
			if dest.ID == uuid.Nil {
				dest.ID = uuid.New()
			}
		case *models.CartItem:
			if dest.ID == uuid.Nil {
				dest.ID = uuid.New()
			}
		case *models.CartItemTopping:
			if dest.ID == uuid.Nil {
				dest.ID = uuid.New()
			}
		}
	})
	require.NoError(t, err)
	return conn
}

type cartFixture struct {
	svc     Service
	catalog catalog.Service
	conn    *gorm.DB
	sel     catalog.Selection
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	conn := setupCartTestDB(t)

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &bytes.Buffer{}})
	svc, err := NewService(dbpkg.FromConn(conn), NewRepository(conn), catalogSvc, catalogRepo, logg)
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

	return &cartFixture{
		svc:     svc,
		catalog: catalogSvc,
		conn:    conn,
		sel: catalog.Selection{
			PizzaID:    pizza.ID,
			SizeID:     size.ID,
			CrustID:    crust.ID,
			ToppingIDs: []uuid.UUID{olives.ID, jalapenos.ID},
		},
	}
}

func (f *cartFixture) addInput(quantity int) AddItemInput {
	return AddItemInput{
		PizzaID:    f.sel.PizzaID,
		SizeID:     f.sel.SizeID,
		CrustID:    f.sel.CrustID,
		ToppingIDs: f.sel.ToppingIDs,
		Quantity:   quantity,
	}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestAddItemMergesEquivalentLines(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, owner, f.addInput(1))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	// same pizza/size/crust/toppings merges into the existing line
	cart, err = f.svc.AddItem(ctx, owner, f.addInput(2))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].UnitPrice.Equal(dec("16.00")), "unit %s", cart.Items[0].UnitPrice)
	assert.True(t, cart.Items[0].LineTotal.Equal(dec("48.00")), "line %s", cart.Items[0].LineTotal)
}

func TestAddItemDifferentToppingsStaysSeparate(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, owner, f.addInput(1))
	require.NoError(t, err)

	noToppings := f.addInput(1)
	noToppings.ToppingIDs = nil
	cart, err := f.svc.AddItem(ctx, owner, noToppings)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestCartTotals(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, owner, f.addInput(2))
	require.NoError(t, err)

	assert.True(t, cart.Subtotal.Equal(dec("32.00")), "subtotal %s", cart.Subtotal)
	assert.True(t, cart.Tax.Equal(dec("5.76")), "tax %s", cart.Tax)
	assert.True(t, cart.DeliveryCharge.Equal(dec("50.00")), "delivery %s", cart.DeliveryCharge)
	assert.True(t, cart.Total.Equal(dec("87.76")), "total %s", cart.Total)
}

func TestRemoveLastItemZeroesTotals(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, owner, f.addInput(1))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cart, err = f.svc.RemoveItem(ctx, owner, cart.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Subtotal.IsZero())
	assert.True(t, cart.Tax.IsZero())
	assert.True(t, cart.DeliveryCharge.IsZero(), "delivery charge must reset with the last item")
	assert.True(t, cart.Total.IsZero())
}

func TestUpdateItemQuantity(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, owner, f.addInput(1))
	require.NoError(t, err)

	cart, err = f.svc.UpdateItemQuantity(ctx, owner, cart.Items[0].ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.True(t, cart.Subtotal.Equal(dec("64.00")), "subtotal %s", cart.Subtotal)

	_, err = f.svc.UpdateItemQuantity(ctx, owner, cart.Items[0].ID, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.UpdateItemQuantity(ctx, owner, uuid.New(), 2)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRecalculationUsesCurrentCatalogPrices(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, owner, f.addInput(1))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.True(t, cart.Items[0].UnitPrice.Equal(dec("16.00")), "unit %s", cart.Items[0].UnitPrice)

	// admin reprices the pizza after the line was added
	_, err = f.catalog.UpdatePizza(ctx, f.sel.PizzaID, catalog.PizzaInput{BasePrice: dec("20.00")})
	require.NoError(t, err)

	cart, err = f.svc.UpdateItemQuantity(ctx, owner, cart.Items[0].ID, 2)
	require.NoError(t, err)
	assert.True(t, cart.Items[0].UnitPrice.Equal(dec("26.00")), "unit %s", cart.Items[0].UnitPrice)
	assert.True(t, cart.Items[0].LineTotal.Equal(dec("52.00")), "line %s", cart.Items[0].LineTotal)
	assert.True(t, cart.Subtotal.Equal(dec("52.00")), "subtotal %s", cart.Subtotal)
	assert.True(t, cart.Tax.Equal(dec("9.36")), "tax %s", cart.Tax)
	assert.True(t, cart.Total.Equal(dec("111.36")), "total %s", cart.Total)
}

func TestAddItemMergeClampsQuantityAtLimit(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, owner, f.addInput(60))
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, owner, f.addInput(60))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 99, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].LineTotal.Equal(dec("1584.00")), "line %s", cart.Items[0].LineTotal)
}

func TestClear(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	token := NewGuestToken()
	owner := Owner{GuestToken: token}

	_, err := f.svc.GetOrCreateGuestCart(ctx, token)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, owner, f.addInput(2))
	require.NoError(t, err)

	cart, err := f.svc.Clear(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestMergeGuestIntoUser(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	token := NewGuestToken()

	// guest cart: line A (with toppings) and line B (no toppings)
	_, err := f.svc.GetOrCreateGuestCart(ctx, token)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, Owner{GuestToken: token}, f.addInput(2))
	require.NoError(t, err)
	lineB := f.addInput(1)
	lineB.ToppingIDs = nil
	_, err = f.svc.AddItem(ctx, Owner{GuestToken: token}, lineB)
	require.NoError(t, err)

	// user cart: line A (equivalent) and line C (single topping)
	_, err = f.svc.GetOrCreateUserCart(ctx, userID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, Owner{UserID: &userID}, f.addInput(1))
	require.NoError(t, err)
	lineC := f.addInput(1)
	lineC.ToppingIDs = f.sel.ToppingIDs[:1]
	_, err = f.svc.AddItem(ctx, Owner{UserID: &userID}, lineC)
	require.NoError(t, err)

	merged, err := f.svc.MergeGuestIntoUser(ctx, token, userID)
	require.NoError(t, err)
	require.Len(t, merged.Items, 3)

	quantities := map[int]int{}
	for _, item := range merged.Items {
		quantities[len(item.Toppings)]++
		if len(item.Toppings) == 2 {
			assert.Equal(t, 3, item.Quantity, "equivalent lines should sum quantities")
		}
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, quantities)

	// guest cart is gone
	_, err = f.svc.AddItem(ctx, Owner{GuestToken: token}, f.addInput(1))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestMergeWithoutGuestCartIsNoop(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	merged, err := f.svc.MergeGuestIntoUser(ctx, "missing-token", userID)
	require.NoError(t, err)
	assert.Empty(t, merged.Items)
}
