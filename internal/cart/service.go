package cart

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/internal/catalog"
	"github.com/pizzabox/pizzabox-backend/internal/pricing"
	"github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

const maxItemQuantity = 99

// Owner identifies whose cart an operation targets. Exactly one of UserID or
// GuestToken is set.
type Owner struct {
	UserID     *uuid.UUID
	GuestToken string
}

func (o Owner) valid() bool {
	return (o.UserID != nil && *o.UserID != uuid.Nil) != (strings.TrimSpace(o.GuestToken) != "")
}

// AddItemInput describes a line being added to a cart.
type AddItemInput struct {
	PizzaID    uuid.UUID
	SizeID     uuid.UUID
	CrustID    uuid.UUID
	ToppingIDs []uuid.UUID
	Quantity   int
}

// Service owns all cart mutations. Every write happens inside one transaction
// that also recomputes the cart totals.
type Service interface {
	GetOrCreateGuestCart(ctx context.Context, token string) (*models.Cart, error)
	GetOrCreateUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, owner Owner) (*models.Cart, error)
	MergeGuestIntoUser(ctx context.Context, guestToken string, userID uuid.UUID) (*models.Cart, error)
}

// NewGuestToken returns a fresh opaque token for an anonymous cart.
func NewGuestToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type service struct {
	client      *db.Client
	repo        Repository
	catalog     catalog.Service
	catalogRepo catalog.Repository
	logg        *logger.Logger
}

// NewService wires cart dependencies.
func NewService(client *db.Client, repo Repository, catalogSvc catalog.Service, catalogRepo catalog.Repository, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if catalogSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog service required")
	}
	if catalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{client: client, repo: repo, catalog: catalogSvc, catalogRepo: catalogRepo, logg: logg}, nil
}

func (s *service) GetOrCreateGuestCart(ctx context.Context, token string) (*models.Cart, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest token required")
	}
	cart, err := s.repo.GetByGuestToken(ctx, token)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get guest cart")
	}

	fresh := models.Cart{GuestToken: &token}
	if err := s.repo.Create(ctx, &fresh); err != nil {
		// lost a race against another request holding the same token
		if db.IsUniqueViolation(err, "uq_carts_guest_token") {
			return s.repo.GetByGuestToken(ctx, token)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest cart")
	}
	return &fresh, nil
}

func (s *service) GetOrCreateUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cart, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get user cart")
	}

	fresh := models.Cart{UserID: &userID}
	if err := s.repo.Create(ctx, &fresh); err != nil {
		if db.IsUniqueViolation(err, "uq_carts_user_id") {
			return s.repo.GetByUserID(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user cart")
	}
	return &fresh, nil
}

func (s *service) loadCart(ctx context.Context, repo Repository, owner Owner) (*models.Cart, error) {
	if !owner.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one cart owner required")
	}
	var (
		cart *models.Cart
		err  error
	)
	if owner.UserID != nil {
		cart, err = repo.GetByUserID(ctx, *owner.UserID)
	} else {
		cart, err = repo.GetByGuestToken(ctx, owner.GuestToken)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*models.Cart, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Quantity > maxItemQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
	}

	resolved, err := s.catalog.ResolveSelection(ctx, catalog.Selection{
		PizzaID:    input.PizzaID,
		SizeID:     input.SizeID,
		CrustID:    input.CrustID,
		ToppingIDs: input.ToppingIDs,
	})
	if err != nil {
		return nil, err
	}

	toppingPrices := make([]decimal.Decimal, 0, len(resolved.Toppings))
	toppingIDs := make([]uuid.UUID, 0, len(resolved.Toppings))
	for _, topping := range resolved.Toppings {
		toppingPrices = append(toppingPrices, topping.Price)
		toppingIDs = append(toppingIDs, topping.ID)
	}
	unitPrice := pricing.UnitPrice(pricing.Components{
		BasePrice:      resolved.Pizza.BasePrice,
		SizeMultiplier: resolved.Size.Multiplier,
		CrustPrice:     resolved.Crust.Price,
		ToppingPrices:  toppingPrices,
	})

	var out *models.Cart
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, owner)
		if err != nil {
			return err
		}

		if match := findEquivalentItem(cart.Items, input.PizzaID, input.SizeID, input.CrustID, toppingIDs); match != nil {
			// summed quantities clamp at the per-line limit, same as the
			// guest-cart merge
			match.Quantity += input.Quantity
			if match.Quantity > maxItemQuantity {
				match.Quantity = maxItemQuantity
			}
			match.LineTotal = pricing.Line{UnitPrice: match.UnitPrice, Quantity: match.Quantity}.LineTotal()
			if err := repo.UpdateItem(ctx, match); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		} else {
			item := models.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				PizzaID:   input.PizzaID,
				SizeID:    input.SizeID,
				CrustID:   input.CrustID,
				Quantity:  input.Quantity,
				UnitPrice: unitPrice,
				LineTotal: pricing.Line{UnitPrice: unitPrice, Quantity: input.Quantity}.LineTotal(),
			}
			if err := repo.CreateItem(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
			if err := repo.ReplaceItemToppings(ctx, item.ID, toppingIDs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach cart item toppings")
			}
		}

		out, err = s.recompute(ctx, tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if quantity > maxItemQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
	}

	var out *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, owner)
		if err != nil {
			return err
		}
		item, err := repo.GetItem(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get cart item")
		}

		item.Quantity = quantity
		item.LineTotal = pricing.Line{UnitPrice: item.UnitPrice, Quantity: quantity}.LineTotal()
		if err := repo.UpdateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}

		out, err = s.recompute(ctx, tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*models.Cart, error) {
	var out *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, owner)
		if err != nil {
			return err
		}
		if _, err := repo.GetItem(ctx, cart.ID, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get cart item")
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}

		out, err = s.recompute(ctx, tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Clear(ctx context.Context, owner Owner) (*models.Cart, error) {
	var out *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, owner)
		if err != nil {
			return err
		}
		if err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		out, err = s.recompute(ctx, tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MergeGuestIntoUser folds a guest cart into the user's cart at login.
// Equivalent lines merge by summing quantities; the guest cart is deleted.
func (s *service) MergeGuestIntoUser(ctx context.Context, guestToken string, userID uuid.UUID) (*models.Cart, error) {
	guestToken = strings.TrimSpace(guestToken)
	if guestToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest token required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	userCart, err := s.GetOrCreateUserCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out *models.Cart
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestCart, err := repo.GetByGuestToken(ctx, guestToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// nothing to merge
				out = userCart
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get guest cart")
		}

		target, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get user cart")
		}

		for i := range guestCart.Items {
			guestItem := guestCart.Items[i]
			toppingIDs := toppingIDsOf(guestItem)
			if match := findEquivalentItem(target.Items, guestItem.PizzaID, guestItem.SizeID, guestItem.CrustID, toppingIDs); match != nil {
				merged := match.Quantity + guestItem.Quantity
				if merged > maxItemQuantity {
					merged = maxItemQuantity
				}
				match.Quantity = merged
				match.LineTotal = pricing.Line{UnitPrice: match.UnitPrice, Quantity: match.Quantity}.LineTotal()
				if err := repo.UpdateItem(ctx, match); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
				}
				continue
			}

			moved := models.CartItem{
				ID:        uuid.New(),
				CartID:    target.ID,
				PizzaID:   guestItem.PizzaID,
				SizeID:    guestItem.SizeID,
				CrustID:   guestItem.CrustID,
				Quantity:  guestItem.Quantity,
				UnitPrice: guestItem.UnitPrice,
				LineTotal: guestItem.LineTotal,
			}
			if err := repo.CreateItem(ctx, &moved); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart item")
			}
			if err := repo.ReplaceItemToppings(ctx, moved.ID, toppingIDs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart item toppings")
			}
		}

		if err := repo.Delete(ctx, guestCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete guest cart")
		}

		out, err = s.recompute(ctx, tx, Owner{UserID: &userID})
		return err
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "cart_id": out.ID.String()})
	s.logg.Info(logCtx, "guest cart merged into user cart")
	return out, nil
}

// recompute reprices every line against the current catalog rows and
// re-derives the cart totals. Stored unit prices are only a cache: admin menu
// edits must show up on the next cart recalculation, so the catalog is
// authoritative here.
func (s *service) recompute(ctx context.Context, tx *gorm.DB, owner Owner) (*models.Cart, error) {
	repo := s.repo.WithTx(tx)
	catRepo := s.catalogRepo.WithTx(tx)
	cart, err := s.loadCart(ctx, repo, owner)
	if err != nil {
		return nil, err
	}
	lines := make([]pricing.Line, 0, len(cart.Items))
	for i := range cart.Items {
		item := &cart.Items[i]
		unitPrice, err := s.linePrice(ctx, catRepo, *item)
		if err != nil {
			return nil, err
		}
		lineTotal := pricing.Line{UnitPrice: unitPrice, Quantity: item.Quantity}.LineTotal()
		if !unitPrice.Equal(item.UnitPrice) || !lineTotal.Equal(item.LineTotal) {
			item.UnitPrice = unitPrice
			item.LineTotal = lineTotal
			if err := repo.UpdateItem(ctx, item); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reprice cart item")
			}
		}
		lines = append(lines, pricing.Line{UnitPrice: unitPrice, Quantity: item.Quantity})
	}
	totals := pricing.ComputeTotals(lines)
	if err := repo.UpdateTotals(ctx, cart.ID, totals); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart totals")
	}
	cart.Subtotal = totals.Subtotal
	cart.Tax = totals.Tax
	cart.DeliveryCharge = totals.DeliveryCharge
	cart.Total = totals.Total
	return cart, nil
}

// linePrice computes a line's unit price from the catalog rows it refers to.
func (s *service) linePrice(ctx context.Context, repo catalog.Repository, item models.CartItem) (decimal.Decimal, error) {
	pizza, err := repo.GetPizza(ctx, item.PizzaID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get pizza for cart line")
	}
	size, err := repo.GetSize(ctx, item.SizeID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get size for cart line")
	}
	crust, err := repo.GetCrust(ctx, item.CrustID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get crust for cart line")
	}
	toppingIDs := toppingIDsOf(item)
	toppings, err := repo.GetToppings(ctx, toppingIDs)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get toppings for cart line")
	}
	if len(toppings) != len(toppingIDs) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "cart line refers to a missing topping")
	}
	toppingPrices := make([]decimal.Decimal, 0, len(toppings))
	for _, topping := range toppings {
		toppingPrices = append(toppingPrices, topping.Price)
	}
	return pricing.UnitPrice(pricing.Components{
		BasePrice:      pizza.BasePrice,
		SizeMultiplier: size.Multiplier,
		CrustPrice:     crust.Price,
		ToppingPrices:  toppingPrices,
	}), nil
}

func toppingIDsOf(item models.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(item.Toppings))
	for _, link := range item.Toppings {
		ids = append(ids, link.ToppingID)
	}
	return ids
}

// findEquivalentItem returns the cart line with the same pizza, size, crust
// and topping set, or nil.
func findEquivalentItem(items []models.CartItem, pizzaID, sizeID, crustID uuid.UUID, toppingIDs []uuid.UUID) *models.CartItem {
	want := toppingKey(toppingIDs)
	for i := range items {
		item := &items[i]
		if item.PizzaID != pizzaID || item.SizeID != sizeID || item.CrustID != crustID {
			continue
		}
		if toppingKey(toppingIDsOf(*item)) == want {
			return item
		}
	}
	return nil
}

func toppingKey(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		sorted = append(sorted, id.String())
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
