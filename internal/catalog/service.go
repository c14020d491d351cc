package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
)

// Service exposes the menu to customers and catalog management to admins.
type Service interface {
	Menu(ctx context.Context) (*Menu, error)
	GetPizza(ctx context.Context, id uuid.UUID) (*models.Pizza, error)

	CreatePizza(ctx context.Context, input PizzaInput) (*models.Pizza, error)
	UpdatePizza(ctx context.Context, id uuid.UUID, input PizzaInput) (*models.Pizza, error)
	SetPizzaAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Pizza, error)
	CreateSize(ctx context.Context, input SizeInput) (*models.Size, error)
	SetSizeAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Size, error)
	CreateCrust(ctx context.Context, input CrustInput) (*models.Crust, error)
	SetCrustAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Crust, error)
	CreateTopping(ctx context.Context, input ToppingInput) (*models.Topping, error)

	ResolveSelection(ctx context.Context, sel Selection) (*ResolvedSelection, error)
}

// Menu is the full customer-facing catalog.
type Menu struct {
	Pizzas   []models.Pizza   `json:"pizzas"`
	Sizes    []models.Size    `json:"sizes"`
	Crusts   []models.Crust   `json:"crusts"`
	Toppings []models.Topping `json:"toppings"`
}

// PizzaInput carries admin-provided pizza fields. A nil DefaultToppingIDs
// leaves the default-topping set untouched on update; an empty slice clears it.
type PizzaInput struct {
	Name              string
	Description       string
	Category          enums.PizzaCategory
	BasePrice         decimal.Decimal
	ImageURL          *string
	DefaultToppingIDs []uuid.UUID
}

// SizeInput carries admin-provided size fields.
type SizeInput struct {
	Name       string
	Multiplier decimal.Decimal
}

// CrustInput carries admin-provided crust fields.
type CrustInput struct {
	Name  string
	Price decimal.Decimal
}

// ToppingInput carries admin-provided topping fields.
type ToppingInput struct {
	Name     string
	Category enums.ToppingCategory
	Price    decimal.Decimal
}

// Selection identifies one configurable pizza choice.
type Selection struct {
	PizzaID    uuid.UUID
	SizeID     uuid.UUID
	CrustID    uuid.UUID
	ToppingIDs []uuid.UUID
}

// ResolvedSelection carries the catalog rows behind a Selection. Resolution is
// all or nothing: one missing or unavailable piece fails the whole call.
type ResolvedSelection struct {
	Pizza    models.Pizza
	Size     models.Size
	Crust    models.Crust
	Toppings []models.Topping
}

type service struct {
	repo Repository
}

// NewService wires catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Menu(ctx context.Context) (*Menu, error) {
	pizzas, err := s.repo.ListPizzas(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pizzas")
	}
	sizes, err := s.repo.ListSizes(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sizes")
	}
	crusts, err := s.repo.ListCrusts(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list crusts")
	}
	toppings, err := s.repo.ListToppings(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list toppings")
	}
	return &Menu{Pizzas: pizzas, Sizes: sizes, Crusts: crusts, Toppings: toppings}, nil
}

func (s *service) GetPizza(ctx context.Context, id uuid.UUID) (*models.Pizza, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pizza id required")
	}
	pizza, err := s.repo.GetPizza(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pizza not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get pizza")
	}
	return pizza, nil
}

func (s *service) CreatePizza(ctx context.Context, input PizzaInput) (*models.Pizza, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pizza name required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid pizza category %q", input.Category))
	}
	if input.BasePrice.IsNegative() || input.BasePrice.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	}

	defaultIDs, err := s.checkToppingIDs(ctx, input.DefaultToppingIDs)
	if err != nil {
		return nil, err
	}

	pizza := models.Pizza{
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		BasePrice:   input.BasePrice,
		ImageURL:    input.ImageURL,
		IsAvailable: true,
	}
	if err := s.repo.CreatePizza(ctx, &pizza); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "pizza name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pizza")
	}
	if len(defaultIDs) > 0 {
		if err := s.repo.ReplaceDefaultToppings(ctx, pizza.ID, defaultIDs); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default toppings")
		}
		return s.GetPizza(ctx, pizza.ID)
	}
	return &pizza, nil
}

func (s *service) UpdatePizza(ctx context.Context, id uuid.UUID, input PizzaInput) (*models.Pizza, error) {
	pizza, err := s.GetPizza(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		pizza.Name = input.Name
	}
	if input.Description != "" {
		pizza.Description = input.Description
	}
	if input.Category != "" {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid pizza category %q", input.Category))
		}
		pizza.Category = input.Category
	}
	if !input.BasePrice.IsZero() {
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
		}
		pizza.BasePrice = input.BasePrice
	}
	if input.ImageURL != nil {
		pizza.ImageURL = input.ImageURL
	}

	if err := s.repo.UpdatePizza(ctx, pizza); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "pizza name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pizza")
	}
	if input.DefaultToppingIDs != nil {
		defaultIDs, err := s.checkToppingIDs(ctx, input.DefaultToppingIDs)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplaceDefaultToppings(ctx, pizza.ID, defaultIDs); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default toppings")
		}
		return s.GetPizza(ctx, pizza.ID)
	}
	return pizza, nil
}

// checkToppingIDs verifies every id refers to an existing topping. Resolution
// is all or nothing, matching ResolveSelection.
func (s *service) checkToppingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	deduped := dedupeIDs(ids)
	if len(deduped) == 0 {
		return nil, nil
	}
	toppings, err := s.repo.GetToppings(ctx, deduped)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get toppings")
	}
	if len(toppings) != len(deduped) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more toppings not found")
	}
	return deduped, nil
}

func (s *service) SetPizzaAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Pizza, error) {
	pizza, err := s.GetPizza(ctx, id)
	if err != nil {
		return nil, err
	}
	pizza.IsAvailable = available
	if err := s.repo.UpdatePizza(ctx, pizza); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pizza availability")
	}
	return pizza, nil
}

func (s *service) CreateSize(ctx context.Context, input SizeInput) (*models.Size, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size name required")
	}
	if input.Multiplier.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size multiplier must be positive")
	}
	size := models.Size{Name: input.Name, Multiplier: input.Multiplier, IsAvailable: true}
	if err := s.repo.CreateSize(ctx, &size); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "size name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create size")
	}
	return &size, nil
}

func (s *service) SetSizeAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Size, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size id required")
	}
	size, err := s.repo.GetSize(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "size not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get size")
	}
	size.IsAvailable = available
	if err := s.repo.UpdateSize(ctx, size); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update size availability")
	}
	return size, nil
}

func (s *service) CreateCrust(ctx context.Context, input CrustInput) (*models.Crust, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crust name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crust price must not be negative")
	}
	crust := models.Crust{Name: input.Name, Price: input.Price, IsAvailable: true}
	if err := s.repo.CreateCrust(ctx, &crust); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "crust name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create crust")
	}
	return &crust, nil
}

func (s *service) SetCrustAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.Crust, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crust id required")
	}
	crust, err := s.repo.GetCrust(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "crust not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get crust")
	}
	crust.IsAvailable = available
	if err := s.repo.UpdateCrust(ctx, crust); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update crust availability")
	}
	return crust, nil
}

func (s *service) CreateTopping(ctx context.Context, input ToppingInput) (*models.Topping, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "topping name required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid topping category %q", input.Category))
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "topping price must not be negative")
	}
	topping := models.Topping{Name: input.Name, Category: input.Category, Price: input.Price, IsAvailable: true}
	if err := s.repo.CreateTopping(ctx, &topping); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "topping name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create topping")
	}
	return &topping, nil
}

// ResolveSelection loads every catalog row a cart/order line refers to.
func (s *service) ResolveSelection(ctx context.Context, sel Selection) (*ResolvedSelection, error) {
	if sel.PizzaID == uuid.Nil || sel.SizeID == uuid.Nil || sel.CrustID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pizza, size and crust are required")
	}

	pizza, err := s.repo.GetPizza(ctx, sel.PizzaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pizza not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get pizza")
	}
	if !pizza.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "pizza is not available")
	}

	size, err := s.repo.GetSize(ctx, sel.SizeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "size not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get size")
	}
	if !size.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "size is not available")
	}

	crust, err := s.repo.GetCrust(ctx, sel.CrustID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "crust not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get crust")
	}
	if !crust.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "crust is not available")
	}

	ids := dedupeIDs(sel.ToppingIDs)
	toppings, err := s.repo.GetToppings(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get toppings")
	}
	if len(toppings) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more toppings not found")
	}
	for _, topping := range toppings {
		if !topping.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, fmt.Sprintf("topping %q is not available", topping.Name))
		}
	}

	return &ResolvedSelection{
		Pizza:    *pizza,
		Size:     *size,
		Crust:    *crust,
		Toppings: toppings,
	}, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
