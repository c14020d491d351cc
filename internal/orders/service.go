package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/internal/address"
	"github.com/pizzabox/pizzabox-backend/internal/catalog"
	"github.com/pizzabox/pizzabox-backend/internal/pricing"
	dbpkg "github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox/payloads"
	"github.com/pizzabox/pizzabox-backend/pkg/pagination"
)

const (
	orderNoPrefix   = "PBX-"
	maxLineQuantity = 99
)

// NewOrderNo builds a short human-readable order number.
func NewOrderNo() string {
	compact := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderNoPrefix + strings.ToUpper(compact[:8])
}

// ItemInput describes one line of a checkout request.
type ItemInput struct {
	PizzaID    uuid.UUID
	SizeID     uuid.UUID
	CrustID    uuid.UUID
	ToppingIDs []uuid.UUID
	Quantity   int
}

// CreateInput describes a checkout request. The caller names its lines
// explicitly; the order does not read from the cart.
type CreateInput struct {
	AddressID     uuid.UUID
	PaymentMethod enums.PaymentMethod
	Items         []ItemInput
	Notes         *string
}

// Service owns the order lifecycle from checkout to delivery.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[models.Order], error)
	GetUserOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Order, error)
	CancelUserOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Order, error)

	List(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Result[models.Order], error)
	UpdateStatus(ctx context.Context, orderNo string, to enums.OrderStatus) (*models.Order, error)
	GetStats(ctx context.Context) (*Stats, error)
}

type service struct {
	client      *dbpkg.Client
	repo        Repository
	catalogRepo catalog.Repository
	addresses   address.Service
	emitter     outbox.Emitter
	logg        *logger.Logger
}

// NewService wires order dependencies.
func NewService(
	client *dbpkg.Client,
	repo Repository,
	catalogRepo catalog.Repository,
	addresses address.Service,
	emitter outbox.Emitter,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if catalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if addresses == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address service required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		client:      client,
		repo:        repo,
		catalogRepo: catalogRepo,
		addresses:   addresses,
		emitter:     emitter,
		logg:        logg,
	}, nil
}

// Create places an order from an explicit item list. Every line is priced
// against the live catalog and the resulting names and prices are frozen on
// the order so later menu edits cannot rewrite history.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, line := range input.Items {
		if line.Quantity <= 0 || line.Quantity > maxLineQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be between 1 and 99")
		}
	}

	deliveryAddress, err := s.addresses.Get(ctx, userID, input.AddressID)
	if err != nil {
		return nil, err
	}

	var out *models.Order
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		// Price every line against the live catalog; the snapshot freezes
		// exactly what the customer is charged.
		orderID := uuid.New()
		itemCount := 0
		var items []models.OrderItem
		var itemToppings [][]models.OrderItemTopping
		var lines []pricing.Line
		for _, line := range input.Items {
			item, toppings, err := s.snapshotLine(ctx, catalogRepo, orderID, line)
			if err != nil {
				return err
			}
			items = append(items, *item)
			itemToppings = append(itemToppings, toppings)
			lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
			itemCount += line.Quantity
		}
		totals := pricing.ComputeTotals(lines)

		order := models.Order{
			ID:              orderID,
			OrderNo:         NewOrderNo(),
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentMethod:   input.PaymentMethod,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			DeliveryCharge:  totals.DeliveryCharge,
			Total:           totals.Total,
			DeliveryAddress: address.Format(*deliveryAddress),
			Notes:           input.Notes,
		}
		if err := repo.Create(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		for i := range items {
			item := &items[i]
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
			}
			for j := range itemToppings[i] {
				itemToppings[i][j].OrderItemID = item.ID
				if err := repo.CreateItemTopping(ctx, &itemToppings[i][j]); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item topping")
				}
			}
			order.Items = append(order.Items, *item)
		}

		event := payloads.OrderCreatedEvent{
			OrderID:   order.ID,
			OrderNo:   order.OrderNo,
			UserID:    userID,
			Total:     order.Total,
			ItemCount: itemCount,
			Method:    input.PaymentMethod,
			PlacedAt:  time.Now().UTC(),
		}
		if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			Topic:       enums.TopicOrderEvents,
			EventType:   enums.EventOrderCreated,
			AggregateID: order.ID,
			Actor:       &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer.String()},
			Data:        event,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		out = &order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderNo(s.logg.WithUserID(ctx, userID.String()), out.OrderNo)
	s.logg.Info(logCtx, "order placed")
	return out, nil
}

// snapshotLine prices one requested line against the current catalog and
// freezes names and component prices on the order item. Every referenced row
// must exist and be available.
func (s *service) snapshotLine(ctx context.Context, catalogRepo catalog.Repository, orderID uuid.UUID, line ItemInput) (*models.OrderItem, []models.OrderItemTopping, error) {
	pizza, err := catalogRepo.GetPizza(ctx, line.PizzaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "pizza not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot pizza")
	}
	if !pizza.IsAvailable {
		return nil, nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "pizza is not available")
	}
	size, err := catalogRepo.GetSize(ctx, line.SizeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "size not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot size")
	}
	if !size.IsAvailable {
		return nil, nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "size is not available")
	}
	crust, err := catalogRepo.GetCrust(ctx, line.CrustID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "crust not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot crust")
	}
	if !crust.IsAvailable {
		return nil, nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "crust is not available")
	}

	toppingIDs := dedupeToppingIDs(line.ToppingIDs)
	toppings, err := catalogRepo.GetToppings(ctx, toppingIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot toppings")
	}
	if len(toppings) != len(toppingIDs) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more toppings not found")
	}
	for _, topping := range toppings {
		if !topping.IsAvailable {
			return nil, nil, pkgerrors.New(pkgerrors.CodeBusinessRule, fmt.Sprintf("topping %q is not available", topping.Name))
		}
	}

	toppingPrices := make([]decimal.Decimal, 0, len(toppings))
	for _, topping := range toppings {
		toppingPrices = append(toppingPrices, topping.Price)
	}
	unitPrice := pricing.UnitPrice(pricing.Components{
		BasePrice:      pizza.BasePrice,
		SizeMultiplier: size.Multiplier,
		CrustPrice:     crust.Price,
		ToppingPrices:  toppingPrices,
	})
	priced := pricing.Line{UnitPrice: unitPrice, Quantity: line.Quantity}

	item := models.OrderItem{
		ID:         uuid.New(),
		OrderID:    orderID,
		PizzaID:    pizza.ID,
		PizzaName:  pizza.Name,
		SizeName:   size.Name,
		CrustName:  crust.Name,
		BasePrice:  pizza.BasePrice,
		SizeMult:   size.Multiplier,
		CrustPrice: crust.Price,
		Quantity:   line.Quantity,
		UnitPrice:  unitPrice,
		LineTotal:  priced.LineTotal(),
	}

	frozen := make([]models.OrderItemTopping, 0, len(toppings))
	for _, topping := range toppings {
		frozen = append(frozen, models.OrderItemTopping{
			ID:        uuid.New(),
			ToppingID: topping.ID,
			Name:      topping.Name,
			Price:     topping.Price,
		})
	}
	return &item, frozen, nil
}

func (s *service) GetUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[models.Order], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	params = params.Normalize()
	rows, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}
	return &pagination.Result[models.Order]{Items: rows, Page: params.Page, Limit: params.Limit, Total: total}, nil
}

func (s *service) GetUserOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Order, error) {
	order, err := s.getByOrderNo(ctx, s.repo, orderNo)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		// do not leak other users' order numbers
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// CancelUserOrder lets a customer abort an order that has not been paid and
// has not entered the kitchen.
func (s *service) CancelUserOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Order, error) {
	var out *models.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.getByOrderNo(ctx, repo, orderNo)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "paid orders cannot be cancelled")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel an order in status %s", order.Status))
		}

		from := order.Status
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusCancelled

		event := payloads.OrderCancelledEvent{
			OrderID: order.ID,
			OrderNo: order.OrderNo,
			UserID:  order.UserID,
			From:    from,
		}
		if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			Topic:       enums.TopicOrderEvents,
			EventType:   enums.EventOrderCancelled,
			AggregateID: order.ID,
			Actor:       &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer.String()},
			Data:        event,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled")
		}

		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Result[models.Order], error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status filter %q", *filters.Status))
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status filter %q", *filters.PaymentStatus))
	}
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &pagination.Result[models.Order]{Items: rows, Page: params.Page, Limit: params.Limit, Total: total}, nil
}

// UpdateStatus advances an order along the kitchen flow. Transitions outside
// the state machine are rejected.
func (s *service) UpdateStatus(ctx context.Context, orderNo string, to enums.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", to))
	}

	var out *models.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.getByOrderNo(ctx, repo, orderNo)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, to))
		}

		from := order.Status
		if err := repo.UpdateStatus(ctx, order.ID, to); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = to

		event := payloads.OrderStatusChangedEvent{
			OrderID:       order.ID,
			OrderNo:       order.OrderNo,
			UserID:        order.UserID,
			FromStatus:    from,
			ToStatus:      to,
			StatusMessage: statusMessage(order.OrderNo, to),
		}
		if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			Topic:       enums.TopicOrderEvents,
			EventType:   enums.EventOrderStatusChanged,
			AggregateID: order.ID,
			Data:        event,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
		}

		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, time.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order stats")
	}
	return stats, nil
}

// statusMessage renders the customer-facing text for a status transition. It
// travels on the event so consumers never re-derive it.
func statusMessage(orderNo string, to enums.OrderStatus) string {
	switch to {
	case enums.OrderStatusConfirmed:
		return fmt.Sprintf("Your order %s has been confirmed.", orderNo)
	case enums.OrderStatusPreparing:
		return fmt.Sprintf("Your order %s is being prepared.", orderNo)
	case enums.OrderStatusOutForDelivery:
		return fmt.Sprintf("Your order %s is out for delivery.", orderNo)
	case enums.OrderStatusDelivered:
		return fmt.Sprintf("Your order %s has been delivered. Enjoy!", orderNo)
	case enums.OrderStatusCancelled:
		return fmt.Sprintf("Your order %s has been cancelled.", orderNo)
	default:
		return fmt.Sprintf("Your order %s is now %s.", orderNo, to)
	}
}

func dedupeToppingIDs(ids []uuid.UUID) []uuid.UUID {
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

func (s *service) getByOrderNo(ctx context.Context, repo Repository, orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := repo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get order")
	}
	return order, nil
}
