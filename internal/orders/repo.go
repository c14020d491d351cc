package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	"github.com/pizzabox/pizzabox-backend/pkg/pagination"
)

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	UserID        *uuid.UUID
	From          *time.Time
	To            *time.Time
	SortAsc       bool
}

// Stats aggregates order counts and paid revenue.
type Stats struct {
	TotalOrders   int64                       `json:"total_orders"`
	ByStatus      map[enums.OrderStatus]int64 `json:"by_status"`
	PaidRevenue   decimal.Decimal             `json:"paid_revenue"`
	OrdersToday   int64                       `json:"orders_today"`
	RevenueToday  decimal.Decimal             `json:"revenue_today"`
}

// Repository exposes persistence helpers for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	CreateItemTopping(ctx context.Context, topping *models.OrderItemTopping) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Toppings")
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repositoryImpl) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Omit("Toppings").Create(item).Error
}

func (r *repositoryImpl) CreateItemTopping(ctx context.Context, topping *models.OrderItemTopping) error {
	return r.db.WithContext(ctx).Create(topping).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).First(&order, "order_no = ?", orderNo).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := r.preloaded(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *repositoryImpl) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()

	apply := func(db *gorm.DB) *gorm.DB {
		if filters.Status != nil {
			db = db.Where("status = ?", *filters.Status)
		}
		if filters.PaymentStatus != nil {
			db = db.Where("payment_status = ?", *filters.PaymentStatus)
		}
		if filters.UserID != nil {
			db = db.Where("user_id = ?", *filters.UserID)
		}
		if filters.From != nil {
			db = db.Where("created_at >= ?", *filters.From)
		}
		if filters.To != nil {
			db = db.Where("created_at < ?", *filters.To)
		}
		return db
	}

	var total int64
	if err := apply(r.db.WithContext(ctx).Model(&models.Order{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	direction := "DESC"
	if filters.SortAsc {
		direction = "ASC"
	}

	var orders []models.Order
	err := apply(r.preloaded(ctx)).
		Order("created_at " + direction).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repositoryImpl) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_status", status).Error
}

func (r *repositoryImpl) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{
		ByStatus:     map[enums.OrderStatus]int64{},
		PaidRevenue:  decimal.Zero,
		RevenueToday: decimal.Zero,
	}

	if err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	type statusRow struct {
		Status enums.OrderStatus
		Count  int64
	}
	var rows []statusRow
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
	}

	type sumRow struct {
		Sum decimal.NullDecimal
	}
	var paid sumRow
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("SUM(total) AS sum").
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Scan(&paid).Error; err != nil {
		return nil, err
	}
	if paid.Sum.Valid {
		stats.PaidRevenue = paid.Sum.Decimal
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("created_at >= ?", dayStart).
		Count(&stats.OrdersToday).Error; err != nil {
		return nil, err
	}
	var today sumRow
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("SUM(total) AS sum").
		Where("payment_status = ? AND created_at >= ?", enums.PaymentStatusPaid, dayStart).
		Scan(&today).Error; err != nil {
		return nil, err
	}
	if today.Sum.Valid {
		stats.RevenueToday = today.Sum.Decimal
	}

	return stats, nil
}
