package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/internal/pricing"
)

// Repository exposes persistence helpers for carts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetByGuestToken(ctx context.Context, token string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, cartID uuid.UUID) error

	GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error

	ReplaceItemToppings(ctx context.Context, itemID uuid.UUID, toppingIDs []uuid.UUID) error
	UpdateTotals(ctx context.Context, cartID uuid.UUID, totals pricing.Totals) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
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
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Toppings")
}

func (r *repositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.preloaded(ctx).First(&cart, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repositoryImpl) GetByGuestToken(ctx context.Context, token string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.preloaded(ctx).First(&cart, "guest_token = ?", token).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repositoryImpl) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, cartID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_item_id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).Model(&models.CartItem{}).Select("id").Where("cart_id = ?", cartID),
	).Delete(&models.CartItemTopping{}).Error; err != nil {
		return err
	}
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Cart{}, "id = ?", cartID).Error
}

func (r *repositoryImpl) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Toppings").
		First(&item, "id = ? AND cart_id = ?", itemID, cartID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":   item.Quantity,
			"unit_price": item.UnitPrice,
			"line_total": item.LineTotal,
		}).Error
}

func (r *repositoryImpl) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_item_id = ?", itemID).Delete(&models.CartItemTopping{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.CartItem{}, "id = ?", itemID).Error
}

func (r *repositoryImpl) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_item_id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).Model(&models.CartItem{}).Select("id").Where("cart_id = ?", cartID),
	).Delete(&models.CartItemTopping{}).Error; err != nil {
		return err
	}
	return db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (r *repositoryImpl) ReplaceItemToppings(ctx context.Context, itemID uuid.UUID, toppingIDs []uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_item_id = ?", itemID).Delete(&models.CartItemTopping{}).Error; err != nil {
		return err
	}
	for _, toppingID := range toppingIDs {
		link := models.CartItemTopping{CartItemID: itemID, ToppingID: toppingID}
		if err := db.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repositoryImpl) UpdateTotals(ctx context.Context, cartID uuid.UUID, totals pricing.Totals) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"subtotal":        totals.Subtotal,
			"tax":             totals.Tax,
			"delivery_charge": totals.DeliveryCharge,
			"total":           totals.Total,
		}).Error
}
