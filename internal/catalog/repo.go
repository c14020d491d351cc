package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
)

// Repository exposes persistence helpers for the menu catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListPizzas(ctx context.Context, availableOnly bool) ([]models.Pizza, error)
	GetPizza(ctx context.Context, id uuid.UUID) (*models.Pizza, error)
	CreatePizza(ctx context.Context, pizza *models.Pizza) error
	UpdatePizza(ctx context.Context, pizza *models.Pizza) error
	DeletePizza(ctx context.Context, id uuid.UUID) (int64, error)
	ReplaceDefaultToppings(ctx context.Context, pizzaID uuid.UUID, toppingIDs []uuid.UUID) error

	ListSizes(ctx context.Context, availableOnly bool) ([]models.Size, error)
	GetSize(ctx context.Context, id uuid.UUID) (*models.Size, error)
	CreateSize(ctx context.Context, size *models.Size) error
	UpdateSize(ctx context.Context, size *models.Size) error

	ListCrusts(ctx context.Context, availableOnly bool) ([]models.Crust, error)
	GetCrust(ctx context.Context, id uuid.UUID) (*models.Crust, error)
	CreateCrust(ctx context.Context, crust *models.Crust) error
	UpdateCrust(ctx context.Context, crust *models.Crust) error

	ListToppings(ctx context.Context, availableOnly bool) ([]models.Topping, error)
	GetToppings(ctx context.Context, ids []uuid.UUID) ([]models.Topping, error)
	CreateTopping(ctx context.Context, topping *models.Topping) error
	UpdateTopping(ctx context.Context, topping *models.Topping) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func withDefaultToppings(db *gorm.DB) *gorm.DB {
	return db.Preload("DefaultToppings", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *repositoryImpl) ListPizzas(ctx context.Context, availableOnly bool) ([]models.Pizza, error) {
	query := withDefaultToppings(r.db.WithContext(ctx).Model(&models.Pizza{}))
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}
	var pizzas []models.Pizza
	err := query.Order("name ASC").Find(&pizzas).Error
	return pizzas, err
}

func (r *repositoryImpl) GetPizza(ctx context.Context, id uuid.UUID) (*models.Pizza, error) {
	var pizza models.Pizza
	if err := withDefaultToppings(r.db.WithContext(ctx)).First(&pizza, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pizza, nil
}

func (r *repositoryImpl) CreatePizza(ctx context.Context, pizza *models.Pizza) error {
	return r.db.WithContext(ctx).Create(pizza).Error
}

func (r *repositoryImpl) UpdatePizza(ctx context.Context, pizza *models.Pizza) error {
	return r.db.WithContext(ctx).Save(pizza).Error
}

func (r *repositoryImpl) DeletePizza(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Pizza{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ReplaceDefaultToppings(ctx context.Context, pizzaID uuid.UUID, toppingIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.PizzaTopping{}, "pizza_id = ?", pizzaID).Error; err != nil {
		return err
	}
	if len(toppingIDs) == 0 {
		return nil
	}
	links := make([]models.PizzaTopping, 0, len(toppingIDs))
	for i, id := range toppingIDs {
		links = append(links, models.PizzaTopping{PizzaID: pizzaID, ToppingID: id, Position: i})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

func (r *repositoryImpl) ListSizes(ctx context.Context, availableOnly bool) ([]models.Size, error) {
	query := r.db.WithContext(ctx).Model(&models.Size{})
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}
	var sizes []models.Size
	err := query.Order("multiplier ASC").Find(&sizes).Error
	return sizes, err
}

func (r *repositoryImpl) GetSize(ctx context.Context, id uuid.UUID) (*models.Size, error) {
	var size models.Size
	if err := r.db.WithContext(ctx).First(&size, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &size, nil
}

func (r *repositoryImpl) CreateSize(ctx context.Context, size *models.Size) error {
	return r.db.WithContext(ctx).Create(size).Error
}

func (r *repositoryImpl) UpdateSize(ctx context.Context, size *models.Size) error {
	return r.db.WithContext(ctx).Save(size).Error
}

func (r *repositoryImpl) ListCrusts(ctx context.Context, availableOnly bool) ([]models.Crust, error) {
	query := r.db.WithContext(ctx).Model(&models.Crust{})
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}
	var crusts []models.Crust
	err := query.Order("price ASC").Find(&crusts).Error
	return crusts, err
}

func (r *repositoryImpl) GetCrust(ctx context.Context, id uuid.UUID) (*models.Crust, error) {
	var crust models.Crust
	if err := r.db.WithContext(ctx).First(&crust, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &crust, nil
}

func (r *repositoryImpl) CreateCrust(ctx context.Context, crust *models.Crust) error {
	return r.db.WithContext(ctx).Create(crust).Error
}

func (r *repositoryImpl) UpdateCrust(ctx context.Context, crust *models.Crust) error {
	return r.db.WithContext(ctx).Save(crust).Error
}

func (r *repositoryImpl) ListToppings(ctx context.Context, availableOnly bool) ([]models.Topping, error) {
	query := r.db.WithContext(ctx).Model(&models.Topping{})
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}
	var toppings []models.Topping
	err := query.Order("category ASC, name ASC").Find(&toppings).Error
	return toppings, err
}

func (r *repositoryImpl) GetToppings(ctx context.Context, ids []uuid.UUID) ([]models.Topping, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var toppings []models.Topping
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&toppings).Error
	return toppings, err
}

func (r *repositoryImpl) CreateTopping(ctx context.Context, topping *models.Topping) error {
	return r.db.WithContext(ctx).Create(topping).Error
}

func (r *repositoryImpl) UpdateTopping(ctx context.Context, topping *models.Topping) error {
	return r.db.WithContext(ctx).Save(topping).Error
}
