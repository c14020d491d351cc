package address

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
)

// MaxPerUser caps how many saved addresses a user may keep.
const MaxPerUser = 5

// Input carries user-provided address fields.
type Input struct {
	Label     string
	Line1     string
	Line2     *string
	City      string
	State     string
	Pincode   string
	Phone     string
	IsDefault bool
}

// Service manages a user's address book.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Get(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*models.Address, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}

type service struct {
	client *dbpkg.Client
	repo   Repository
}

// NewService wires address dependencies.
func NewService(client *dbpkg.Client, repo Repository) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address repository required")
	}
	return &service{client: client, repo: repo}, nil
}

func validateInput(input Input) error {
	switch {
	case strings.TrimSpace(input.Label) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "label required")
	case strings.TrimSpace(input.Line1) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "line1 required")
	case strings.TrimSpace(input.City) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "city required")
	case strings.TrimSpace(input.State) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "state required")
	case strings.TrimSpace(input.Pincode) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "pincode required")
	case strings.TrimSpace(input.Phone) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "phone required")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return addresses, nil
}

func (s *service) Get(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	if userID == uuid.Nil || addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and address id required")
	}
	address, err := s.repo.Get(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get address")
	}
	return address, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var out *models.Address
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count addresses")
		}
		if count >= MaxPerUser {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "address book is full")
		}

		if input.IsDefault || count == 0 {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
			input.IsDefault = true
		}

		address := models.Address{
			ID:        uuid.New(),
			UserID:    userID,
			Label:     strings.TrimSpace(input.Label),
			Line1:     strings.TrimSpace(input.Line1),
			Line2:     input.Line2,
			City:      strings.TrimSpace(input.City),
			State:     strings.TrimSpace(input.State),
			Pincode:   strings.TrimSpace(input.Pincode),
			Phone:     strings.TrimSpace(input.Phone),
			IsDefault: input.IsDefault,
		}
		if err := repo.Create(ctx, &address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		out = &address
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var out *models.Address
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		address, err := repo.Get(ctx, userID, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get address")
		}

		if input.IsDefault && !address.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}

		address.Label = strings.TrimSpace(input.Label)
		address.Line1 = strings.TrimSpace(input.Line1)
		address.Line2 = input.Line2
		address.City = strings.TrimSpace(input.City)
		address.State = strings.TrimSpace(input.State)
		address.Pincode = strings.TrimSpace(input.Pincode)
		address.Phone = strings.TrimSpace(input.Phone)
		if input.IsDefault {
			address.IsDefault = true
		}

		if err := repo.Update(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		out = address
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if userID == uuid.Nil || addressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and address id required")
	}
	affected, err := s.repo.Delete(ctx, userID, addressID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

// Format renders an address into the single-line snapshot stored on orders.
func Format(address models.Address) string {
	parts := []string{address.Line1}
	if address.Line2 != nil && strings.TrimSpace(*address.Line2) != "" {
		parts = append(parts, strings.TrimSpace(*address.Line2))
	}
	parts = append(parts, address.City, address.State, address.Pincode)
	return strings.Join(parts, ", ") + " (" + address.Phone + ")"
}
