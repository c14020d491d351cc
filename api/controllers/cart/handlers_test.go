package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	cartsvc "github.com/pizzabox/pizzabox-backend/internal/cart"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

type stubCartService struct {
	guestCart func(ctx context.Context, token string) (*models.Cart, error)
	userCart  func(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	addItem   func(ctx context.Context, owner cartsvc.Owner, input cartsvc.AddItemInput) (*models.Cart, error)
	merge     func(ctx context.Context, guestToken string, userID uuid.UUID) (*models.Cart, error)
}

func (s *stubCartService) GetOrCreateGuestCart(ctx context.Context, token string) (*models.Cart, error) {
	return s.guestCart(ctx, token)
}

func (s *stubCartService) GetOrCreateUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.userCart(ctx, userID)
}

func (s *stubCartService) AddItem(ctx context.Context, owner cartsvc.Owner, input cartsvc.AddItemInput) (*models.Cart, error) {
	return s.addItem(ctx, owner, input)
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, owner cartsvc.Owner, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	panic("not implemented")
}

func (s *stubCartService) RemoveItem(ctx context.Context, owner cartsvc.Owner, itemID uuid.UUID) (*models.Cart, error) {
	panic("not implemented")
}

func (s *stubCartService) Clear(ctx context.Context, owner cartsvc.Owner) (*models.Cart, error) {
	panic("not implemented")
}

func (s *stubCartService) MergeGuestIntoUser(ctx context.Context, guestToken string, userID uuid.UUID) (*models.Cart, error) {
	return s.merge(ctx, guestToken, userID)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestGetCartMintsGuestToken(t *testing.T) {
	var seenToken string
	svc := &stubCartService{
		guestCart: func(_ context.Context, token string) (*models.Cart, error) {
			seenToken = token
			return &models.Cart{ID: uuid.New(), GuestToken: &token}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	GetCart(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, seenToken)
	assert.Equal(t, seenToken, rec.Header().Get(GuestTokenHeader))
}

func TestGetCartReusesGuestToken(t *testing.T) {
	token := cartsvc.NewGuestToken()
	svc := &stubCartService{
		guestCart: func(_ context.Context, got string) (*models.Cart, error) {
			assert.Equal(t, token, got)
			return &models.Cart{ID: uuid.New(), GuestToken: &got}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(GuestTokenHeader, token)
	rec := httptest.NewRecorder()
	GetCart(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, rec.Header().Get(GuestTokenHeader))
}

func TestGetCartPrefersAuthenticatedUser(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{
		userCart: func(_ context.Context, got uuid.UUID) (*models.Cart, error) {
			assert.Equal(t, userID, got)
			return &models.Cart{ID: uuid.New(), UserID: &got}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(GuestTokenHeader, "stale-guest-token")
	req = req.WithContext(apimiddleware.WithIdentity(req.Context(), userID, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	GetCart(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(GuestTokenHeader))
}

func TestAddItemRequiresOwner(t *testing.T) {
	svc := &stubCartService{}

	body := `{"pizza_id":"` + uuid.NewString() + `","size_id":"` + uuid.NewString() + `","crust_id":"` + uuid.NewString() + `","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	AddItem(svc, testLogger())(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddItemPassesOwnerAndInput(t *testing.T) {
	token := cartsvc.NewGuestToken()
	pizzaID := uuid.New()
	svc := &stubCartService{
		addItem: func(_ context.Context, owner cartsvc.Owner, input cartsvc.AddItemInput) (*models.Cart, error) {
			assert.Equal(t, token, owner.GuestToken)
			assert.Nil(t, owner.UserID)
			assert.Equal(t, pizzaID, input.PizzaID)
			assert.Equal(t, 2, input.Quantity)
			return &models.Cart{ID: uuid.New()}, nil
		},
	}

	body := `{"pizza_id":"` + pizzaID.String() + `","size_id":"` + uuid.NewString() + `","crust_id":"` + uuid.NewString() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	req.Header.Set(GuestTokenHeader, token)
	rec := httptest.NewRecorder()
	AddItem(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	svc := &stubCartService{}

	body := `{"pizza_id":"` + uuid.NewString() + `","size_id":"` + uuid.NewString() + `","crust_id":"` + uuid.NewString() + `","quantity":0}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	req.Header.Set(GuestTokenHeader, "token")
	rec := httptest.NewRecorder()
	AddItem(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestMergeRequiresAuthentication(t *testing.T) {
	svc := &stubCartService{}

	req := httptest.NewRequest(http.MethodPost, "/cart/merge", strings.NewReader(`{}`))
	req.Header.Set(GuestTokenHeader, "token")
	rec := httptest.NewRecorder()
	Merge(svc, testLogger())(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMergeUsesHeaderToken(t *testing.T) {
	userID := uuid.New()
	token := cartsvc.NewGuestToken()
	svc := &stubCartService{
		merge: func(_ context.Context, guestToken string, got uuid.UUID) (*models.Cart, error) {
			assert.Equal(t, token, guestToken)
			assert.Equal(t, userID, got)
			return &models.Cart{ID: uuid.New(), UserID: &got}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/cart/merge", nil)
	req.Header.Set(GuestTokenHeader, token)
	req = req.WithContext(apimiddleware.WithIdentity(req.Context(), userID, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	Merge(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
