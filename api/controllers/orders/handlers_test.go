package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	ordersvc "github.com/pizzabox/pizzabox-backend/internal/orders"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	"github.com/pizzabox/pizzabox-backend/pkg/pagination"
)

type stubOrderService struct {
	create       func(ctx context.Context, userID uuid.UUID, input ordersvc.CreateInput) (*models.Order, error)
	list         func(ctx context.Context, filters ordersvc.ListFilters, params pagination.Params) (*pagination.Result[models.Order], error)
	updateStatus func(ctx context.Context, orderNo string, to enums.OrderStatus) (*models.Order, error)
}

func (s *stubOrderService) Create(ctx context.Context, userID uuid.UUID, input ordersvc.CreateInput) (*models.Order, error) {
	return s.create(ctx, userID, input)
}

func (s *stubOrderService) GetUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[models.Order], error) {
	panic("not implemented")
}

func (s *stubOrderService) GetUserOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrderService) CancelUserOrder(ctx context.Context, userID uuid.UUID, orderNo string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrderService) List(ctx context.Context, filters ordersvc.ListFilters, params pagination.Params) (*pagination.Result[models.Order], error) {
	return s.list(ctx, filters, params)
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, orderNo string, to enums.OrderStatus) (*models.Order, error) {
	return s.updateStatus(ctx, orderNo, to)
}

func (s *stubOrderService) GetStats(ctx context.Context) (*ordersvc.Stats, error) {
	panic("not implemented")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(apimiddleware.WithIdentity(req.Context(), userID, enums.UserRoleCustomer))
}

func TestCreateOrderPassesInput(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	pizzaID := uuid.New()
	sizeID := uuid.New()
	crustID := uuid.New()
	toppingID := uuid.New()
	svc := &stubOrderService{
		create: func(_ context.Context, gotUser uuid.UUID, input ordersvc.CreateInput) (*models.Order, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, addressID, input.AddressID)
			assert.Equal(t, enums.PaymentMethodUPI, input.PaymentMethod)
			require.Len(t, input.Items, 1)
			assert.Equal(t, pizzaID, input.Items[0].PizzaID)
			assert.Equal(t, sizeID, input.Items[0].SizeID)
			assert.Equal(t, crustID, input.Items[0].CrustID)
			assert.Equal(t, []uuid.UUID{toppingID}, input.Items[0].ToppingIDs)
			assert.Equal(t, 2, input.Items[0].Quantity)
			return &models.Order{ID: uuid.New(), OrderNo: ordersvc.NewOrderNo()}, nil
		},
	}

	body := `{"address_id":"` + addressID.String() + `","payment_method":"upi","items":[` +
		`{"pizza_id":"` + pizzaID.String() + `","size_id":"` + sizeID.String() +
		`","crust_id":"` + crustID.String() + `","topping_ids":["` + toppingID.String() +
		`"],"quantity":2}]}`
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, authedRequest(http.MethodPost, "/orders", body, userID))

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	svc := &stubOrderService{}

	body := `{"address_id":"` + uuid.NewString() + `","payment_method":"cheque","items":[` +
		`{"pizza_id":"` + uuid.NewString() + `","size_id":"` + uuid.NewString() +
		`","crust_id":"` + uuid.NewString() + `","quantity":1}]}`
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, authedRequest(http.MethodPost, "/orders", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	svc := &stubOrderService{}

	body := `{"address_id":"` + uuid.NewString() + `","payment_method":"upi","items":[]}`
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, authedRequest(http.MethodPost, "/orders", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrderService{}

	router := chi.NewRouter()
	router.Patch("/admin/orders/{orderNo}/status", UpdateStatus(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/PBX-0AB1C2D3/status", strings.NewReader(`{"status":"teleported"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusPassesOrderNo(t *testing.T) {
	svc := &stubOrderService{
		updateStatus: func(_ context.Context, orderNo string, to enums.OrderStatus) (*models.Order, error) {
			assert.Equal(t, "PBX-0AB1C2D3", orderNo)
			assert.Equal(t, enums.OrderStatusConfirmed, to)
			return &models.Order{ID: uuid.New(), OrderNo: orderNo, Status: to}, nil
		},
	}

	router := chi.NewRouter()
	router.Patch("/admin/orders/{orderNo}/status", UpdateStatus(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/PBX-0AB1C2D3/status", strings.NewReader(`{"status":"confirmed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubOrderService{
		list: func(_ context.Context, filters ordersvc.ListFilters, params pagination.Params) (*pagination.Result[models.Order], error) {
			require.NotNil(t, filters.Status)
			assert.Equal(t, enums.OrderStatusPending, *filters.Status)
			require.NotNil(t, filters.PaymentStatus)
			assert.Equal(t, enums.PaymentStatusPaid, *filters.PaymentStatus)
			assert.Equal(t, 2, params.Page)
			return &pagination.Result[models.Order]{Items: []models.Order{}, Page: 2, Limit: 20}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/orders?status=pending&payment_status=paid&page=2", nil)
	rec := httptest.NewRecorder()
	List(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListRejectsBadDateFilter(t *testing.T) {
	svc := &stubOrderService{}

	req := httptest.NewRequest(http.MethodGet, "/admin/orders?from=yesterday", nil)
	rec := httptest.NewRecorder()
	List(svc, testLogger())(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
