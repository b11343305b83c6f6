package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordercore-backend/api/middleware"
	"github.com/angelmondragon/ordercore-backend/internal/ecpay"
	internalpayments "github.com/angelmondragon/ordercore-backend/internal/payments"
	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

type stubService struct {
	internalpayments.Service
	payInput      *internalpayments.PayInput
	checkoutInput *internalpayments.CheckoutInput
	listParams    *internalpayments.ListParams
	err           error
}

func (s *stubService) Pay(_ context.Context, _ types.Actor, orderID uuid.UUID, input internalpayments.PayInput) (*internalpayments.PayResult, error) {
	s.payInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &internalpayments.PayResult{PaymentID: uuid.New(), OrderID: orderID, Amount: decimal.NewFromInt(200), Status: enums.PaymentStatusSuccess}, nil
}

func (s *stubService) Checkout(_ context.Context, _ types.Actor, _ uuid.UUID, input internalpayments.CheckoutInput) (*ecpay.Checkout, error) {
	s.checkoutInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &ecpay.Checkout{ActionURL: "https://gateway.test/checkout", MerchantTradeNo: "OC260501100304ABCDEF", Params: map[string]string{"CheckMacValue": "ABC"}}, nil
}

func (s *stubService) List(_ context.Context, _ types.Actor, params internalpayments.ListParams) (*internalpayments.PaymentList, error) {
	s.listParams = &params
	return &internalpayments.PaymentList{Items: []models.Payment{}}, s.err
}

func (s *stubService) Get(_ context.Context, _ types.Actor, id uuid.UUID) (*models.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Payment{ID: id}, nil
}

func withActor(r *http.Request) *http.Request {
	actor := types.Actor{UserID: uuid.New(), Role: enums.RoleCustomer, Username: "buyer"}
	return r.WithContext(middleware.WithActor(r.Context(), actor))
}

func withParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestPayWithoutBodyUsesDefaults(t *testing.T) {
	svc := &stubService{}
	orderID := uuid.New()
	req := withParam(withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+orderID.String(), http.NoBody)), "id", orderID.String())
	rec := httptest.NewRecorder()

	Pay(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.payInput)
	assert.Empty(t, svc.payInput.PaymentMethod)

	var body struct {
		Data internalpayments.PayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, orderID, body.Data.OrderID)
	assert.Equal(t, enums.PaymentStatusSuccess, body.Data.Status)
}

func TestPayRejectsBadOrderID(t *testing.T) {
	req := withParam(withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payments/nope", http.NoBody)), "id", "nope")
	rec := httptest.NewRecorder()

	Pay(&stubService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayMapsStateConflict(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")}
	orderID := uuid.NewString()
	req := withParam(withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+orderID, strings.NewReader(`{"payment_method":"cash"}`))), "id", orderID)
	rec := httptest.NewRecorder()

	Pay(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "STATE_CONFLICT")
}

func TestPayRequiresActor(t *testing.T) {
	orderID := uuid.NewString()
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+orderID, http.NoBody), "id", orderID)
	rec := httptest.NewRecorder()

	Pay(&stubService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutReturnsSignedForm(t *testing.T) {
	svc := &stubService{}
	orderID := uuid.NewString()
	body := `{"client_back_url":"https://shop.test/orders"}`
	req := withParam(withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payments/ecpay/"+orderID, strings.NewReader(body))), "orderId", orderID)
	rec := httptest.NewRecorder()

	Checkout(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.checkoutInput)
	assert.Equal(t, "https://shop.test/orders", svc.checkoutInput.ClientBackURL)
	assert.Contains(t, rec.Body.String(), `"CheckMacValue":"ABC"`)
}

func TestCheckoutRejectsInvalidBackURL(t *testing.T) {
	orderID := uuid.NewString()
	req := withParam(withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payments/ecpay/"+orderID, strings.NewReader(`{"client_back_url":"not a url"}`))), "orderId", orderID)
	rec := httptest.NewRecorder()

	Checkout(&stubService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubService{}
	orderID := uuid.New()
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/payments?order_id="+orderID.String()+"&status=success&page=2&page_size=5", nil))
	rec := httptest.NewRecorder()

	List(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listParams)
	require.NotNil(t, svc.listParams.OrderID)
	assert.Equal(t, orderID, *svc.listParams.OrderID)
	assert.Equal(t, "success", svc.listParams.Status)
	assert.Equal(t, 2, svc.listParams.Page.Page)
	assert.Equal(t, 5, svc.listParams.Page.PageSize)
}

func TestListRejectsOversizedPage(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/payments?page_size=1000", nil))
	rec := httptest.NewRecorder()

	List(&stubService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailMapsForbidden(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")}
	id := uuid.NewString()
	req := withParam(withActor(httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+id, nil)), "id", id)
	rec := httptest.NewRecorder()

	Detail(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNilServiceIsInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	Detail(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
