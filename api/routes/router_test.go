package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordercore-backend/internal/ecpay"
	pkgAuth "github.com/angelmondragon/ordercore-backend/pkg/auth"
	"github.com/angelmondragon/ordercore-backend/pkg/config"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	"github.com/angelmondragon/ordercore-backend/pkg/logger"
	"github.com/angelmondragon/ordercore-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "ordercore-test", ExpirationMinutes: 5},
		RateLimit: config.RateLimitConfig{
			APIWindow:      time.Minute,
			APIIPLimit:     100,
			APIUserLimit:   100,
			GatewayWindow:  time.Minute,
			GatewayIPLimit: 100,
		},
		ECPay:   config.ECPayConfig{FrontendURL: "https://shop.example.com", ResultPath: "/payment/result"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(t *testing.T, mutate func(*Deps)) http.Handler {
	t.Helper()
	d := Deps{
		Config: testConfig(),
		Logger: logger.Nop(),
		DB:     stubPinger{},
	}
	if mutate != nil {
		mutate(&d)
	}
	return NewRouter(d)
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, func(d *Deps) {
		d.Redis = stubPinger{err: errors.New("connection refused")}
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

func TestOrdersRequireBearerToken(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/payments"},
		{http.MethodGet, "/api/v1/notifications"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStockAdjustmentIsAdminOnly(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, func(d *Deps) { d.Config = cfg })
	path := "/api/v1/products/" + uuid.NewString() + "/stock"

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"delta":5}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin passes the role gate and reaches the handler, which has no service wired.
	req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"delta":5}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthenticatedRequestReachesHandler(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, func(d *Deps) { d.Config = cfg })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/history", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGatewayCallbackSkipsAuth(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/ecpay/callback", strings.NewReader("MerchantTradeNo=OC1&RtnCode=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ecpay.AckFail, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestGatewayReturnRedirectsWithoutService(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/ecpay/return", strings.NewReader("RtnCode=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://shop.example.com/payment/result")
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	router := newTestRouter(t, func(d *Deps) {
		d.Gatherer = reg
		d.HTTPMetrics = httpMetrics
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ordercore_http_requests_total")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	router := newTestRouter(t, func(d *Deps) {
		d.Config.Metrics.Enabled = false
		d.Gatherer = prometheus.NewRegistry()
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
