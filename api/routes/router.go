package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/ordercore-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/ordercore-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/ordercore-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/ordercore-backend/api/controllers/webhooks"
	"github.com/angelmondragon/ordercore-backend/api/middleware"
	"github.com/angelmondragon/ordercore-backend/internal/audit"
	"github.com/angelmondragon/ordercore-backend/internal/ecpay"
	"github.com/angelmondragon/ordercore-backend/internal/inventory"
	"github.com/angelmondragon/ordercore-backend/internal/notifications"
	"github.com/angelmondragon/ordercore-backend/internal/orders"
	"github.com/angelmondragon/ordercore-backend/internal/payments"
	"github.com/angelmondragon/ordercore-backend/pkg/config"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	"github.com/angelmondragon/ordercore-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/ordercore-backend/pkg/redis"
)

// Deps carries everything the HTTP surface is wired to. Nil interfaces
// disable the matching feature: a nil Limiter skips rate limiting, a nil
// Idempotency store skips replay protection.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Idempotency pkgredis.IdempotencyStore
	Limiter     pkgredis.RateLimiter
	HTTPMetrics middleware.HTTPObserver
	Gatherer    prometheus.Gatherer

	Orders        orders.Service
	Payments      payments.Service
	Inventory     inventory.Service
	Notifications notifications.Service
	Audit         audit.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
	)

	gatewayPolicy := middleware.NewRateLimitPolicy("gateway", cfg.RateLimit.GatewayWindow, cfg.RateLimit.GatewayIPLimit, 0)
	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.APIWindow, cfg.RateLimit.APIIPLimit, cfg.RateLimit.APIUserLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessChecks(d)))
	})

	if cfg.Metrics.Enabled && d.Gatherer != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway traffic is authenticated by CheckMacValue, not JWT.
		r.Group(func(r chi.Router) {
			var gateway webhookcontrollers.ECPayService
			if d.Payments != nil {
				gateway = d.Payments
			}
			r.With(middleware.RateLimit(gatewayPolicy.RespondPlain(ecpay.AckFail), d.Limiter, logg)).
				Post("/payments/ecpay/callback", webhookcontrollers.ECPayCallback(gateway, logg))
			r.With(middleware.RateLimit(gatewayPolicy, d.Limiter, logg)).
				Post("/payments/ecpay/return", webhookcontrollers.ECPayReturn(gateway, cfg.ECPay.ResultPageURL(), logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RateLimit(apiPolicy, d.Limiter, logg))
			r.Use(middleware.Idempotency(d.Idempotency, cfg.Orders.IdempotencyTTL, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(d.Orders, logg))
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Put("/status", ordercontrollers.UpdateStatus(d.Orders, logg))
				r.Get("/sn/{orderSn}", ordercontrollers.DetailBySN(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
				r.Put("/{orderId}", ordercontrollers.Update(d.Orders, logg))
				r.Delete("/{orderId}", ordercontrollers.Delete(d.Orders, logg))
				r.Get("/{orderId}/history", ordercontrollers.History(d.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", paymentcontrollers.List(d.Payments, logg))
				r.Post("/ecpay/{orderId}", paymentcontrollers.Checkout(d.Payments, logg))
				r.Post("/{id}", paymentcontrollers.Pay(d.Payments, logg))
				r.Get("/{id}", paymentcontrollers.Detail(d.Payments, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notifications, logg))
				r.Get("/logs", controllers.ListOperationLogs(d.Audit, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Post("/{productId}/stock", controllers.AdjustStock(d.Inventory, logg))
			})
		})
	})

	return r
}

func readinessChecks(d Deps) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if d.DB != nil {
		checks["database"] = d.DB
	}
	if d.Redis != nil {
		checks["redis"] = d.Redis
	}
	return checks
}
