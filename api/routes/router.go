package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/sikars/sikars-backend/api/controllers"
	cartcontrollers "github.com/sikars/sikars-backend/api/controllers/cart"
	ordercontrollers "github.com/sikars/sikars-backend/api/controllers/orders"
	paymentcontrollers "github.com/sikars/sikars-backend/api/controllers/payments"
	"github.com/sikars/sikars-backend/api/middleware"
	"github.com/sikars/sikars-backend/internal/cart"
	"github.com/sikars/sikars-backend/internal/orders"
	"github.com/sikars/sikars-backend/internal/payments"
	"github.com/sikars/sikars-backend/pkg/config"
	"github.com/sikars/sikars-backend/pkg/enums"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	cartService cart.Service,
	ordersService orders.Service,
	paymentsService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	paymentPolicy := middleware.NewPaymentRateLimitPolicy(
		cfg.RateLimit.PaymentWindow,
		cfg.RateLimit.PaymentIPLimit,
		cfg.RateLimit.PaymentUserLimit,
	)

	// Typed-nil guard so the middlewares see a plain nil when Redis is absent.
	var idempotencyStore redis.IdempotencyStore
	var rateLimitStore middleware.RateLimiterStore
	if redisClient != nil {
		idempotencyStore = redisClient
		rateLimitStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, db))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Post("/ping", controllers.Ping())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Active(cartService, logg))
			r.Post("/items", cartcontrollers.AddItem(cartService, logg))
			r.Patch("/items/{itemId}", cartcontrollers.UpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(cartService, logg))
			r.Post("/merge", cartcontrollers.Merge(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersService, logg))
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
		})

		r.With(middleware.PaymentRateLimit(paymentPolicy, rateLimitStore, logg)).
			Post("/payments/process", paymentcontrollers.Process(paymentsService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleAdmin.String(), logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(ordersService, logg))
			r.Post("/{orderId}/status", ordercontrollers.UpdateStatus(ordersService, logg))
			r.Post("/{orderId}/documents", ordercontrollers.AttachDocuments(ordersService, logg))
			r.Get("/{orderId}/documents", ordercontrollers.Documents(ordersService, logg))
		})

		r.Post("/payments/{paymentId}/refund", paymentcontrollers.Refund(paymentsService, logg))
	})

	return r
}
