package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/merakiwear/meraki-backend/api/controllers"
	"github.com/merakiwear/meraki-backend/api/middleware"
	"github.com/merakiwear/meraki-backend/internal/auth"
	"github.com/merakiwear/meraki-backend/internal/cart"
	"github.com/merakiwear/meraki-backend/internal/catalog"
	checkoutsvc "github.com/merakiwear/meraki-backend/internal/checkout"
	"github.com/merakiwear/meraki-backend/internal/discounts"
	"github.com/merakiwear/meraki-backend/internal/orders"
	"github.com/merakiwear/meraki-backend/internal/users"
	"github.com/merakiwear/meraki-backend/internal/webhooks"
	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/db"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/metrics"
	"github.com/merakiwear/meraki-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	authService auth.Service,
	catalogService catalog.Service,
	discountsService discounts.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	usersService users.Service,
	paymobReconciler *webhooks.PaymobReconciler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(loginPolicy, redisClient, logg),
			).Post("/login", controllers.AuthLogin(authService, logg))
			r.With(
				middleware.AuthRateLimit(registerPolicy, redisClient, logg),
				middleware.Idempotency(redisClient, logg),
			).Post("/register", controllers.AuthRegister(authService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(catalogService, logg))
			r.Get("/{productID}", controllers.ProductsGet(catalogService, logg))
		})

		r.Post("/discounts/query", controllers.DiscountsQuery(discountsService, logg))

		// Guests check out too; the order keys off the JWT only when present.
		r.With(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/checkout", controllers.Checkout(checkoutService, logg))

		// Signature-authenticated, never behind JWT or idempotency capture.
		r.Post("/webhooks/paymob", controllers.PaymobWebhook(paymobReconciler, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(cartService, logg))
				r.Post("/", controllers.CartAdd(cartService, logg))
				r.Delete("/", controllers.CartClear(cartService, logg))
				r.Patch("/items/{itemID}", controllers.CartUpdateLine(cartService, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveLine(cartService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(ordersService, logg))
				r.Get("/{orderID}", controllers.OrdersGet(ordersService, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole("admin", logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminProductsList(catalogService, logg))
				r.Post("/", controllers.AdminProductsCreate(catalogService, logg))
				r.Get("/{productID}", controllers.AdminProductsGet(catalogService, logg))
				r.Patch("/{productID}", controllers.AdminProductsUpdate(catalogService, logg))
				r.Delete("/{productID}", controllers.AdminProductsDelete(catalogService, logg))
				r.Post("/{productID}/variants", controllers.AdminVariantsCreate(catalogService, logg))
				r.Patch("/{productID}/variants/{variantID}", controllers.AdminVariantsUpdate(catalogService, logg))
				r.Delete("/{productID}/variants/{variantID}", controllers.AdminVariantsDelete(catalogService, logg))
			})

			r.Route("/discounts", func(r chi.Router) {
				r.Get("/", controllers.AdminDiscountsList(discountsService, logg))
				r.Post("/", controllers.AdminDiscountsCreate(discountsService, logg))
				r.Get("/{discountID}", controllers.AdminDiscountsGet(discountsService, logg))
				r.Patch("/{discountID}", controllers.AdminDiscountsUpdate(discountsService, logg))
				r.Delete("/{discountID}", controllers.AdminDiscountsDelete(discountsService, logg))
				r.Post("/{discountID}/assign", controllers.AdminDiscountsAssign(discountsService, logg))
				r.Post("/{discountID}/unassign", controllers.AdminDiscountsUnassign(discountsService, logg))
				r.Post("/{discountID}/assign-all", controllers.AdminDiscountsAssignAll(discountsService, logg))
				r.Post("/{discountID}/remove-all", controllers.AdminDiscountsRemoveAll(discountsService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrdersList(ordersService, logg))
				r.Get("/{orderID}", controllers.AdminOrdersGet(ordersService, logg))
				r.Patch("/{orderID}/status", controllers.AdminOrdersUpdateStatus(ordersService, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUsersList(usersService, logg))
				r.Post("/", controllers.AdminUsersCreate(usersService, logg))
				r.Patch("/{userID}/role", controllers.AdminUsersUpdateRole(usersService, logg))
				r.Delete("/{userID}", controllers.AdminUsersDelete(usersService, logg))
			})
		})
	})

	return r
}
