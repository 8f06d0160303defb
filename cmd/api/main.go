package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/merakiwear/meraki-backend/api/routes"
	"github.com/merakiwear/meraki-backend/internal/auth"
	"github.com/merakiwear/meraki-backend/internal/cart"
	"github.com/merakiwear/meraki-backend/internal/catalog"
	checkoutsvc "github.com/merakiwear/meraki-backend/internal/checkout"
	"github.com/merakiwear/meraki-backend/internal/discounts"
	"github.com/merakiwear/meraki-backend/internal/orders"
	"github.com/merakiwear/meraki-backend/internal/pricing"
	"github.com/merakiwear/meraki-backend/internal/users"
	"github.com/merakiwear/meraki-backend/internal/webhooks"
	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/db"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/mailer"
	"github.com/merakiwear/meraki-backend/pkg/metrics"
	"github.com/merakiwear/meraki-backend/pkg/migrate"
	"github.com/merakiwear/meraki-backend/pkg/paymob"
	"github.com/merakiwear/meraki-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paymobClient, err := paymob.NewClient(context.Background(), cfg.Paymob, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paymob client", err)
		os.Exit(1)
	}

	var mailSender mailer.Sender = mailer.Noop{}
	if cfg.SMTP.Enabled() {
		smtpSender, err := mailer.NewSMTPSender(cfg.SMTP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create smtp sender", err)
			os.Exit(1)
		}
		mailSender = smtpSender
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	discountsRepo := discounts.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	resolver, err := discounts.NewResolver(discountsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount resolver", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())

	if email := cfg.App.BootstrapAdminEmail; email != "" {
		promoted, err := usersRepo.PromoteAdminByEmail(context.Background(), email)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap admin", err)
			os.Exit(1)
		}
		if promoted {
			logg.Info(context.Background(), "bootstrap admin promoted")
		}
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:           usersRepo,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{Repo: catalogRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	discountsService, err := discounts.NewService(discounts.ServiceParams{
		Repo:     discountsRepo,
		Resolver: resolver,
		Products: catalogRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create discounts service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:    cartRepo,
		Catalog: catalogRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   ordersRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	pricingEngine, err := pricing.NewEngine(pricing.EngineParams{
		Catalog:   catalogRepo,
		Discounts: resolver,
		Shipping:  cfg.Shipping,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing engine", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Tx:      dbClient,
		Engine:  pricingEngine,
		Catalog: catalogRepo,
		Orders:  ordersRepo,
		Cart:    cartRepo,
		Gateway: paymobClient,
		Mailer:  mailSender,
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymobReconciler, err := webhooks.NewPaymobReconciler(webhooks.PaymobReconcilerParams{
		Verifier: paymobClient,
		Orders:   ordersRepo,
		Cart:     cartRepo,
		Mailer:   mailSender,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create paymob reconciler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			httpMetrics,
			authService,
			catalogService,
			discountsService,
			cartService,
			checkoutService,
			ordersService,
			usersService,
			paymobReconciler,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
