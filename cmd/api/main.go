package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/sikars/sikars-backend/api/routes"
	"github.com/sikars/sikars-backend/internal/cart"
	"github.com/sikars/sikars-backend/internal/catalog"
	"github.com/sikars/sikars-backend/internal/orders"
	"github.com/sikars/sikars-backend/internal/payments"
	"github.com/sikars/sikars-backend/internal/pricing"
	"github.com/sikars/sikars-backend/pkg/authorizenet"
	"github.com/sikars/sikars-backend/pkg/config"
	"github.com/sikars/sikars-backend/pkg/db"
	"github.com/sikars/sikars-backend/pkg/logger"
	"github.com/sikars/sikars-backend/pkg/migrate"
	"github.com/sikars/sikars-backend/pkg/outbox"
	"github.com/sikars/sikars-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	calc := pricing.NewCalculator(cfg.Pricing)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(gormDB)
	cartSvc, err := cart.NewService(cartRepo, catalogSvc, calc, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo, cartRepo, catalogSvc, calc, dbClient, outboxSvc, cfg.Pricing, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gatewayClient, err := authorizenet.NewClient(
		cfg.AuthorizeNet.LoginID,
		cfg.AuthorizeNet.TransactionKey,
		authorizenet.WithBaseURL(cfg.AuthorizeNet.BaseURL),
		authorizenet.WithHTTPClient(&http.Client{Timeout: cfg.AuthorizeNet.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(payments.NewRepository(gormDB), ordersRepo, gatewayClient, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, gormDB, redisClient, cartSvc, ordersSvc, paymentsSvc),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
