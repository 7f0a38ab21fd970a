package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/kiranacart/kiranacart-backend/api/routes"
	checkoutsvc "github.com/kiranacart/kiranacart-backend/internal/checkout"
	"github.com/kiranacart/kiranacart-backend/internal/delivery"
	"github.com/kiranacart/kiranacart-backend/internal/notifications"
	orderssvc "github.com/kiranacart/kiranacart-backend/internal/orders"
	paymentssvc "github.com/kiranacart/kiranacart-backend/internal/payments"
	"github.com/kiranacart/kiranacart-backend/internal/products"
	riderssvc "github.com/kiranacart/kiranacart-backend/internal/riders"
	shopssvc "github.com/kiranacart/kiranacart-backend/internal/shops"
	"github.com/kiranacart/kiranacart-backend/internal/users"
	"github.com/kiranacart/kiranacart-backend/pkg/config"
	"github.com/kiranacart/kiranacart-backend/pkg/db"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
	"github.com/kiranacart/kiranacart-backend/pkg/migrate"
	"github.com/kiranacart/kiranacart-backend/pkg/razorpay"
	"github.com/kiranacart/kiranacart-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	gateway, err := razorpay.NewClient(
		cfg.Razorpay.KeyID,
		cfg.Razorpay.KeySecret,
		razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	ordersRepo := orderssvc.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	shopsRepo := shopssvc.NewRepository(dbClient.DB())
	ridersRepo := riderssvc.NewRepository(dbClient.DB())
	paymentsRepo := paymentssvc.NewRepository(dbClient.DB())

	publishHook, err := notifications.NewRedisPublishHook(redisClient, "order-transitions")
	if err != nil {
		logg.Error(context.Background(), "failed to create redis publish hook", err)
		os.Exit(1)
	}
	hub := notifications.NewHub(logg, notifications.NewLogHook(logg), publishHook)

	ordersService, err := orderssvc.NewService(dbClient, ordersRepo, ridersRepo, hub)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := paymentssvc.NewService(dbClient, paymentsRepo, ordersRepo, gateway, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		ordersRepo,
		usersRepo,
		productsRepo,
		shopsRepo,
		delivery.NewEngine(cfg.Pricing),
		paymentsService,
		cfg.Pricing,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	shopsService, err := shopssvc.NewService(shopsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create shops service", err)
		os.Exit(1)
	}

	ridersService, err := riderssvc.NewService(ridersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create riders service", err)
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
			checkoutService,
			ordersService,
			paymentsService,
			shopsService,
			ridersService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
