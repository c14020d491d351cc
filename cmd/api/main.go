package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pizzabox/pizzabox-backend/api/routes"
	"github.com/pizzabox/pizzabox-backend/internal/address"
	"github.com/pizzabox/pizzabox-backend/internal/cart"
	"github.com/pizzabox/pizzabox-backend/internal/catalog"
	"github.com/pizzabox/pizzabox-backend/internal/mailer"
	"github.com/pizzabox/pizzabox-backend/internal/notifications"
	"github.com/pizzabox/pizzabox-backend/internal/orders"
	"github.com/pizzabox/pizzabox-backend/internal/payments"
	"github.com/pizzabox/pizzabox-backend/internal/pricing"
	"github.com/pizzabox/pizzabox-backend/pkg/bus"
	"github.com/pizzabox/pizzabox-backend/pkg/config"
	"github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	"github.com/pizzabox/pizzabox-backend/pkg/metrics"
	"github.com/pizzabox/pizzabox-backend/pkg/migrate"
	"github.com/pizzabox/pizzabox-backend/pkg/outbox"
	"github.com/pizzabox/pizzabox-backend/pkg/razorpay"
	"github.com/pizzabox/pizzabox-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)
	requireResource(logg, "pricing", pricing.Configure(cfg.Pricing.TaxRate, cfg.Pricing.DeliveryFlat))

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	requireResource(logg, "migrations", migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient))

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	eventBus, err := bus.New(redisClient.Raw(), logg)
	requireResource(logg, "event bus", err)

	eventMetrics := metrics.NewEventMetrics(prometheus.DefaultRegisterer)

	gateway, err := razorpay.New(cfg.Razorpay)
	requireResource(logg, "razorpay gateway", err)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outboxRepo, logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	requireResource(logg, "catalog service", err)

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(dbClient, cartRepo, catalogService, catalogRepo, logg)
	requireResource(logg, "cart service", err)

	addressRepo := address.NewRepository(dbClient.DB())
	addressService, err := address.NewService(dbClient, addressRepo)
	requireResource(logg, "address service", err)

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(dbClient, orderRepo, catalogRepo, addressService, emitter, logg)
	requireResource(logg, "order service", err)

	paymentRepo := payments.NewRepository(dbClient.DB())
	paymentService, err := payments.NewService(dbClient, paymentRepo, orderRepo, gateway, emitter, cfg.Razorpay.Currency, logg)
	requireResource(logg, "payment service", err)

	notificationRepo := notifications.NewRepository(dbClient.DB())
	notificationService, err := notifications.NewService(notificationRepo)
	requireResource(logg, "notification service", err)

	hub := notifications.NewHub(eventMetrics)
	defer func() {
		if err := hub.Close(); err != nil {
			logg.Error(context.Background(), "error closing websocket hub", err)
		}
	}()

	notificationRouter, err := notifications.NewRouter(notificationRepo, hub, logg)
	requireResource(logg, "notification router", err)
	notificationRouter.AttachMailer(mailer.NewLogMailer(cfg.Mail, logg), cfg.Mail.OpsAddress)

	listener, err := notifications.NewListener(eventBus, notificationRouter, logg)
	requireResource(logg, "notification listener", err)

	publisher, err := outbox.NewPublisher(outbox.PublisherParams{
		Config:  cfg.Outbox,
		Logger:  logg,
		DB:      dbClient,
		Repo:    outboxRepo,
		Bus:     eventBus,
		Metrics: eventMetrics,
	})
	requireResource(logg, "outbox publisher", err)

	handler := routes.New(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Catalog:       catalogService,
		Cart:          cartService,
		Orders:        orderService,
		Payments:      paymentService,
		Addresses:     addressService,
		Notifications: notificationService,
		Hub:           hub,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	go func() {
		if err := publisher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "outbox publisher stopped unexpectedly", err)
			stop()
		}
	}()
	go func() {
		if err := listener.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "notification listener stopped unexpectedly", err)
			stop()
		}
	}()

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	logg.Info(runCtx, "api server started")

	select {
	case <-runCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
	}
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "resource not working: "+resource, err)
	os.Exit(1)
}
