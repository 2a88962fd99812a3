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

	"github.com/bazar-market/bazar-backend/api/routes"
	"github.com/bazar-market/bazar-backend/internal/cart"
	"github.com/bazar-market/bazar-backend/internal/checkout"
	"github.com/bazar-market/bazar-backend/internal/coupons"
	"github.com/bazar-market/bazar-backend/internal/notifications"
	"github.com/bazar-market/bazar-backend/internal/orders"
	"github.com/bazar-market/bazar-backend/internal/payments"
	product "github.com/bazar-market/bazar-backend/internal/products"
	"github.com/bazar-market/bazar-backend/internal/reports"
	"github.com/bazar-market/bazar-backend/internal/subscriptions"
	"github.com/bazar-market/bazar-backend/internal/transactions"
	stripewebhook "github.com/bazar-market/bazar-backend/internal/webhooks/stripe"
	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/metrics"
	"github.com/bazar-market/bazar-backend/pkg/migrate"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/redis"
	"github.com/bazar-market/bazar-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// Without Stripe the gateway paths answer 503; cash on delivery keeps working.
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		if cfg.App.IsProd() {
			logg.Error(ctx, "failed to init stripe client", err)
			os.Exit(1)
		}
		logg.Warn(ctx, "stripe disabled: "+err.Error())
		stripeClient = nil
	}

	notifier, err := notifications.New(ctx, cfg.Notification, logg)
	if err != nil {
		logg.Error(ctx, "failed to init notifier", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	commerceMetrics := metrics.NewCommerceMetrics(registry)

	deps, err := wire(ctx, cfg, logg, dbClient, redisClient, stripeClient, notifier, commerceMetrics)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}
	deps.Gatherer = registry

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}

func wire(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	stripeClient *stripe.Client,
	notifier notifications.Notifier,
	commerceMetrics *metrics.CommerceMetrics,
) (routes.Dependencies, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	productRepo := product.NewRepository(conn)

	subParams := subscriptions.ServiceParams{
		Repo:     subscriptions.NewRepository(conn),
		Tx:       dbClient,
		Products: productRepo,
		Outbox:   outboxSvc,
		Stripe:   cfg.Stripe,
		Logger:   logg,
	}
	if stripeClient != nil {
		subParams.Gateway = stripeClient
	}
	subscriptionSvc, err := subscriptions.NewService(subParams)
	if err != nil {
		return routes.Dependencies{}, err
	}
	if err := subscriptionSvc.EnsureDefaultPlans(ctx); err != nil {
		return routes.Dependencies{}, err
	}

	productSvc, err := product.NewService(productRepo, dbClient, subscriptionSvc)
	if err != nil {
		return routes.Dependencies{}, err
	}

	cartSvc, err := cart.NewService(cart.NewRepository(conn), dbClient, productRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}

	couponSvc, err := coupons.NewService(coupons.ServiceParams{
		Repo:  coupons.NewRepository(conn),
		Tx:    dbClient,
		Carts: cartSvc,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	reportSvc, err := reports.NewService(reports.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	transactionRepo := transactions.NewRepository(conn)
	transactionSvc, err := transactions.NewService(transactionRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(conn),
		Tx:           dbClient,
		Outbox:       outboxSvc,
		Reports:      reportSvc,
		Transactions: transactionRepo,
		Notifier:     notifier,
		Logger:       logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	paymentRepo := payments.NewRepository(conn)
	paymentParams := payments.ServiceParams{
		Repo:         paymentRepo,
		Tx:           dbClient,
		Outbox:       outboxSvc,
		Correlations: redisClient,
		Stripe:       cfg.Stripe,
		Checkout:     cfg.Checkout,
		Logger:       logg,
	}
	if stripeClient != nil {
		paymentParams.Gateway = stripeClient
	}
	paymentSvc, err := payments.NewService(paymentParams)
	if err != nil {
		return routes.Dependencies{}, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Cart:     cartSvc,
		Orders:   orderSvc,
		Payments: paymentSvc,
		Outbox:   outboxSvc,
		Metrics:  commerceMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments:      paymentRepo,
		Tx:            dbClient,
		Correlations:  redisClient,
		Subscriptions: subscriptionSvc,
		Transactions:  transactionSvc,
		Reports:       reportSvc,
		Outbox:        outboxSvc,
		Logger:        logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Cart:          cartSvc,
		Coupons:       couponSvc,
		Checkout:      checkoutSvc,
		Orders:        orderSvc,
		Payments:      paymentSvc,
		Products:      productSvc,
		Reports:       reportSvc,
		Transactions:  transactionSvc,
		Subscriptions: subscriptionSvc,
		StripeClient:  stripeClient,
		StripeWebhook: webhookSvc,
		WebhookGuard:  guard,
		Metrics:       commerceMetrics,
	}, nil
}
