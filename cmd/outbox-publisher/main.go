package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db"
	"github.com/bazar-market/bazar-backend/pkg/kafka"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/migrate"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/outbox/registry"
	"github.com/bazar-market/bazar-backend/pkg/pubsub"
)

type closingTransport interface {
	transport
	io.Closer
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"driver":      cfg.Outbox.NormalizedDriver(),
	})

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

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		logg.Error(ctx, "failed to build event registry", err)
		os.Exit(1)
	}

	tr, err := newTransport(ctx, cfg, eventRegistry.Topics(), logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap outbox transport", err)
		os.Exit(1)
	}
	defer func() {
		if err := tr.Close(); err != nil {
			logg.Error(context.Background(), "error closing outbox transport", err)
		}
	}()

	conn := dbClient.DB()
	service, err := NewService(ServiceParams{
		Outbox:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Transport:  tr,
		Repository: outbox.NewRepository(conn),
		DLQ:        outbox.NewDLQRepository(conn),
		Resolver:   eventRegistry,
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox publisher", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
}

func newTransport(ctx context.Context, cfg *config.Config, topics []string, logg *logger.Logger) (closingTransport, error) {
	switch cfg.Outbox.NormalizedDriver() {
	case config.OutboxDriverKafka:
		return kafka.NewProducer(ctx, cfg.Kafka, logg)
	case config.OutboxDriverPubSub:
		return pubsub.NewClient(ctx, cfg.GCP.ProjectID, topics, logg)
	default:
		return nil, fmt.Errorf("unknown outbox driver %q", cfg.Outbox.Driver)
	}
}
