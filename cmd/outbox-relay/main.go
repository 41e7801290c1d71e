package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Apurer/flash-sale-engine/internal/app/api"
	salesevents "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/events/kafka"
	salesapp "github.com/Apurer/flash-sale-engine/internal/domains/sales/application"
	platformkafka "github.com/Apurer/flash-sale-engine/internal/platform/kafka"
	platformobservability "github.com/Apurer/flash-sale-engine/internal/platform/observability"
)

// The relay assumes it is the only instance draining the outbox.
func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	const serviceName = "flashsale-outbox-relay"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.PostgresDSN == "" || !cfg.KafkaEnabled() {
		log.Fatal("POSTGRES_DSN and KAFKA_BROKERS are required to relay the outbox")
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	rt, err := api.NewRuntime(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to build runtime", slog.String("error", err.Error()))
		return
	}
	defer rt.Close()

	writer := platformkafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()
	relay := salesapp.NewRelay(rt.Store, salesevents.NewPublisher(writer, serviceName),
		salesapp.WithBatchSize(cfg.OutboxBatchSize),
		salesapp.WithErrorHandler(func(err error) {
			logger.Warn("outbox relay iteration failed", slog.String("error", err.Error()))
		}),
	)
	logger.Info("outbox relay started", slog.Duration("interval", cfg.OutboxPollInterval), slog.Int("batchSize", cfg.OutboxBatchSize))
	if err := relay.Run(ctx, cfg.OutboxPollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("outbox relay exited", slog.String("error", err.Error()))
		return
	}
	logger.Info("outbox relay stopped")
}
