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
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/flash-sale-engine/internal/app/api"
	salesevents "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/events/kafka"
	salesworkflows "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/workflows"
	orderworkflows "github.com/Apurer/flash-sale-engine/internal/durable/temporal/workflows/orders"
	platformkafka "github.com/Apurer/flash-sale-engine/internal/platform/kafka"
	platformobservability "github.com/Apurer/flash-sale-engine/internal/platform/observability"
	orderactivities "github.com/Apurer/flash-sale-engine/internal/platform/temporal/activities/orders"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	const serviceName = "flashsale-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
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

	if err := run(ctx, cfg, instruments); err != nil {
		logger.Error("worker exited with error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg api.Config, instruments *platformobservability.Instruments) error {
	logger := instruments.Logger
	rt, err := api.NewRuntime(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer rt.Close()
	if !rt.Durable() {
		logger.Warn("worker runs against in-memory stores; settlements will not see orders placed by the API process")
	}

	temporalClient, err := api.ConnectTemporal(cfg, instruments, "temporal-worker")
	if err != nil {
		return err
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.SettlementTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.SettlementWorkflow, workflow.RegisterOptions{Name: orderworkflows.SettlementWorkflowName})
	w.RegisterActivityWithOptions(orderactivities.NewActivities(rt.Sales).RecordPayment, activity.RegisterOptions{Name: orderactivities.RecordPaymentActivityName})
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.SettlementTaskQueue), slog.String("namespace", cfg.TemporalNamespace))

	if !cfg.KafkaEnabled() {
		logger.Info("KAFKA_BROKERS not set, settlements start only from direct workflow starts")
		<-ctx.Done()
		return nil
	}
	reader := platformkafka.NewReader(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, cfg.KafkaOrderTopic)
	defer reader.Close()
	orchestrator := salesworkflows.NewTemporalSettlement(temporalClient, rt.Sales, salesworkflows.WithPaymentWindow(cfg.PaymentWindow))
	consumer := salesevents.NewOrderPlacedConsumer(reader, orchestrator, logger)
	logger.Info("order placed consumer started", slog.String("topic", cfg.KafkaOrderTopic), slog.String("group", cfg.KafkaConsumerGroup))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
