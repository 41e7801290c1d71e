package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	flashsaleserver "github.com/Apurer/flash-sale-engine/go"
	salesevents "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/events/kafka"
	salesworkflows "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/workflows"
	salesapp "github.com/Apurer/flash-sale-engine/internal/domains/sales/application"
	salesports "github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
	platformkafka "github.com/Apurer/flash-sale-engine/internal/platform/kafka"
	platformobservability "github.com/Apurer/flash-sale-engine/internal/platform/observability"
)

const shutdownGrace = 10 * time.Second

// Run boots the flash-sale HTTP API with observability, stores, and settlement wired.
func Run(ctx context.Context) error {
	const serviceName = "flashsale-api"
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	rt, err := NewRuntime(ctx, cfg, instruments, WithMigrations())
	if err != nil {
		return err
	}
	defer rt.Close()

	var settlement salesports.SettlementOrchestrator = salesworkflows.NewInlineSettlement(rt.Sales)
	switch {
	case !rt.Durable():
		logger.Info("in-memory stores are process local, settling payments inline")
	default:
		temporalClient, err := ConnectTemporal(cfg, instruments, "temporal-client")
		if err != nil {
			logger.Warn("Temporal workflows unavailable, settling payments inline", slog.String("error", err.Error()))
			break
		}
		defer temporalClient.Close()
		settlement = salesworkflows.NewTemporalSettlement(temporalClient, rt.Sales, salesworkflows.WithPaymentWindow(cfg.PaymentWindow))
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	// With in-memory stores no other process can read the outbox, so relay it here.
	if !rt.Durable() && cfg.KafkaEnabled() {
		writer := platformkafka.NewWriter(cfg.KafkaBrokers)
		defer writer.Close()
		relay := salesapp.NewRelay(rt.Store, salesevents.NewPublisher(writer, serviceName),
			salesapp.WithBatchSize(cfg.OutboxBatchSize),
			salesapp.WithErrorHandler(func(err error) {
				logger.Warn("outbox relay iteration failed", slog.String("error", err.Error()))
			}),
		)
		go func() {
			if err := relay.Run(ctx, cfg.OutboxPollInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("embedded outbox relay stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("embedded outbox relay started", slog.Any("brokers", cfg.KafkaBrokers))
	}

	handlers := flashsaleserver.ApiHandleFunctions{
		ProductAPI: flashsaleserver.NewProductAPI(rt.Sales),
		OrderAPI:   flashsaleserver.NewOrderAPI(rt.Sales, settlement),
		UserAPI:    flashsaleserver.NewUserAPI(rt.Users),
		HealthAPI:  flashsaleserver.NewHealthAPI(rt.HealthChecks()),
	}

	engine := gin.Default()
	engine.Use(otelgin.Middleware(serviceName))
	router := flashsaleserver.NewRouterWithGinEngine(engine, handlers)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("flash-sale API listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("flash-sale API server exited", slog.String("addr", srv.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		logger.Info("shutting down flash-sale API")
		return srv.Shutdown(shutdownCtx)
	}
}
