package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	flashsaleserver "github.com/Apurer/flash-sale-engine/go"
	salesredis "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/cache/redis"
	salesmemory "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/memory"
	salesobs "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/observability"
	salespostgres "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/persistence/postgres"
	salesapp "github.com/Apurer/flash-sale-engine/internal/domains/sales/application"
	salesports "github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
	usermemory "github.com/Apurer/flash-sale-engine/internal/domains/users/adapters/memory"
	userobs "github.com/Apurer/flash-sale-engine/internal/domains/users/adapters/observability"
	userpostgres "github.com/Apurer/flash-sale-engine/internal/domains/users/adapters/persistence/postgres"
	userapp "github.com/Apurer/flash-sale-engine/internal/domains/users/application"
	userports "github.com/Apurer/flash-sale-engine/internal/domains/users/ports"
	"github.com/Apurer/flash-sale-engine/internal/platform/migrations"
	platformobservability "github.com/Apurer/flash-sale-engine/internal/platform/observability"
	platformpostgres "github.com/Apurer/flash-sale-engine/internal/platform/postgres"
	platformredis "github.com/Apurer/flash-sale-engine/internal/platform/redis"
)

// Runtime holds the adapters and services every process builds the same way.
type Runtime struct {
	Config      Config
	Logger      *slog.Logger
	Instruments *platformobservability.Instruments

	DB    *gorm.DB
	Redis *goredis.Client

	Store salesports.Store
	Sales salesports.Service
	Users userports.Service

	closers []func()
}

// RuntimeOption tweaks runtime construction per process.
type RuntimeOption func(*runtimeSettings)

type runtimeSettings struct {
	migrate bool
}

// WithMigrations applies the schema after connecting. Only the API process migrates.
func WithMigrations() RuntimeOption {
	return func(s *runtimeSettings) { s.migrate = true }
}

// NewRuntime connects the configured backends. Without POSTGRES_DSN every store
// is in-memory and private to the process.
func NewRuntime(ctx context.Context, cfg Config, instruments *platformobservability.Instruments, opts ...RuntimeOption) (*Runtime, error) {
	settings := runtimeSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	rt := &Runtime{Config: cfg, Logger: effectiveLogger(instruments), Instruments: instruments}
	logger := rt.Logger

	var userRepo userports.Repository = usermemory.NewRepository()
	var idem salesports.IdempotencyStore
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory stores")
		rt.Store = salesmemory.NewStore(salesmemory.WithLockTimeout(cfg.LockWaitTimeout))
		idem = salesmemory.NewIdempotencyStore(cfg.IdempotencyTTL)
	} else {
		db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN, platformpostgres.PoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.DB = db
		rt.closers = append(rt.closers, func() { platformpostgres.Close(db) })
		if settings.migrate {
			if err := migrations.Run(db); err != nil {
				rt.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("database schema up to date")
		}
		rt.Store = salespostgres.NewStore(db, salespostgres.WithLockTimeout(cfg.LockWaitTimeout))
		idem = salespostgres.NewIdempotencyStore(db, cfg.IdempotencyTTL)
		userRepo = userpostgres.NewRepository(db)
		logger.Info("sales store configured with postgres")
	}

	if rdb, cleanup := platformredis.ConnectOptional(ctx, cfg.RedisURL, logger); rdb != nil {
		rt.Redis = rdb
		rt.closers = append(rt.closers, cleanup)
		idem = salesredis.NewIdempotencyStore(rdb, salesredis.WithTTL(cfg.IdempotencyTTL))
	}

	rt.Users = userobs.New(
		userapp.NewService(userRepo),
		userobs.WithLogger(logger),
		userobs.WithTracer(instruments.Tracer("internal.users.application")),
		userobs.WithMeter(instruments.Meter("internal.users.application")),
	)
	rt.Sales = salesobs.New(
		salesapp.NewService(rt.Store, rt.Users,
			salesapp.WithMaxOrderQuantity(cfg.MaxOrderQuantity),
			salesapp.WithIdempotencyStore(idem),
			salesapp.WithOrderTopic(cfg.KafkaOrderTopic),
			salesapp.WithRestockOnPaymentFailure(cfg.RestockOnPaymentFailure),
			salesapp.WithLogger(logger),
		),
		salesobs.WithLogger(logger),
		salesobs.WithTracer(instruments.Tracer("internal.sales.application")),
		salesobs.WithMeter(instruments.Meter("internal.sales.application")),
	)
	return rt, nil
}

// Durable reports whether state is shared across processes.
func (rt *Runtime) Durable() bool {
	return rt.DB != nil
}

// HealthChecks probes the backends the runtime connected to.
func (rt *Runtime) HealthChecks() map[string]flashsaleserver.HealthCheck {
	checks := map[string]flashsaleserver.HealthCheck{}
	if rt.DB != nil {
		db := rt.DB
		checks["postgres"] = func(ctx context.Context) error { return platformpostgres.Ping(ctx, db) }
	}
	if rt.Redis != nil {
		rdb := rt.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// ConnectTemporal dials Temporal with tracing and structured logging attached.
func ConnectTemporal(cfg Config, instruments *platformobservability.Instruments, component string) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer(component)
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.Default()
}
