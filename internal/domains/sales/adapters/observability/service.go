package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

const tracerName = "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/observability/service"

// Service decorates the sales service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core sales service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (*domain.Order, error) {
	attrs := []slog.Attr{
		slog.Int64("user.id", input.UserID),
		slog.Int64("product.id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	}
	ctx, span := s.tracer.Start(ctx, "SalesService.PlaceOrder", trace.WithAttributes(
		attribute.Int64("user.id", input.UserID),
		attribute.Int64("product.id", input.ProductID),
		attribute.Int("quantity", input.Quantity),
		attribute.Bool("idempotent", input.IdempotencyKey != ""),
	))
	defer span.End()

	s.logInfo(ctx, "placing order", attrs...)
	result, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		s.metrics.recordRejected(ctx, rejectionReason(err))
		return nil, s.handleError(ctx, span, err, "failed to place order", attrs...)
	}
	span.SetAttributes(attribute.Int64("order.id", result.ID))
	s.metrics.recordPlaced(ctx, input.Quantity)
	s.logInfo(ctx, "order placed",
		slog.Int64("order.id", result.ID),
		slog.Int64("product.id", result.ProductID),
		slog.String("total", result.TotalAmount.StringFixed(domain.MoneyScale)))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "SalesService.GetOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.Int64("order.id", id))
	}
	return result, nil
}

func (s *Service) ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "SalesService.ListOrdersByUser", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	result, err := s.inner.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.Int64("user.id", userID))
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) CreateProduct(ctx context.Context, input ports.CreateProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "SalesService.CreateProduct", trace.WithAttributes(attribute.Int("product.stock", input.Stock)))
	defer span.End()

	s.logInfo(ctx, "creating product", slog.String("product.name", input.Name), slog.Int("product.stock", input.Stock))
	result, err := s.inner.CreateProduct(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create product", slog.String("product.name", input.Name))
	}
	s.metrics.recordMutation(ctx, "create")
	s.logInfo(ctx, "product created", slog.Int64("product.id", result.ID))
	return result, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "SalesService.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	result, err := s.inner.GetProduct(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load product", slog.Int64("product.id", id))
	}
	return result, nil
}

func (s *Service) ListProducts(ctx context.Context, query ports.ProductQuery) (*ports.ProductPage, error) {
	ctx, span := s.tracer.Start(ctx, "SalesService.ListProducts", trace.WithAttributes(
		attribute.Int("page", query.Page),
		attribute.Int("limit", query.Limit),
	))
	defer span.End()

	result, err := s.inner.ListProducts(ctx, query)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list products", slog.Int("page", query.Page))
	}
	span.SetAttributes(attribute.Int64("products.total", result.Total))
	return result, nil
}

func (s *Service) UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) (*domain.Product, error) {
	return s.mutation(ctx, "update_price", productID, func(ctx context.Context) (*domain.Product, error) {
		return s.inner.UpdatePrice(ctx, productID, price)
	}, slog.String("price", price.String()))
}

func (s *Service) ApplyDiscount(ctx context.Context, productID int64, percent decimal.Decimal) (*domain.Product, error) {
	return s.mutation(ctx, "apply_discount", productID, func(ctx context.Context) (*domain.Product, error) {
		return s.inner.ApplyDiscount(ctx, productID, percent)
	}, slog.String("percent", percent.String()))
}

func (s *Service) UpdateStock(ctx context.Context, productID int64, stock int) (*domain.Product, error) {
	return s.mutation(ctx, "update_stock", productID, func(ctx context.Context) (*domain.Product, error) {
		return s.inner.UpdateStock(ctx, productID, stock)
	}, slog.Int("stock", stock))
}

func (s *Service) ActivateProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.mutation(ctx, "activate", productID, func(ctx context.Context) (*domain.Product, error) {
		return s.inner.ActivateProduct(ctx, productID)
	})
}

func (s *Service) DeactivateProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.mutation(ctx, "deactivate", productID, func(ctx context.Context) (*domain.Product, error) {
		return s.inner.DeactivateProduct(ctx, productID)
	})
}

func (s *Service) AttachImage(ctx context.Context, productID int64, imageURL string) (*domain.Product, error) {
	return s.mutation(ctx, "attach_image", productID, func(ctx context.Context) (*domain.Product, error) {
		return s.inner.AttachImage(ctx, productID, imageURL)
	})
}

func (s *Service) RecordPayment(ctx context.Context, outcome ports.PaymentOutcome) (*domain.Order, error) {
	attrs := []slog.Attr{
		slog.Int64("order.id", outcome.OrderID),
		slog.String("payment.status", string(outcome.Status)),
		slog.String("payment.provider", outcome.Provider),
	}
	ctx, span := s.tracer.Start(ctx, "SalesService.RecordPayment", trace.WithAttributes(
		attribute.Int64("order.id", outcome.OrderID),
		attribute.String("payment.status", string(outcome.Status)),
	))
	defer span.End()

	s.logInfo(ctx, "recording payment", attrs...)
	result, err := s.inner.RecordPayment(ctx, outcome)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to record payment", attrs...)
	}
	s.metrics.recordPayment(ctx, outcome.Status)
	s.logInfo(ctx, "payment recorded", slog.Int64("order.id", result.ID), slog.String("order.status", string(result.Status)))
	return result, nil
}

func (s *Service) mutation(ctx context.Context, op string, productID int64, call func(context.Context) (*domain.Product, error), extra ...slog.Attr) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "SalesService."+op, trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	attrs := append([]slog.Attr{slog.String("operation", op), slog.Int64("product.id", productID)}, extra...)
	s.logInfo(ctx, "mutating product", attrs...)
	result, err := call(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "product mutation failed", attrs...)
	}
	s.metrics.recordMutation(ctx, op)
	s.logInfo(ctx, "product mutated", slog.String("operation", op), slog.Int64("product.id", result.ID))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInactive):
		return "inactive"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	case errors.Is(err, ports.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ports.ErrPersistence):
		return "persistence"
	case errors.Is(err, ports.ErrIdempotencyConflict), errors.Is(err, ports.ErrIdempotencyInFlight):
		return "idempotency"
	default:
		return "other"
	}
}

type serviceMetrics struct {
	ordersPlaced     metric.Int64Counter
	unitsReserved    metric.Int64Counter
	ordersRejected   metric.Int64Counter
	productMutations metric.Int64Counter
	paymentsRecorded metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("sales.orders_placed", metric.WithDescription("Number of orders placed"))
	unitsReserved, _ := m.Int64Counter("sales.units_reserved", metric.WithDescription("Units deducted from stock by placements"))
	ordersRejected, _ := m.Int64Counter("sales.orders_rejected", metric.WithDescription("Placement attempts that did not produce an order"))
	productMutations, _ := m.Int64Counter("sales.product_mutations", metric.WithDescription("Committed product mutations"))
	paymentsRecorded, _ := m.Int64Counter("sales.payments_recorded", metric.WithDescription("Payment outcomes applied to orders"))
	return serviceMetrics{
		ordersPlaced:     ordersPlaced,
		unitsReserved:    unitsReserved,
		ordersRejected:   ordersRejected,
		productMutations: productMutations,
		paymentsRecorded: paymentsRecorded,
	}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, quantity int) {
	if m.ordersPlaced != nil {
		m.ordersPlaced.Add(ctx, 1)
	}
	if m.unitsReserved != nil {
		m.unitsReserved.Add(ctx, int64(quantity))
	}
}

func (m serviceMetrics) recordRejected(ctx context.Context, reason string) {
	if m.ordersRejected != nil {
		m.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m serviceMetrics) recordMutation(ctx context.Context, op string) {
	if m.productMutations != nil {
		m.productMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

func (m serviceMetrics) recordPayment(ctx context.Context, status domain.PaymentStatus) {
	if m.paymentsRecorded != nil {
		m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	}
}

var _ ports.Service = (*Service)(nil)
