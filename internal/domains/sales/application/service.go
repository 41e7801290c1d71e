package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

const (
	DefaultMaxOrderQuantity = 10
	DefaultOrderTopic       = "flashsale.orders"
	maxPageLimit            = 50
)

// Service orchestrates sales use cases: the order placement transaction,
// single-field product mutations, catalog queries and payment settlement.
type Service struct {
	store      ports.Store
	buyers     ports.BuyerDirectory
	idem       ports.IdempotencyStore
	propagator propagation.TextMapPropagator
	now        func() time.Time
	logger     *slog.Logger

	maxOrderQuantity int
	orderTopic       string
	restockOnFailure bool
	completeBackoff  time.Duration
}

type Option func(*Service)

// WithMaxOrderQuantity sets the per-order quantity cap.
func WithMaxOrderQuantity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxOrderQuantity = n
		}
	}
}

// WithIdempotencyStore enables Idempotency-Key handling for PlaceOrder.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idem = store
	}
}

func WithOrderTopic(topic string) Option {
	return func(s *Service) {
		if topic != "" {
			s.orderTopic = topic
		}
	}
}

// WithRestockOnPaymentFailure controls whether a FAILED payment returns stock.
func WithRestockOnPaymentFailure(enabled bool) Option {
	return func(s *Service) {
		s.restockOnFailure = enabled
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for failures that do not fail the request.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(s *Service) {
		if p != nil {
			s.propagator = p
		}
	}
}

// NewService wires the sales store and the buyer directory. A nil directory
// skips the buyer check and leaves it to the store's referential integrity.
func NewService(store ports.Store, buyers ports.BuyerDirectory, opts ...Option) *Service {
	s := &Service{
		store:            store,
		buyers:           buyers,
		propagator:       otel.GetTextMapPropagator(),
		now:              time.Now,
		logger:           slog.Default(),
		maxOrderQuantity: DefaultMaxOrderQuantity,
		orderTopic:       DefaultOrderTopic,
		restockOnFailure: true,
		completeBackoff:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, mapError(domain.ErrInvalidProductID)
	}
	return s.store.GetProduct(ctx, id)
}

// ListProducts returns a page of active products. It takes no locks.
func (s *Service) ListProducts(ctx context.Context, query ports.ProductQuery) (*ports.ProductPage, error) {
	if query.Page < 1 || query.Limit < 1 || query.Limit > maxPageLimit {
		return nil, mapError(ErrInvalidPage)
	}
	items, total, err := s.store.ListActiveProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	return &ports.ProductPage{Items: items, Total: total, Page: query.Page, Limit: query.Limit}, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, mapError(domain.ErrInvalidOrderID)
	}
	return s.store.GetOrder(ctx, id)
}

func (s *Service) ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	if userID <= 0 {
		return nil, mapError(domain.ErrInvalidUserID)
	}
	if err := s.ensureBuyer(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListOrdersByUser(ctx, userID)
}

func (s *Service) ensureBuyer(ctx context.Context, userID int64) error {
	if s.buyers == nil {
		return nil
	}
	ok, err := s.buyers.Exists(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.ErrUserNotFound
		}
		return err
	}
	if !ok {
		return ports.ErrUserNotFound
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
