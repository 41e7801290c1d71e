package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var _ ports.Store = (*Store)(nil)

// DefaultLockTimeout bounds how long a transaction waits for a row gate.
const DefaultLockTimeout = 2 * time.Second

type lockKind uint8

const (
	productLock lockKind = iota + 1
	orderLock
)

type lockKey struct {
	kind lockKind
	id   int64
}

// Store is an in-memory sales persistence adapter. Each product and order has
// a gate (a one-slot channel) standing in for a row lock; transactions stage
// their writes and apply them under mu on commit.
type Store struct {
	mu          sync.RWMutex
	products    map[int64]domain.Product
	orders      map[int64]domain.Order
	payments    map[int64][]domain.Payment
	outbox      []ports.OutboxMessage
	nextProduct int64
	nextOrder   int64
	nextPayment int64
	failCommit  error

	gatesMu sync.Mutex
	gates   map[lockKey]chan struct{}

	lockTimeout time.Duration
}

type Option func(*Store)

// WithLockTimeout bounds lock waits. Zero or negative waits until ctx is done.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		products:    map[int64]domain.Product{},
		orders:      map[int64]domain.Order{},
		payments:    map[int64][]domain.Payment{},
		gates:       map[lockKey]chan struct{}{},
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// FailNextCommit makes the next commit fail with err after the transaction
// body has run, discarding everything it staged.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = err
}

// WithinTx runs fn with a fresh transaction. Gates are released on every path.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if fn == nil {
		return errors.New("transaction body is nil")
	}
	t := &tx{
		store:    s,
		held:     map[lockKey]struct{}{},
		products: map[int64]domain.Product{},
		orders:   map[int64]domain.Order{},
	}
	defer t.release()
	if err := fn(ctx, t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCommit != nil {
		err := s.failCommit
		s.failCommit = nil
		return fmt.Errorf("%w: %w", ports.ErrPersistence, err)
	}
	for _, p := range t.products {
		if p.Stock < 0 {
			return fmt.Errorf("%w: product %d stock would become negative", ports.ErrPersistence, p.ID)
		}
	}
	for id, p := range t.products {
		s.products[id] = p.Clone()
	}
	for id, o := range t.orders {
		s.orders[id] = o
	}
	for _, p := range t.payments {
		s.payments[p.OrderID] = append(s.payments[p.OrderID], p)
	}
	s.outbox = append(s.outbox, t.outbox...)
	return nil
}

func (s *Store) gate(key lockKey) chan struct{} {
	s.gatesMu.Lock()
	defer s.gatesMu.Unlock()
	g, ok := s.gates[key]
	if !ok {
		g = make(chan struct{}, 1)
		s.gates[key] = g
	}
	return g
}

func (s *Store) acquire(ctx context.Context, key lockKey) error {
	g := s.gate(key)
	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case g <- struct{}{}:
		return nil
	case <-timeout:
		return ports.ErrLockTimeout
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ports.ErrPersistence, ctx.Err())
	}
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ports.ErrProductNotFound
	}
	clone := p.Clone()
	return &clone, nil
}

func (s *Store) ListActiveProducts(_ context.Context, query ports.ProductQuery) ([]*domain.Product, int64, error) {
	keyword := strings.ToLower(strings.TrimSpace(query.Keyword))
	s.mu.RLock()
	matches := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			continue
		}
		matches = append(matches, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	total := int64(len(matches))
	start := (query.Page - 1) * query.Limit
	if start < 0 || start >= len(matches) {
		return []*domain.Product{}, total, nil
	}
	end := start + query.Limit
	if end > len(matches) {
		end = len(matches)
	}
	page := make([]*domain.Product, 0, end-start)
	for i := start; i < end; i++ {
		page = append(page, &matches[i])
	}
	return page, total, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	return &o, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	s.mu.RLock()
	list := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			clone := o
			list = append(list, &clone)
		}
	}
	s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) ListPayments(_ context.Context, orderID int64) ([]*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Payment, 0, len(s.payments[orderID]))
	for _, p := range s.payments[orderID] {
		clone := p
		list = append(list, &clone)
	}
	return list, nil
}

// PendingMessages returns unpublished messages in commit order.
func (s *Store) PendingMessages(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []ports.OutboxMessage
	for _, msg := range s.outbox {
		if msg.PublishedAt != nil {
			continue
		}
		pending = append(pending, cloneMessage(msg))
		if limit > 0 && len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if _, ok := want[s.outbox[i].ID]; ok && s.outbox[i].PublishedAt == nil {
			published := at
			s.outbox[i].PublishedAt = &published
		}
	}
	return nil
}

func cloneMessage(msg ports.OutboxMessage) ports.OutboxMessage {
	msg.Payload = append([]byte(nil), msg.Payload...)
	if msg.Headers != nil {
		headers := make(map[string]string, len(msg.Headers))
		for k, v := range msg.Headers {
			headers[k] = v
		}
		msg.Headers = headers
	}
	return msg
}
