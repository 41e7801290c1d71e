package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var _ ports.Store = (*Store)(nil)

// DefaultLockTimeout is applied with SET LOCAL lock_timeout in every transaction.
const DefaultLockTimeout = 2 * time.Second

// Store persists the sales context in PostgreSQL using GORM. Row locks are
// SELECT ... FOR UPDATE taken inside WithinTx. Caller manages DB lifecycle and
// schema (see platform/migrations).
type Store struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

type Option func(*Store)

// WithLockTimeout bounds row lock waits. Zero disables the bound.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.lockTimeout = d
		}
	}
}

func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithinTx runs fn in a database transaction. The transaction is detached from
// ctx cancellation once started: a caller that goes away mid-flight does not
// abort a commit that holds locks, and lock waits are bounded by lock_timeout.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if fn == nil {
		return errors.New("transaction body is nil")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrPersistence, err)
	}
	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(db *gorm.DB) error {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := db.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(ctx, &tx{db: db})
	})
	return translate(err)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrProductNotFound
		}
		return nil, translate(err)
	}
	p := record.toDomain()
	return &p, nil
}

// ListActiveProducts pages through active products ordered by id.
func (s *Store) ListActiveProducts(ctx context.Context, query ports.ProductQuery) ([]*domain.Product, int64, error) {
	if err := s.ensureDB(); err != nil {
		return nil, 0, err
	}
	scope := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&productRecord{}).Where("is_active = ?", true)
		if kw := strings.TrimSpace(query.Keyword); kw != "" {
			q = q.Where("name ILIKE ?", "%"+escapeLike(kw)+"%")
		}
		return q
	}
	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var records []productRecord
	offset := (query.Page - 1) * query.Limit
	if err := scope().Order("id").Offset(offset).Limit(query.Limit).Find(&records).Error; err != nil {
		return nil, 0, translate(err)
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		p := records[i].toDomain()
		products = append(products, &p)
	}
	return products, total, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrOrderNotFound
		}
		return nil, translate(err)
	}
	o := record.toDomain()
	return &o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&records).Error; err != nil {
		return nil, translate(err)
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		o := records[i].toDomain()
		orders = append(orders, &o)
	}
	return orders, nil
}

func (s *Store) ListPayments(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []paymentRecord
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&records).Error; err != nil {
		return nil, translate(err)
	}
	payments := make([]*domain.Payment, 0, len(records))
	for i := range records {
		p := records[i].toDomain()
		payments = append(payments, &p)
	}
	return payments, nil
}

// PendingMessages returns unpublished outbox messages oldest first.
func (s *Store) PendingMessages(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("published_at IS NULL").Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []outboxRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, translate(err)
	}
	msgs := make([]ports.OutboxMessage, 0, len(records))
	for i := range records {
		msgs = append(msgs, records[i].toPort())
	}
	return msgs, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&outboxRecord{}).
		Where("id IN ? AND published_at IS NULL", ids).
		Update("published_at", at).Error
	return translate(err)
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres sales store not configured")
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
