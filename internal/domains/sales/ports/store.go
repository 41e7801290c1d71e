package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	// ErrPersistence marks a storage failure; the enclosing transaction was rolled back.
	ErrPersistence = errors.New("persistence failure")
	// ErrLockTimeout is a persistence failure raised when a row lock could not be acquired in time.
	ErrLockTimeout = fmt.Errorf("%w: lock wait timeout exceeded", ErrPersistence)
)

// InventoryStore is the product side of a transaction. LoadForUpdate takes the
// product's exclusive lock and holds it until the transaction ends.
type InventoryStore interface {
	LoadForUpdate(ctx context.Context, productID int64) (domain.Product, error)
	Save(ctx context.Context, product domain.Product) error
	Create(ctx context.Context, product domain.Product) (domain.Product, error)
}

// OrderLedger is the order side of a transaction.
type OrderLedger interface {
	// Append inserts a new order and returns it with its assigned id.
	Append(ctx context.Context, order domain.Order) (domain.Order, error)
	LoadForUpdate(ctx context.Context, orderID int64) (domain.Order, error)
	UpdateStatus(ctx context.Context, order domain.Order) error
	RecordPayment(ctx context.Context, payment domain.Payment) (domain.Payment, error)
}

// OutboxWriter stages messages that become visible with the transaction's commit.
type OutboxWriter interface {
	Enqueue(ctx context.Context, msg OutboxMessage) error
}

// Tx is one atomic unit of work. Nothing written through it is visible until commit.
type Tx interface {
	Inventory() InventoryStore
	Ledger() OrderLedger
	Outbox() OutboxWriter
}

// UnitOfWork runs fn inside a transaction. It commits when fn returns nil and
// rolls back on any error, releasing every lock taken through the Tx.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ProductQuery filters the active catalog listing.
type ProductQuery struct {
	Page    int
	Limit   int
	Keyword string
}

// CatalogReader serves lock-free reads; results may trail in-flight transactions.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListActiveProducts(ctx context.Context, query ProductQuery) ([]*domain.Product, int64, error)
}

// OrderReader serves lock-free order reads.
type OrderReader interface {
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	ListPayments(ctx context.Context, orderID int64) ([]*domain.Payment, error)
}

// OutboxReader is consumed by the relay.
type OutboxReader interface {
	PendingMessages(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// Store bundles everything a sales persistence adapter provides.
type Store interface {
	UnitOfWork
	CatalogReader
	OrderReader
	OutboxReader
}
