package memory

import (
	"context"
	"errors"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var errNotLocked = errors.New("row must be loaded for update before it is written")

// tx stages writes against snapshots; nothing reaches the Store before commit.
type tx struct {
	store    *Store
	held     map[lockKey]struct{}
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	payments []domain.Payment
	outbox   []ports.OutboxMessage
}

func (t *tx) Inventory() ports.InventoryStore { return inventory{t} }
func (t *tx) Ledger() ports.OrderLedger       { return ledger{t} }
func (t *tx) Outbox() ports.OutboxWriter      { return outbox{t} }

func (t *tx) lock(ctx context.Context, key lockKey) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.store.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	return nil
}

func (t *tx) holds(key lockKey) bool {
	_, ok := t.held[key]
	return ok
}

func (t *tx) release() {
	for key := range t.held {
		<-t.store.gate(key)
	}
	t.held = nil
}

type inventory struct{ t *tx }

func (i inventory) LoadForUpdate(ctx context.Context, productID int64) (domain.Product, error) {
	if staged, ok := i.t.products[productID]; ok {
		return staged.Clone(), nil
	}
	if err := i.t.lock(ctx, lockKey{productLock, productID}); err != nil {
		return domain.Product{}, err
	}
	i.t.store.mu.RLock()
	p, ok := i.t.store.products[productID]
	i.t.store.mu.RUnlock()
	if !ok {
		return domain.Product{}, ports.ErrProductNotFound
	}
	return p.Clone(), nil
}

func (i inventory) Save(_ context.Context, product domain.Product) error {
	_, staged := i.t.products[product.ID]
	if !staged && !i.t.holds(lockKey{productLock, product.ID}) {
		return errNotLocked
	}
	i.t.products[product.ID] = product.Clone()
	return nil
}

func (i inventory) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	i.t.store.mu.Lock()
	i.t.store.nextProduct++
	product.ID = i.t.store.nextProduct
	i.t.store.mu.Unlock()
	if err := i.t.lock(ctx, lockKey{productLock, product.ID}); err != nil {
		return domain.Product{}, err
	}
	i.t.products[product.ID] = product.Clone()
	return product.Clone(), nil
}

type ledger struct{ t *tx }

func (l ledger) Append(_ context.Context, order domain.Order) (domain.Order, error) {
	if order.Quantity <= 0 {
		return domain.Order{}, domain.ErrInvalidQuantity
	}
	l.t.store.mu.Lock()
	l.t.store.nextOrder++
	order.ID = l.t.store.nextOrder
	l.t.store.mu.Unlock()
	l.t.orders[order.ID] = order
	return order, nil
}

func (l ledger) LoadForUpdate(ctx context.Context, orderID int64) (domain.Order, error) {
	if staged, ok := l.t.orders[orderID]; ok {
		return staged, nil
	}
	if err := l.t.lock(ctx, lockKey{orderLock, orderID}); err != nil {
		return domain.Order{}, err
	}
	l.t.store.mu.RLock()
	o, ok := l.t.store.orders[orderID]
	l.t.store.mu.RUnlock()
	if !ok {
		return domain.Order{}, ports.ErrOrderNotFound
	}
	return o, nil
}

func (l ledger) UpdateStatus(_ context.Context, order domain.Order) error {
	current, staged := l.t.orders[order.ID]
	if !staged {
		if !l.t.holds(lockKey{orderLock, order.ID}) {
			return errNotLocked
		}
		l.t.store.mu.RLock()
		stored, ok := l.t.store.orders[order.ID]
		l.t.store.mu.RUnlock()
		if !ok {
			return ports.ErrOrderNotFound
		}
		current = stored
	}
	current.Status = order.Status
	l.t.orders[order.ID] = current
	return nil
}

func (l ledger) RecordPayment(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	l.t.store.mu.Lock()
	l.t.store.nextPayment++
	payment.ID = l.t.store.nextPayment
	l.t.store.mu.Unlock()
	l.t.payments = append(l.t.payments, payment)
	return payment, nil
}

type outbox struct{ t *tx }

func (o outbox) Enqueue(_ context.Context, msg ports.OutboxMessage) error {
	o.t.outbox = append(o.t.outbox, cloneMessage(msg))
	return nil
}
