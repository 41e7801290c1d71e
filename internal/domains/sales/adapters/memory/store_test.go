package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

func seed(t *testing.T, s *Store, stock int) domain.Product {
	t.Helper()
	var created domain.Product
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		p, err := domain.NewProduct("Console", decimal.NewFromInt(300), stock, nil)
		if err != nil {
			return err
		}
		created, err = tx.Inventory().Create(ctx, p)
		return err
	})
	require.NoError(t, err)
	return created
}

func TestWithinTx_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore()
	product := seed(t, s, 5)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		p, err := tx.Inventory().LoadForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		p.Stock = 1
		if err := tx.Inventory().Save(ctx, p); err != nil {
			return err
		}
		if _, err := tx.Ledger().Append(ctx, domain.Order{UserID: 1, ProductID: p.ID, Quantity: 4}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := s.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Stock)
	orders, err := s.ListOrdersByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestWithinTx_SaveRequiresLock(t *testing.T) {
	s := NewStore()
	product := seed(t, s, 5)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.Inventory().Save(ctx, product)
	})
	require.ErrorIs(t, err, errNotLocked)
}

func TestWithinTx_LockTimeout(t *testing.T) {
	s := NewStore(WithLockTimeout(20 * time.Millisecond))
	product := seed(t, s, 5)

	holding := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
			if _, err := tx.Inventory().LoadForUpdate(ctx, product.ID); err != nil {
				return err
			}
			close(holding)
			<-finish
			return nil
		})
	}()
	<-holding

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Inventory().LoadForUpdate(ctx, product.ID)
		return err
	})
	require.ErrorIs(t, err, ports.ErrLockTimeout)
	require.ErrorIs(t, err, ports.ErrPersistence)

	close(finish)
	require.NoError(t, <-done)

	// released on commit
	err = s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Inventory().LoadForUpdate(ctx, product.ID)
		return err
	})
	require.NoError(t, err)
}

func TestWithinTx_WaiterSeesCommittedStock(t *testing.T) {
	s := NewStore()
	product := seed(t, s, 5)

	holding := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
			p, err := tx.Inventory().LoadForUpdate(ctx, product.ID)
			if err != nil {
				return err
			}
			close(holding)
			<-release
			p.Stock -= 4
			return tx.Inventory().Save(ctx, p)
		})
	}()
	<-holding

	observed := make(chan int, 1)
	second := make(chan error, 1)
	go func() {
		second <- s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
			p, err := tx.Inventory().LoadForUpdate(ctx, product.ID)
			if err != nil {
				return err
			}
			observed <- p.Stock
			return nil
		})
	}()

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.Equal(t, 1, <-observed)
}

func TestWithinTx_ContextCancelledWhileWaiting(t *testing.T) {
	s := NewStore(WithLockTimeout(0))
	product := seed(t, s, 5)

	holding := make(chan struct{})
	finish := make(chan struct{})
	go func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
			if _, err := tx.Inventory().LoadForUpdate(ctx, product.ID); err != nil {
				return err
			}
			close(holding)
			<-finish
			return nil
		})
	}()
	<-holding
	defer close(finish)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Inventory().LoadForUpdate(ctx, product.ID)
		return err
	})
	require.ErrorIs(t, err, ports.ErrPersistence)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMarkPublished(t *testing.T) {
	s := NewStore()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		for _, id := range []string{"a", "b"} {
			if err := tx.Outbox().Enqueue(ctx, ports.OutboxMessage{ID: id, Payload: []byte("{}")}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.MarkPublished(context.Background(), []string{"a"}, time.Now()))
	pending, err := s.PendingMessages(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
}

func TestIdempotencyStore_ClaimCompleteRelease(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewIdempotencyStore(time.Hour)
	s.WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, claimed, err := s.Claim(ctx, "k", "h1")
	require.NoError(t, err)
	assert.True(t, claimed)

	record, claimed, err := s.Claim(ctx, "k", "h1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.False(t, record.Completed())

	require.NoError(t, s.Complete(ctx, "k", 7))
	require.NoError(t, s.Release(ctx, "k"))
	record, claimed, err = s.Claim(ctx, "k", "h1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.EqualValues(t, 7, record.OrderID)

	now = now.Add(2 * time.Hour)
	_, claimed, err = s.Claim(ctx, "k", "h2")
	require.NoError(t, err)
	assert.True(t, claimed)
}
