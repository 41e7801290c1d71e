//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/application"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
	"github.com/Apurer/flash-sale-engine/internal/platform/migrations"
)

func setupSalesPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("flashsale_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func seedUsers(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		err := db.Exec("INSERT INTO users (id, email, password_hash, is_active, created_at, updated_at) VALUES (?, ?, 'x', true, NOW(), NOW())",
			i, fmt.Sprintf("buyer%d@example.com", i)).Error
		require.NoError(t, err)
	}
}

func TestStore_PlaceOrderDeductsStockAndStagesEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupSalesPostgresContainer(t)
	defer cleanup()
	seedUsers(t, db, 1)

	store := NewStore(db)
	svc := application.NewService(store, nil)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ports.CreateProductInput{Name: "Limited Sneaker", Price: decimal.RequireFromString("100.00"), Stock: 5})
	require.NoError(t, err)

	order, err := svc.PlaceOrder(ctx, ports.PlaceOrderInput{UserID: 1, ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "300.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	reloaded, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Stock)

	pending, err := store.PendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "orders.order.placed", pending[0].EventType)

	require.NoError(t, store.MarkPublished(ctx, []string{pending[0].ID}, time.Now()))
	pending, err = store.PendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStore_UnknownUserViolatesForeignKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupSalesPostgresContainer(t)
	defer cleanup()

	store := NewStore(db)
	svc := application.NewService(store, nil)
	ctx := context.Background()
	product, err := svc.CreateProduct(ctx, ports.CreateProductInput{Name: "Limited Sneaker", Price: decimal.NewFromInt(10), Stock: 5})
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, ports.PlaceOrderInput{UserID: 77, ProductID: product.ID, Quantity: 1})
	require.ErrorIs(t, err, ports.ErrUserNotFound)

	reloaded, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestStore_ConcurrentPlacementNeverOversells(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupSalesPostgresContainer(t)
	defer cleanup()
	seedUsers(t, db, 2)

	store := NewStore(db, WithLockTimeout(5*time.Second))
	svc := application.NewService(store, nil)
	ctx := context.Background()
	product, err := svc.CreateProduct(ctx, ports.CreateProductInput{Name: "Limited Sneaker", Price: decimal.NewFromInt(50), Stock: 10})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		shortages atomic.Int32
	)
	for i := 1; i <= 2; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, ports.PlaceOrderInput{UserID: user, ProductID: product.ID, Quantity: 6})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				shortages.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(1), shortages.Load())
	reloaded, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Stock)
}

func TestStore_LockTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupSalesPostgresContainer(t)
	defer cleanup()

	store := NewStore(db, WithLockTimeout(100*time.Millisecond))
	svc := application.NewService(store, nil)
	ctx := context.Background()
	product, err := svc.CreateProduct(ctx, ports.CreateProductInput{Name: "Limited Sneaker", Price: decimal.NewFromInt(50), Stock: 10})
	require.NoError(t, err)

	holding := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
			if _, err := tx.Inventory().LoadForUpdate(ctx, product.ID); err != nil {
				return err
			}
			close(holding)
			<-finish
			return nil
		})
	}()
	<-holding

	_, err = svc.UpdateStock(ctx, product.ID, 3)
	require.ErrorIs(t, err, ports.ErrLockTimeout)
	assert.True(t, application.Retryable(err))

	close(finish)
	require.NoError(t, <-done)
	_, err = svc.UpdateStock(ctx, product.ID, 3)
	require.NoError(t, err)
}

func TestStore_SettlementRestocks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupSalesPostgresContainer(t)
	defer cleanup()
	seedUsers(t, db, 1)

	store := NewStore(db)
	svc := application.NewService(store, nil)
	ctx := context.Background()
	product, err := svc.CreateProduct(ctx, ports.CreateProductInput{
		Name:      "Limited Sneaker",
		Price:     decimal.RequireFromString("19.99"),
		Stock:     4,
		ImageURLs: []string{"https://cdn.example.com/a.png"},
	})
	require.NoError(t, err)
	order, err := svc.PlaceOrder(ctx, ports.PlaceOrderInput{UserID: 1, ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "59.97", order.TotalAmount.StringFixed(2))

	settled, err := svc.RecordPayment(ctx, ports.PaymentOutcome{OrderID: order.ID, Provider: "stripe", Status: domain.PaymentStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, settled.Status)

	reloaded, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Stock)
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, reloaded.ImageURLs)

	payments, err := store.ListPayments(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestIdempotencyStore_Claim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupSalesPostgresContainer(t)
	defer cleanup()

	idem := NewIdempotencyStore(db, time.Hour)
	ctx := context.Background()

	_, claimed, err := idem.Claim(ctx, "key-1", "hash")
	require.NoError(t, err)
	assert.True(t, claimed)

	record, claimed, err := idem.Claim(ctx, "key-1", "hash")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.False(t, record.Completed())

	require.NoError(t, idem.Release(ctx, "key-1"))
	_, claimed, err = idem.Claim(ctx, "key-1", "hash")
	require.NoError(t, err)
	assert.True(t, claimed)
}
