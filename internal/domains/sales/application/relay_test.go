package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []ports.OutboxMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msgs ...ports.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msgs...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func TestRelay_RunOncePublishesAndMarks(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, svc, "5.00", 10)
	for i := 0; i < 3; i++ {
		_, err := svc.PlaceOrder(ctx, ports.PlaceOrderInput{UserID: 1, ProductID: product.ID, Quantity: 1})
		require.NoError(t, err)
	}

	publisher := &recordingPublisher{}
	relay := NewRelay(store, publisher, WithBatchSize(2), WithRelayClock(func() time.Time { return fixedNow }))

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, 3, publisher.count())
	pending, err := store.PendingMessages(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelay_PublishFailureKeepsMessages(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, svc, "5.00", 10)
	_, err := svc.PlaceOrder(ctx, ports.PlaceOrderInput{UserID: 1, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	publisher := &recordingPublisher{err: errors.New("broker down")}
	relay := NewRelay(store, publisher)
	_, err = relay.RunOnce(ctx)
	require.Error(t, err)

	pending, err := store.PendingMessages(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	svc, store := newTestService(t)
	product := seedProduct(t, svc, "5.00", 10)
	_, err := svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{UserID: 1, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	relay := NewRelay(store, publisher)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return publisher.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelay_NotConfigured(t *testing.T) {
	_, err := NewRelay(nil, nil).RunOnce(context.Background())
	require.Error(t, err)
}
