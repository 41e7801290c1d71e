package application

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

const DefaultRelayBatchSize = 100

// Relay moves committed outbox messages to the event publisher. Delivery is
// at-least-once: a crash between publish and mark republishes the batch.
type Relay struct {
	outbox    ports.OutboxReader
	publisher ports.EventPublisher
	batchSize int
	now       func() time.Time
	onError   func(error)
}

type RelayOption func(*Relay)

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithErrorHandler receives errors from Run iterations; Run keeps going after them.
func WithErrorHandler(fn func(error)) RelayOption {
	return func(r *Relay) {
		r.onError = fn
	}
}

func WithRelayClock(now func() time.Time) RelayOption {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRelay(outbox ports.OutboxReader, publisher ports.EventPublisher, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		batchSize: DefaultRelayBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RunOnce publishes one batch and returns how many messages were relayed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	if r == nil || r.outbox == nil || r.publisher == nil {
		return 0, errors.New("outbox relay not configured")
	}
	msgs, err := r.outbox.PendingMessages(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := r.publisher.Publish(ctx, msgs...); err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}
	if err := r.outbox.MarkPublished(ctx, ids, r.now()); err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// Run drains the outbox, then polls every interval until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if r.onError != nil && ctx.Err() == nil {
					r.onError(err)
				}
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
