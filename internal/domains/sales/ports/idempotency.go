package ports

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrIdempotencyConflict indicates the same key was used with a different request.
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	// ErrIdempotencyInFlight indicates another request holding the same key has not finished.
	ErrIdempotencyInFlight = errors.New("idempotent request already in progress")
)

// IdempotencyRecord associates a client-supplied key with the resulting order.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     int64
	CreatedAt   time.Time
}

// Completed reports whether the claimed request produced an order.
func (r IdempotencyRecord) Completed() bool {
	return r.OrderID > 0
}

// IdempotencyStore guards order placement against client retries.
type IdempotencyStore interface {
	// Claim reserves the key for requestHash. When the key already exists the
	// stored record is returned with claimed=false.
	Claim(ctx context.Context, key, requestHash string) (record *IdempotencyRecord, claimed bool, err error)
	// Complete binds a claimed key to the order it produced.
	Complete(ctx context.Context, key string, orderID int64) error
	// Release drops a claim whose request failed so the client may retry.
	Release(ctx context.Context, key string) error
}
