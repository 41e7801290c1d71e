package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore provides an in-memory implementation for development and tests.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewIdempotencyStore constructs an empty store; records older than ttl are forgotten (0 keeps them forever).
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records: map[string]ports.IdempotencyRecord{},
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *IdempotencyStore) Claim(_ context.Context, key, requestHash string) (*ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.records[key]; ok && !s.expired(existing, now) {
		copy := existing
		return &copy, false, nil
	}
	record := ports.IdempotencyRecord{Key: key, RequestHash: requestHash, CreatedAt: now}
	s.records[key] = record
	return &record, true, nil
}

func (s *IdempotencyStore) Complete(_ context.Context, key string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return nil
	}
	record.OrderID = orderID
	s.records[key] = record
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[key]; ok && !record.Completed() {
		delete(s.records, key)
	}
	return nil
}

func (s *IdempotencyStore) expired(record ports.IdempotencyRecord, now time.Time) bool {
	return s.ttl > 0 && now.Sub(record.CreatedAt) >= s.ttl
}
