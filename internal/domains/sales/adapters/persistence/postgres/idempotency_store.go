package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore persists Idempotency-Key claims in PostgreSQL. It is used
// when Redis is not configured.
type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewIdempotencyStore wires a PostgreSQL-backed idempotency store; records older than ttl may be reclaimed.
func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl, now: time.Now}
}

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     int64     `gorm:"column:order_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }

// Claim inserts the key; ON CONFLICT DO NOTHING tells a fresh claim from an existing one.
func (s *IdempotencyStore) Claim(ctx context.Context, key, requestHash string) (*ports.IdempotencyRecord, bool, error) {
	if err := s.ensureDB(); err != nil {
		return nil, false, err
	}
	now := s.now()
	if s.ttl > 0 {
		if err := s.db.WithContext(ctx).
			Where("key = ? AND created_at < ?", key, now.Add(-s.ttl)).
			Delete(&idempotencyRecord{}).Error; err != nil {
			return nil, false, translate(err)
		}
	}
	record := idempotencyRecord{Key: key, RequestHash: requestHash, CreatedAt: now}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		return nil, false, translate(result.Error)
	}
	if result.RowsAffected == 1 {
		return toPortRecord(&record), true, nil
	}
	var existing idempotencyRecord
	if err := s.db.WithContext(ctx).First(&existing, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// released between our insert and read; report in flight so the client retries
			return &ports.IdempotencyRecord{Key: key, RequestHash: requestHash}, false, nil
		}
		return nil, false, translate(err)
	}
	return toPortRecord(&existing), false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, orderID int64) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return translate(s.db.WithContext(ctx).Model(&idempotencyRecord{}).
		Where("key = ?", key).
		Update("order_id", orderID).Error)
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return translate(s.db.WithContext(ctx).
		Where("key = ? AND order_id = 0", key).
		Delete(&idempotencyRecord{}).Error)
}

func (s *IdempotencyStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres idempotency store not configured")
	}
	return nil
}

func toPortRecord(rec *idempotencyRecord) *ports.IdempotencyRecord {
	if rec == nil {
		return nil
	}
	return &ports.IdempotencyRecord{
		Key:         rec.Key,
		RequestHash: rec.RequestHash,
		OrderID:     rec.OrderID,
		CreatedAt:   rec.CreatedAt,
	}
}
