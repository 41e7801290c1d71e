package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

const (
	DefaultKeyPrefix = "flashsale:idem:"
	DefaultTTL       = 24 * time.Hour
)

// claimScript creates the hash and its expiry atomically; an existing key is
// returned untouched as [request_hash, order_id, created_at].
var claimScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('HMGET', KEYS[1], 'request_hash', 'order_id', 'created_at')
end
redis.call('HSET', KEYS[1], 'request_hash', ARGV[1], 'order_id', '0', 'created_at', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return false
`)

var completeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HSET', KEYS[1], 'order_id', ARGV[1])
	return 1
end
return 0
`)

// releaseScript only drops claims that never produced an order.
var releaseScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'order_id') == '0' then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// IdempotencyStore keeps Idempotency-Key claims in Redis hashes with a TTL.
type IdempotencyStore struct {
	client goredis.Scripter
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*IdempotencyStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *IdempotencyStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *IdempotencyStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewIdempotencyStore(client goredis.Scripter, opts ...Option) *IdempotencyStore {
	s := &IdempotencyStore{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *IdempotencyStore) Claim(ctx context.Context, key, requestHash string) (*ports.IdempotencyRecord, bool, error) {
	if err := s.ensureClient(); err != nil {
		return nil, false, err
	}
	now := s.now().UTC()
	res, err := claimScript.Run(ctx, s.client, []string{s.prefix + key},
		requestHash, now.Format(time.RFC3339Nano), s.ttl.Milliseconds()).Slice()
	if errors.Is(err, goredis.Nil) {
		return &ports.IdempotencyRecord{Key: key, RequestHash: requestHash, CreatedAt: now}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	record, err := parseRecord(key, res)
	if err != nil {
		return nil, false, err
	}
	return record, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, orderID int64) error {
	if err := s.ensureClient(); err != nil {
		return err
	}
	return completeScript.Run(ctx, s.client, []string{s.prefix + key}, orderID).Err()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.ensureClient(); err != nil {
		return err
	}
	return releaseScript.Run(ctx, s.client, []string{s.prefix + key}).Err()
}

func (s *IdempotencyStore) ensureClient() error {
	if s == nil || s.client == nil {
		return errors.New("redis idempotency store not configured")
	}
	return nil
}

func parseRecord(key string, fields []interface{}) (*ports.IdempotencyRecord, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("idempotency record %q: unexpected reply length %d", key, len(fields))
	}
	str := func(v interface{}) string {
		s, _ := v.(string)
		return s
	}
	record := &ports.IdempotencyRecord{Key: key, RequestHash: str(fields[0])}
	if raw := str(fields[1]); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("idempotency record %q: %w", key, err)
		}
		record.OrderID = id
	}
	if raw := str(fields[2]); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			record.CreatedAt = ts
		}
	}
	return record, nil
}
