package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	platformkafka "github.com/Apurer/flash-sale-engine/internal/platform/kafka"
)

// Config carries environment-driven settings shared by the api, worker and relay processes.
type Config struct {
	Port        string
	PostgresDSN string
	RedisURL    string

	KafkaBrokers       []string
	KafkaOrderTopic    string
	KafkaConsumerGroup string

	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	MaxOrderQuantity        int
	LockWaitTimeout         time.Duration
	PaymentWindow           time.Duration
	RestockOnPaymentFailure bool
	IdempotencyTTL          time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:               envDefault("PORT", "8080"),
		PostgresDSN:        strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		KafkaBrokers:       platformkafka.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:    envDefault("KAFKA_ORDER_TOPIC", "flashsale.orders"),
		KafkaConsumerGroup: envDefault("KAFKA_CONSUMER_GROUP", "flashsale-settlement"),
		TemporalAddress:    envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace:  envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:   isTruthy(os.Getenv("TEMPORAL_DISABLED")),
	}

	var err error
	if cfg.MaxOrderQuantity, err = positiveInt("MAX_ORDER_QUANTITY", 10); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = positiveInt("OUTBOX_BATCH_SIZE", 100); err != nil {
		return Config{}, err
	}
	if cfg.LockWaitTimeout, err = positiveDuration("LOCK_WAIT_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PaymentWindow, err = positiveDuration("PAYMENT_WINDOW", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = positiveDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = positiveDuration("OUTBOX_POLL_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	cfg.RestockOnPaymentFailure = true
	if raw := strings.TrimSpace(os.Getenv("RESTOCK_ON_PAYMENT_FAILURE")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("RESTOCK_ON_PAYMENT_FAILURE must be a boolean")
		}
		cfg.RestockOnPaymentFailure = enabled
	}
	return cfg, nil
}

// KafkaEnabled reports whether a broker list was configured.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func positiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func positiveDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 2s or 15m", key)
	}
	return d, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
