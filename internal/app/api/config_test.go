package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "POSTGRES_DSN", "REDIS_URL", "KAFKA_BROKERS", "MAX_ORDER_QUANTITY",
		"LOCK_WAIT_TIMEOUT", "PAYMENT_WINDOW", "RESTOCK_ON_PAYMENT_FAILURE", "IDEMPOTENCY_TTL",
		"OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "TEMPORAL_DISABLED", "KAFKA_ORDER_TOPIC", "KAFKA_CONSUMER_GROUP"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.MaxOrderQuantity)
	assert.Equal(t, 2*time.Second, cfg.LockWaitTimeout)
	assert.Equal(t, 15*time.Minute, cfg.PaymentWindow)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.True(t, cfg.RestockOnPaymentFailure)
	assert.False(t, cfg.TemporalDisabled)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "flashsale.orders", cfg.KafkaOrderTopic)
	assert.Equal(t, "flashsale-settlement", cfg.KafkaConsumerGroup)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("MAX_ORDER_QUANTITY", "3")
	t.Setenv("LOCK_WAIT_TIMEOUT", "500ms")
	t.Setenv("RESTOCK_ON_PAYMENT_FAILURE", "false")
	t.Setenv("TEMPORAL_DISABLED", "yes")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 3, cfg.MaxOrderQuantity)
	assert.Equal(t, 500*time.Millisecond, cfg.LockWaitTimeout)
	assert.False(t, cfg.RestockOnPaymentFailure)
	assert.True(t, cfg.TemporalDisabled)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"MAX_ORDER_QUANTITY":         "0",
		"OUTBOX_BATCH_SIZE":          "many",
		"LOCK_WAIT_TIMEOUT":          "-1s",
		"PAYMENT_WINDOW":             "15",
		"RESTOCK_ON_PAYMENT_FAILURE": "sometimes",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
