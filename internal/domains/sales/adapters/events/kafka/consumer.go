package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// errPoison marks a message that can never be handled; it is committed and skipped.
var errPoison = errors.New("undecodable message")

// OrderPlacedConsumer starts a settlement for every orders.order.placed event.
// Offsets are committed only after the orchestrator accepted the event, so a
// crash re-delivers; Begin is idempotent per order.
type OrderPlacedConsumer struct {
	reader       MessageReader
	orchestrator ports.SettlementOrchestrator
	logger       *slog.Logger
	propagator   propagation.TextMapPropagator
	sleep        func(context.Context, time.Duration) error
}

func NewOrderPlacedConsumer(reader MessageReader, orchestrator ports.SettlementOrchestrator, logger *slog.Logger) *OrderPlacedConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderPlacedConsumer{
		reader:       reader,
		orchestrator: orchestrator,
		logger:       logger,
		propagator:   otel.GetTextMapPropagator(),
		sleep:        sleepCtx,
	}
}

// Run consumes until ctx is done. A failing message is retried with backoff
// and blocks its partition until it succeeds.
func (c *OrderPlacedConsumer) Run(ctx context.Context) error {
	if c == nil || c.reader == nil || c.orchestrator == nil {
		return errors.New("order placed consumer not configured")
	}
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *OrderPlacedConsumer) process(ctx context.Context, msg kafkago.Message) error {
	backoff := initialBackoff
	for {
		err := c.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, errPoison) {
			c.logger.ErrorContext(ctx, "skipping undecodable message",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()))
			return nil
		}
		c.logger.WarnContext(ctx, "order placed handling failed, retrying",
			slog.Int64("offset", msg.Offset),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))
		if err := c.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Handle decodes one message and hands placement events to the orchestrator.
// Other event types on the topic are ignored.
func (c *OrderPlacedConsumer) Handle(ctx context.Context, msg kafkago.Message) error {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		carrier[h.Key] = string(h.Value)
	}
	ctx = c.propagator.Extract(ctx, carrier)

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("%w: %w", errPoison, err)
	}
	if env.EventType != (domain.OrderPlaced{}).EventName() {
		return nil
	}
	var event domain.OrderPlaced
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		return fmt.Errorf("%w: %w", errPoison, err)
	}
	if event.OrderID <= 0 {
		return fmt.Errorf("%w: order id missing", errPoison)
	}
	if err := c.orchestrator.Begin(ctx, event); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "settlement started", slog.Int64("order.id", event.OrderID))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
