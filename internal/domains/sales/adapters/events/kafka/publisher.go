package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var _ ports.EventPublisher = (*Publisher)(nil)

const (
	EnvelopeVersion = 1
	DefaultProducer = "flash-sale-engine"

	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// Envelope wraps every event written to Kafka.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	TraceID      string          `json:"trace_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Publisher writes outbox messages as envelopes, keyed by order id, with the
// originating trace context in the headers.
type Publisher struct {
	writer     MessageWriter
	producer   string
	propagator propagation.TextMapPropagator
}

func NewPublisher(writer MessageWriter, producer string) *Publisher {
	if producer == "" {
		producer = DefaultProducer
	}
	return &Publisher{writer: writer, producer: producer, propagator: otel.GetTextMapPropagator()}
}

// Publish writes the batch in one call; either the broker acknowledges all of
// it or the caller retries all of it.
func (p *Publisher) Publish(ctx context.Context, msgs ...ports.OutboxMessage) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher not configured")
	}
	if len(msgs) == 0 {
		return nil
	}
	batch := make([]kafkago.Message, 0, len(msgs))
	for _, msg := range msgs {
		km, err := p.toKafkaMessage(ctx, msg)
		if err != nil {
			return err
		}
		batch = append(batch, km)
	}
	return p.writer.WriteMessages(ctx, batch...)
}

func (p *Publisher) toKafkaMessage(ctx context.Context, msg ports.OutboxMessage) (kafkago.Message, error) {
	carrier := propagation.MapCarrier{}
	for k, v := range msg.Headers {
		carrier[k] = v
	}
	origin := p.propagator.Extract(ctx, carrier)
	env := Envelope{
		EventID:      msg.ID,
		EventType:    msg.EventType,
		EventVersion: EnvelopeVersion,
		OccurredAt:   msg.CreatedAt.UTC(),
		Producer:     p.producer,
		Payload:      json.RawMessage(msg.Payload),
	}
	if sc := trace.SpanContextFromContext(origin); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafkago.Message{}, err
	}
	headers := []kafkago.Header{
		{Key: HeaderEventID, Value: []byte(msg.ID)},
		{Key: HeaderEventType, Value: []byte(msg.EventType)},
	}
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return kafkago.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   value,
		Headers: headers,
		Time:    msg.CreatedAt,
	}, nil
}
