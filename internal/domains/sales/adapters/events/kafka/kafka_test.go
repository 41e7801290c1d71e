package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

type fakeWriter struct {
	written []kafkago.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

type fakeReader struct {
	msgs      []kafkago.Message
	committed []kafkago.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

type fakeOrchestrator struct {
	begun    []domain.OrderPlaced
	failures int
}

func (o *fakeOrchestrator) Begin(_ context.Context, event domain.OrderPlaced) error {
	if o.failures > 0 {
		o.failures--
		return errors.New("temporal unavailable")
	}
	o.begun = append(o.begun, event)
	return nil
}

func (o *fakeOrchestrator) Notify(context.Context, ports.PaymentOutcome) error { return nil }

func placedMessage(t *testing.T) ports.OutboxMessage {
	t.Helper()
	order := domain.Order{
		ID:          7,
		UserID:      1,
		ProductID:   3,
		Quantity:    2,
		TotalAmount: decimal.RequireFromString("39.98"),
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(domain.NewOrderPlaced(order))
	require.NoError(t, err)
	return ports.OutboxMessage{
		ID:        "evt-1",
		Topic:     "flashsale.orders",
		Key:       "7",
		EventType: "orders.order.placed",
		Payload:   payload,
		Headers:   map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		CreatedAt: order.CreatedAt,
	}
}

func newTestPublisher(w MessageWriter) *Publisher {
	p := NewPublisher(w, "")
	p.propagator = propagation.TraceContext{}
	return p
}

func TestPublisher_WritesEnvelope(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, newTestPublisher(writer).Publish(context.Background(), placedMessage(t)))

	require.Len(t, writer.written, 1)
	km := writer.written[0]
	assert.Equal(t, "flashsale.orders", km.Topic)
	assert.Equal(t, "7", string(km.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(km.Value, &env))
	assert.Equal(t, "evt-1", env.EventID)
	assert.Equal(t, "orders.order.placed", env.EventType)
	assert.Equal(t, EnvelopeVersion, env.EventVersion)
	assert.Equal(t, DefaultProducer, env.Producer)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", env.TraceID)

	headers := map[string]string{}
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "orders.order.placed", headers[HeaderEventType])
	assert.Contains(t, headers, "traceparent")
}

func TestPublisher_PropagatesWriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	err := newTestPublisher(writer).Publish(context.Background(), placedMessage(t))
	require.Error(t, err)
}

func TestConsumer_BeginsSettlementAndCommits(t *testing.T) {
	writer := &fakeWriter{}
	placed := placedMessage(t)
	settled := placed
	settled.ID = "evt-2"
	settled.EventType = "orders.order.settled"
	settled.Payload = []byte(`{"order_id":7}`)
	require.NoError(t, newTestPublisher(writer).Publish(context.Background(), placed, settled))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		msgs:   append([]kafkago.Message{{Value: []byte("not json"), Offset: 1}}, writer.written...),
		cancel: cancel,
	}
	orchestrator := &fakeOrchestrator{failures: 1}
	consumer := NewOrderPlacedConsumer(reader, orchestrator, slog.New(slog.NewTextHandler(io.Discard, nil)))
	consumer.propagator = propagation.TraceContext{}
	consumer.sleep = func(context.Context, time.Duration) error { return nil }

	require.NoError(t, consumer.Run(ctx))

	require.Len(t, orchestrator.begun, 1)
	event := orchestrator.begun[0]
	assert.EqualValues(t, 7, event.OrderID)
	assert.Equal(t, "39.98", event.TotalAmount)
	assert.Len(t, reader.committed, 3)
}

func TestConsumer_HandleExtractsTrace(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, newTestPublisher(writer).Publish(context.Background(), placedMessage(t)))

	var seen trace.SpanContext
	orchestrator := &traceRecorder{seen: &seen}
	consumer := NewOrderPlacedConsumer(&fakeReader{}, orchestrator, slog.New(slog.NewTextHandler(io.Discard, nil)))
	consumer.propagator = propagation.TraceContext{}

	require.NoError(t, consumer.Handle(context.Background(), writer.written[0]))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen.TraceID().String())
}

type traceRecorder struct {
	seen *trace.SpanContext
}

func (r *traceRecorder) Begin(ctx context.Context, _ domain.OrderPlaced) error {
	*r.seen = trace.SpanContextFromContext(ctx)
	return nil
}

func (r *traceRecorder) Notify(context.Context, ports.PaymentOutcome) error { return nil }
