package application

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

// newOutboxMessage serializes event keyed by order id and captures the
// caller's trace context so consumers continue the same trace.
func (s *Service) newOutboxMessage(ctx context.Context, orderID int64, event domain.Event) (ports.OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	headers := map[string]string{}
	s.propagator.Inject(ctx, propagation.MapCarrier(headers))
	return ports.OutboxMessage{
		ID:        uuid.NewString(),
		Topic:     s.orderTopic,
		Key:       strconv.FormatInt(orderID, 10),
		EventType: event.EventName(),
		Payload:   payload,
		Headers:   headers,
		CreatedAt: s.now(),
	}, nil
}
