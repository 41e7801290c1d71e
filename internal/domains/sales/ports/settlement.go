package ports

import (
	"context"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
)

// SettlementOrchestrator drives the post-commit payment lifecycle of an order.
type SettlementOrchestrator interface {
	// Begin opens the payment window for a freshly placed order. Calling it twice is a no-op.
	Begin(ctx context.Context, event domain.OrderPlaced) error
	// Notify delivers a payment outcome for an order.
	Notify(ctx context.Context, outcome PaymentOutcome) error
}
