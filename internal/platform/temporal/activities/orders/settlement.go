package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	salesapp "github.com/Apurer/flash-sale-engine/internal/domains/sales/application"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	salesports "github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

const (
	// RecordPaymentActivityName applies a payment outcome to a pending order.
	RecordPaymentActivityName = "orders.activities.RecordPayment"

	// Application error types surfaced to workflows as non-retryable failures.
	ErrTypeOrderSettled = "OrderSettled"
	ErrTypeOrderMissing = "OrderNotFound"
	ErrTypeInvalidInput = "InvalidPaymentOutcome"
)

// RecordPaymentInput is the activity payload; it mirrors ports.PaymentOutcome with plain strings.
type RecordPaymentInput struct {
	OrderID        int64
	Provider       string
	Status         string
	TransactionRef string
}

// RecordPaymentResult reports the order state after settlement.
type RecordPaymentResult struct {
	OrderID int64
	Status  string
}

// Activities groups activities that operate on the sales bounded context.
type Activities struct {
	service salesports.Service
}

func NewActivities(service salesports.Service) *Activities {
	return &Activities{service: service}
}

// RecordPayment settles the order. Business rejections are returned as
// non-retryable application errors; storage failures are retried by Temporal.
func (a *Activities) RecordPayment(ctx context.Context, input RecordPaymentInput) (*RecordPaymentResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("record payment activity not initialized", "orderId", input.OrderID)
		return nil, errors.New("record payment activity not initialized")
	}
	logger.Info("RecordPayment activity started", "orderId", input.OrderID, "status", input.Status)
	order, err := a.service.RecordPayment(ctx, salesports.PaymentOutcome{
		OrderID:        input.OrderID,
		Provider:       input.Provider,
		Status:         domain.PaymentStatus(input.Status),
		TransactionRef: input.TransactionRef,
	})
	if err != nil {
		logger.Error("RecordPayment activity failed", "orderId", input.OrderID, "error", err)
		return nil, classify(err)
	}
	logger.Info("RecordPayment activity completed", "orderId", order.ID, "orderStatus", order.Status)
	return &RecordPaymentResult{OrderID: order.ID, Status: string(order.Status)}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrOrderSettled):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeOrderSettled, err)
	case errors.Is(err, salesports.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeOrderMissing, err)
	case errors.Is(err, salesapp.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	default:
		return err
	}
}
