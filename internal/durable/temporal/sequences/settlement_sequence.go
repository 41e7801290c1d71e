package sequences

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	orderactivities "github.com/Apurer/flash-sale-engine/internal/platform/temporal/activities/orders"
)

// SettlementOutcome is what the settlement sequence observed.
type SettlementOutcome struct {
	OrderID        int64
	Status         string
	AlreadySettled bool
}

// RunSettlementSequence records the payment outcome for an order. An order
// that was settled through another path is reported, not treated as a failure.
func RunSettlementSequence(ctx workflow.Context, input orderactivities.RecordPaymentInput) (*SettlementOutcome, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("settlement sequence started", "orderId", input.OrderID, "status", input.Status)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var result orderactivities.RecordPaymentResult
	err := workflow.ExecuteActivity(ctx, orderactivities.RecordPaymentActivityName, input).Get(ctx, &result)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == orderactivities.ErrTypeOrderSettled {
			logger.Info("settlement sequence found order already settled", "orderId", input.OrderID)
			return &SettlementOutcome{OrderID: input.OrderID, AlreadySettled: true}, nil
		}
		logger.Error("settlement sequence failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}
	logger.Info("settlement sequence completed", "orderId", result.OrderID, "orderStatus", result.Status)
	return &SettlementOutcome{OrderID: result.OrderID, Status: result.Status}, nil
}
