package orders

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/flash-sale-engine/internal/durable/temporal/sequences"
	orderactivities "github.com/Apurer/flash-sale-engine/internal/platform/temporal/activities/orders"
)

const (
	// SettlementWorkflowName is the public identifier for registering the workflow.
	SettlementWorkflowName = "orders.workflows.Settlement"
	// SettlementTaskQueue is the queue consumed by the worker processing settlement workflows.
	SettlementTaskQueue = "ORDER_SETTLEMENT"
	// PaymentOutcomeSignal carries the payment collaborator's verdict into the workflow.
	PaymentOutcomeSignal = "orders.signals.PaymentOutcome"
	// TimeoutProvider is recorded as the provider when the payment window lapses.
	TimeoutProvider = "timeout"

	DefaultPaymentWindow = 15 * time.Minute
)

// SettlementWorkflowInput captures the placed order awaiting payment.
type SettlementWorkflowInput struct {
	OrderID       int64
	UserID        int64
	ProductID     int64
	Quantity      int
	TotalAmount   string
	PaymentWindow time.Duration
	TraceID       string
}

// PaymentOutcomeSignalPayload is the body of PaymentOutcomeSignal.
type PaymentOutcomeSignalPayload struct {
	Provider       string
	Status         string
	TransactionRef string
}

// SettlementWorkflowID is deterministic per order so duplicate starts collapse.
func SettlementWorkflowID(orderID int64) string {
	return fmt.Sprintf("order-settlement-%d", orderID)
}

// SettlementWorkflow waits for a payment outcome for at most the payment
// window. When the window lapses the order is failed with the timeout provider.
func SettlementWorkflow(ctx workflow.Context, input SettlementWorkflowInput) (*sequences.SettlementOutcome, error) {
	logger := workflow.GetLogger(ctx)
	window := input.PaymentWindow
	if window <= 0 {
		window = DefaultPaymentWindow
	}
	logger.Info("SettlementWorkflow started", withTraceID(input.TraceID, "orderId", input.OrderID, "window", window)...)

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	var (
		outcome  PaymentOutcomeSignalPayload
		timedOut bool
	)
	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, PaymentOutcomeSignal), func(c workflow.ReceiveChannel, _ bool) {
		c.Receive(ctx, &outcome)
		cancelTimer()
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, window), func(workflow.Future) {
		timedOut = true
	})
	selector.Select(ctx)

	if timedOut {
		logger.Info("SettlementWorkflow payment window lapsed", withTraceID(input.TraceID, "orderId", input.OrderID)...)
		outcome = PaymentOutcomeSignalPayload{Provider: TimeoutProvider, Status: "FAILED"}
	}

	result, err := sequences.RunSettlementSequence(ctx, orderactivities.RecordPaymentInput{
		OrderID:        input.OrderID,
		Provider:       outcome.Provider,
		Status:         outcome.Status,
		TransactionRef: outcome.TransactionRef,
	})
	if err != nil {
		logger.Error("SettlementWorkflow failed", withTraceID(input.TraceID, "orderId", input.OrderID, "error", err)...)
		return nil, err
	}
	logger.Info("SettlementWorkflow completed", withTraceID(input.TraceID, "orderId", input.OrderID, "status", result.Status)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
