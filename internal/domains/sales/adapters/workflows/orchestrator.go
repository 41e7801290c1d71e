package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/application"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
	orderworkflows "github.com/Apurer/flash-sale-engine/internal/durable/temporal/workflows/orders"
)

var (
	_ ports.SettlementOrchestrator = (*TemporalSettlement)(nil)
	_ ports.SettlementOrchestrator = (*InlineSettlement)(nil)
)

// WorkflowStarter is the subset of the Temporal client the orchestrator needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
}

// TemporalSettlement runs one settlement workflow per placed order.
type TemporalSettlement struct {
	client        WorkflowStarter
	service       ports.Service
	taskQueue     string
	paymentWindow time.Duration
}

// TemporalOption customises the Temporal orchestrator.
type TemporalOption func(*TemporalSettlement)

// WithPaymentWindow bounds how long a pending order waits for its payment outcome.
func WithPaymentWindow(window time.Duration) TemporalOption {
	return func(o *TemporalSettlement) {
		if window > 0 {
			o.paymentWindow = window
		}
	}
}

// WithTaskQueue overrides the settlement task queue.
func WithTaskQueue(queue string) TemporalOption {
	return func(o *TemporalSettlement) {
		if queue != "" {
			o.taskQueue = queue
		}
	}
}

// NewTemporalSettlement wires a Temporal client into the orchestrator. The
// service answers payment outcomes for orders that have no running workflow.
func NewTemporalSettlement(c WorkflowStarter, service ports.Service, opts ...TemporalOption) *TemporalSettlement {
	o := &TemporalSettlement{
		client:        c,
		service:       service,
		taskQueue:     orderworkflows.SettlementTaskQueue,
		paymentWindow: orderworkflows.DefaultPaymentWindow,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin starts the settlement workflow. A workflow that already exists for the order is left alone.
func (o *TemporalSettlement) Begin(ctx context.Context, event domain.OrderPlaced) error {
	if o == nil || o.client == nil {
		return errors.New("temporal settlement not configured")
	}
	options := client.StartWorkflowOptions{
		ID:                    orderworkflows.SettlementWorkflowID(event.OrderID),
		TaskQueue:             o.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	_, err := o.client.ExecuteWorkflow(ctx, options, orderworkflows.SettlementWorkflowName, orderworkflows.SettlementWorkflowInput{
		OrderID:       event.OrderID,
		UserID:        event.UserID,
		ProductID:     event.ProductID,
		Quantity:      event.Quantity,
		TotalAmount:   event.TotalAmount,
		PaymentWindow: o.paymentWindow,
		TraceID:       workflowTraceID(ctx),
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return fmt.Errorf("start settlement workflow for order %d: %w", event.OrderID, err)
	}
	return nil
}

// Notify signals the order's settlement workflow. When no workflow is running
// the outcome is applied directly so the caller learns why it was refused.
func (o *TemporalSettlement) Notify(ctx context.Context, outcome ports.PaymentOutcome) error {
	if o == nil || o.client == nil {
		return errors.New("temporal settlement not configured")
	}
	if outcome.OrderID <= 0 {
		return fmt.Errorf("%w: %w", application.ErrInvalidInput, domain.ErrInvalidOrderID)
	}
	if _, err := domain.NewPayment(outcome.OrderID, outcome.Provider, outcome.Status, outcome.TransactionRef, time.Time{}); err != nil {
		return fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}
	err := o.client.SignalWorkflow(ctx, orderworkflows.SettlementWorkflowID(outcome.OrderID), "", orderworkflows.PaymentOutcomeSignal,
		orderworkflows.PaymentOutcomeSignalPayload{
			Provider:       outcome.Provider,
			Status:         string(outcome.Status),
			TransactionRef: outcome.TransactionRef,
		})
	if err == nil {
		return nil
	}
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) && o.service != nil {
		_, err = o.service.RecordPayment(ctx, outcome)
		return err
	}
	return fmt.Errorf("signal settlement workflow for order %d: %w", outcome.OrderID, err)
}

// InlineSettlement applies payment outcomes synchronously without Temporal,
// useful for tests or dev fallbacks. It does not enforce a payment window.
type InlineSettlement struct {
	service ports.Service
}

// NewInlineSettlement wraps the sales service for synchronous settlement.
func NewInlineSettlement(service ports.Service) *InlineSettlement {
	return &InlineSettlement{service: service}
}

// Begin has nothing to schedule inline.
func (o *InlineSettlement) Begin(context.Context, domain.OrderPlaced) error {
	if o == nil || o.service == nil {
		return errors.New("inline settlement not configured")
	}
	return nil
}

// Notify delegates to the application service.
func (o *InlineSettlement) Notify(ctx context.Context, outcome ports.PaymentOutcome) error {
	if o == nil || o.service == nil {
		return errors.New("inline settlement not configured")
	}
	_, err := o.service.RecordPayment(ctx, outcome)
	return err
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
