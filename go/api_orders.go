package flashsaleserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	saleshttpmapper "github.com/Apurer/flash-sale-engine/internal/domains/sales/adapters/http/mapper"
	salesports "github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
	apierrors "github.com/Apurer/flash-sale-engine/internal/shared/errors"
)

// IdempotencyKeyHeader lets clients retry POST /v1/orders safely.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 255

// OrderAPI wires HTTP transport with order placement and settlement.
type OrderAPI struct {
	service    salesports.Service
	settlement salesports.SettlementOrchestrator
}

// NewOrderAPI creates an OrderAPI. A nil orchestrator records payments directly on the service.
func NewOrderAPI(service salesports.Service, settlement salesports.SettlementOrchestrator) OrderAPI {
	return OrderAPI{service: service, settlement: settlement}
}

// Post /v1/orders
// Place an order against limited stock
func (api *OrderAPI) PlaceOrder(c *gin.Context) {
	var payload saleshttpmapper.PlaceOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail("Idempotency-Key must be at most 255 characters"))
		return
	}
	input, err := saleshttpmapper.ToPlaceOrderInput(payload, key)
	if err != nil {
		respondProblem(c, apierrors.ErrValidation.WithDetail(err.Error()))
		return
	}
	order, err := api.service.PlaceOrder(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saleshttpmapper.FromDomainOrder(order))
}

// Get /v1/orders/:orderId
// Find order by ID
func (api *OrderAPI) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			respondProblem(c, apierrors.NewNotFoundProblem("order", id))
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saleshttpmapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/payment
// Report the payment outcome for a pending order. Settlement may complete
// asynchronously, so the response carries the order as currently stored.
func (api *OrderAPI) RecordPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload saleshttpmapper.PaymentOutcomeRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	ctx := c.Request.Context()
	if err := api.notify(ctx, saleshttpmapper.ToPaymentOutcome(id, payload)); err != nil {
		respondServiceError(c, err)
		return
	}
	order, err := api.service.GetOrder(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, saleshttpmapper.FromDomainOrder(order))
}

func (api *OrderAPI) notify(ctx context.Context, outcome salesports.PaymentOutcome) error {
	if api.settlement != nil {
		return api.settlement.Notify(ctx, outcome)
	}
	_, err := api.service.RecordPayment(ctx, outcome)
	return err
}

// Get /v1/users/:userId/orders
// List a buyer's orders
func (api *OrderAPI) ListUserOrders(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	orders, err := api.service.ListOrdersByUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saleshttpmapper.FromDomainOrders(orders))
}
