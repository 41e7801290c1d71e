package domain

import "time"

// Event is the base interface for all domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time `json:"occurred_at"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// OrderPlaced is raised in the placement transaction. Amounts are fixed two-decimal strings.
type OrderPlaced struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	UserID      int64  `json:"user_id"`
	ProductID   int64  `json:"product_id"`
	Quantity    int    `json:"quantity"`
	TotalAmount string `json:"total_amount"`
}

// EventName returns the event type identifier.
func (e OrderPlaced) EventName() string {
	return "orders.order.placed"
}

// OrderSettled is raised when a payment outcome moves an order out of PENDING.
type OrderSettled struct {
	BaseEvent
	OrderID        int64       `json:"order_id"`
	ProductID      int64       `json:"product_id"`
	Status         OrderStatus `json:"status"`
	Provider       string      `json:"provider"`
	TransactionRef string      `json:"transaction_ref,omitempty"`
	Restocked      int         `json:"restocked"`
}

// EventName returns the event type identifier.
func (e OrderSettled) EventName() string {
	return "orders.order.settled"
}

// NewOrderPlaced builds the placement event for a persisted order.
func NewOrderPlaced(order Order) OrderPlaced {
	return OrderPlaced{
		BaseEvent:   BaseEvent{Timestamp: order.CreatedAt},
		OrderID:     order.ID,
		UserID:      order.UserID,
		ProductID:   order.ProductID,
		Quantity:    order.Quantity,
		TotalAmount: order.TotalAmount.StringFixed(MoneyScale),
	}
}
