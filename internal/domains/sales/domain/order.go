package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates order progression. PENDING is set at placement;
// PAID and FAILED are terminal and set only by settlement.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
)

// Order records one successful placement. Quantity and TotalAmount never change.
type Order struct {
	ID          int64
	UserID      int64
	ProductID   int64
	Quantity    int
	TotalAmount decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
}

// NewOrder builds a pending order for a reservation that already succeeded.
func NewOrder(userID, productID int64, quantity int, total decimal.Decimal, now time.Time) (Order, error) {
	if userID <= 0 {
		return Order{}, ErrInvalidUserID
	}
	if productID <= 0 {
		return Order{}, ErrInvalidProductID
	}
	if quantity <= 0 {
		return Order{}, ErrInvalidQuantity
	}
	return Order{
		UserID:      userID,
		ProductID:   productID,
		Quantity:    quantity,
		TotalAmount: total,
		Status:      OrderStatusPending,
		CreatedAt:   now,
	}, nil
}

// Settle moves a pending order to the terminal state implied by the payment outcome.
func (o *Order) Settle(outcome PaymentStatus) error {
	if o.Status != OrderStatusPending {
		return ErrOrderSettled
	}
	switch outcome {
	case PaymentStatusSuccess:
		o.Status = OrderStatusPaid
	case PaymentStatusFailed:
		o.Status = OrderStatusFailed
	default:
		return ErrInvalidPaymentStatus
	}
	return nil
}

// IsTerminal reports whether the order has been settled.
func (o Order) IsTerminal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusFailed
}
