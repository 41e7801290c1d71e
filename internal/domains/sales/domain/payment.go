package domain

import (
	"strings"
	"time"
)

// PaymentStatus is the outcome reported by the payment collaborator.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment is the record of a settlement attempt against an order.
type Payment struct {
	ID             int64
	OrderID        int64
	Provider       string
	Status         PaymentStatus
	TransactionRef string
	CreatedAt      time.Time
}

// NewPayment validates a payment outcome.
func NewPayment(orderID int64, provider string, status PaymentStatus, ref string, now time.Time) (Payment, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return Payment{}, ErrInvalidProvider
	}
	if status != PaymentStatusSuccess && status != PaymentStatusFailed {
		return Payment{}, ErrInvalidPaymentStatus
	}
	return Payment{
		OrderID:        orderID,
		Provider:       provider,
		Status:         status,
		TransactionRef: strings.TrimSpace(ref),
		CreatedAt:      now,
	}, nil
}
