package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName               = errors.New("product name must be between 3 and 255 characters")
	ErrInvalidPrice              = errors.New("price must be positive with at most two decimal places")
	ErrInvalidStock              = errors.New("stock must not be negative")
	ErrInvalidDiscount           = errors.New("discount must be strictly between 0 and 100 percent")
	ErrResultingPriceNonPositive = errors.New("discounted price must remain positive")
	ErrSamePrice                 = errors.New("new price equals the current price")
	ErrInvalidImageURL           = errors.New("image url must be an absolute http(s) url")

	ErrInvalidQuantity   = errors.New("quantity must be positive and within the per-order limit")
	ErrInactive          = errors.New("product is not active")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrAlreadyInState is returned when an activation toggle would be a no-op.
	ErrAlreadyInState  = errors.New("product already in requested state")
	ErrAlreadyActive   = fmt.Errorf("%w: active", ErrAlreadyInState)
	ErrAlreadyInactive = fmt.Errorf("%w: inactive", ErrAlreadyInState)

	ErrInvalidUserID        = errors.New("user id must be greater than zero")
	ErrInvalidProductID     = errors.New("product id must be greater than zero")
	ErrInvalidOrderID       = errors.New("order id must be greater than zero")
	ErrOrderSettled         = errors.New("order is no longer pending")
	ErrInvalidPaymentStatus = errors.New("payment status is invalid")
	ErrInvalidProvider      = errors.New("payment provider is required")
)
