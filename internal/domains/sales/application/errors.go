package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var (
	// ErrInvalidInput signals the request is permanently invalid.
	ErrInvalidInput = errors.New("invalid sales input")
	// ErrRejected signals a business rule refused the request in the product's current state.
	ErrRejected = errors.New("request rejected")
	// ErrInvalidPage signals listing arguments outside the supported range.
	ErrInvalidPage = errors.New("page must be >= 1 and limit between 1 and 50")
)

var invalidInputErrors = []error{
	domain.ErrInvalidQuantity,
	domain.ErrInvalidName,
	domain.ErrInvalidPrice,
	domain.ErrInvalidStock,
	domain.ErrInvalidDiscount,
	domain.ErrInvalidImageURL,
	domain.ErrInvalidUserID,
	domain.ErrInvalidProductID,
	domain.ErrInvalidOrderID,
	domain.ErrInvalidPaymentStatus,
	domain.ErrInvalidProvider,
	ErrInvalidPage,
}

var rejectedErrors = []error{
	domain.ErrInactive,
	domain.ErrInsufficientStock,
	domain.ErrSamePrice,
	domain.ErrAlreadyInState,
	domain.ErrResultingPriceNonPositive,
	domain.ErrOrderSettled,
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range invalidInputErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	for _, target := range rejectedErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}
	return err
}

// mapTxError classifies an error that escaped a unit of work. Anything that is
// neither a business error nor already classified by the adapter is treated
// as a persistence failure.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	mapped := mapError(err)
	if errors.Is(mapped, ErrInvalidInput) || errors.Is(mapped, ErrRejected) ||
		errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrPersistence) {
		return mapped
	}
	return fmt.Errorf("%w: %w", ports.ErrPersistence, err)
}

// Retryable reports whether the caller may succeed by trying the same request later.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, ports.ErrPersistence) ||
		errors.Is(err, ports.ErrIdempotencyInFlight)
}
