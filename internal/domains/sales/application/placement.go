package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

// PlaceOrder runs the placement transaction: lock the product, validate it,
// deduct stock, append a PENDING order and stage the order.placed event, all
// committed together or not at all. The stock check happens under the lock.
func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (*domain.Order, error) {
	if input.Quantity <= 0 || input.Quantity > s.maxOrderQuantity {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	if input.UserID <= 0 {
		return nil, mapError(domain.ErrInvalidUserID)
	}
	if input.ProductID <= 0 {
		return nil, mapError(domain.ErrInvalidProductID)
	}
	if err := s.ensureBuyer(ctx, input.UserID); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" || s.idem == nil {
		return s.placeOrder(ctx, input)
	}

	hash, err := FingerprintPlaceOrder(input)
	if err != nil {
		return nil, err
	}
	record, claimed, err := s.idem.Claim(ctx, key, hash)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.replay(ctx, record, hash)
	}
	order, err := s.placeOrder(ctx, input)
	if err != nil {
		_ = s.idem.Release(context.WithoutCancel(ctx), key)
		return nil, err
	}
	if err := s.completeClaim(context.WithoutCancel(ctx), key, order.ID); err != nil {
		// The order is committed; the claim stays in flight until its TTL.
		s.logger.ErrorContext(ctx, "failed to record idempotent order",
			slog.Int64("order.id", order.ID),
			slog.String("idempotency.key", key),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}

const completeAttempts = 3

func (s *Service) completeClaim(ctx context.Context, key string, orderID int64) error {
	var err error
	backoff := s.completeBackoff
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		if err = s.idem.Complete(ctx, key, orderID); err == nil {
			return nil
		}
		if attempt < completeAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}

func (s *Service) placeOrder(ctx context.Context, input ports.PlaceOrderInput) (*domain.Order, error) {
	var placed domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		product, err := tx.Inventory().LoadForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		total, err := product.Reserve(input.Quantity)
		if err != nil {
			return err
		}
		now := s.now()
		product.UpdatedAt = now
		order, err := domain.NewOrder(input.UserID, product.ID, input.Quantity, total, now)
		if err != nil {
			return err
		}
		if err := tx.Inventory().Save(ctx, product); err != nil {
			return err
		}
		order, err = tx.Ledger().Append(ctx, order)
		if err != nil {
			return err
		}
		msg, err := s.newOutboxMessage(ctx, order.ID, domain.NewOrderPlaced(order))
		if err != nil {
			return err
		}
		if err := tx.Outbox().Enqueue(ctx, msg); err != nil {
			return err
		}
		placed = order
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &placed, nil
}

func (s *Service) replay(ctx context.Context, record *ports.IdempotencyRecord, hash string) (*domain.Order, error) {
	if record == nil {
		return nil, errors.New("idempotency record missing for existing key")
	}
	if record.RequestHash != hash {
		return nil, ports.ErrIdempotencyConflict
	}
	if !record.Completed() {
		return nil, ports.ErrIdempotencyInFlight
	}
	return s.store.GetOrder(ctx, record.OrderID)
}
