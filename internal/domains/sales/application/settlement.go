package application

import (
	"context"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

// RecordPayment settles a pending order with the collaborator's outcome.
// Locks are taken order first, then product, so it cannot deadlock with
// placement, which never locks an existing order.
func (s *Service) RecordPayment(ctx context.Context, outcome ports.PaymentOutcome) (*domain.Order, error) {
	if outcome.OrderID <= 0 {
		return nil, mapError(domain.ErrInvalidOrderID)
	}
	payment, err := domain.NewPayment(outcome.OrderID, outcome.Provider, outcome.Status, outcome.TransactionRef, s.now())
	if err != nil {
		return nil, mapError(err)
	}

	var settled domain.Order
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		order, err := tx.Ledger().LoadForUpdate(ctx, outcome.OrderID)
		if err != nil {
			return err
		}
		if err := order.Settle(payment.Status); err != nil {
			return err
		}
		if err := tx.Ledger().UpdateStatus(ctx, order); err != nil {
			return err
		}
		if _, err := tx.Ledger().RecordPayment(ctx, payment); err != nil {
			return err
		}
		restocked := 0
		if order.Status == domain.OrderStatusFailed && s.restockOnFailure {
			if err := s.restock(ctx, tx, order); err != nil {
				return err
			}
			restocked = order.Quantity
		}
		event := domain.OrderSettled{
			BaseEvent:      domain.BaseEvent{Timestamp: s.now()},
			OrderID:        order.ID,
			ProductID:      order.ProductID,
			Status:         order.Status,
			Provider:       payment.Provider,
			TransactionRef: payment.TransactionRef,
			Restocked:      restocked,
		}
		msg, err := s.newOutboxMessage(ctx, order.ID, event)
		if err != nil {
			return err
		}
		if err := tx.Outbox().Enqueue(ctx, msg); err != nil {
			return err
		}
		settled = order
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &settled, nil
}

func (s *Service) restock(ctx context.Context, tx ports.Tx, order domain.Order) error {
	product, err := tx.Inventory().LoadForUpdate(ctx, order.ProductID)
	if err != nil {
		return err
	}
	if err := product.Restock(order.Quantity); err != nil {
		return err
	}
	product.UpdatedAt = s.now()
	return tx.Inventory().Save(ctx, product)
}
