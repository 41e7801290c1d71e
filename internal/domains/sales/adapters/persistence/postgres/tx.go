package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

// tx binds the port views to one *gorm.DB transaction handle. The handle
// already carries the transaction's context, so ctx arguments are not
// re-applied.
type tx struct {
	db *gorm.DB
}

func (t *tx) Inventory() ports.InventoryStore { return inventory{t.db} }
func (t *tx) Ledger() ports.OrderLedger       { return ledger{t.db} }
func (t *tx) Outbox() ports.OutboxWriter      { return outbox{t.db} }

type inventory struct{ db *gorm.DB }

// LoadForUpdate issues SELECT ... FOR UPDATE on the product row.
func (i inventory) LoadForUpdate(_ context.Context, productID int64) (domain.Product, error) {
	var record productRecord
	err := i.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, ports.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return record.toDomain(), nil
}

func (i inventory) Save(_ context.Context, product domain.Product) error {
	record := toProductRecord(product)
	result := i.db.Model(&productRecord{}).Where("id = ?", product.ID).Updates(map[string]any{
		"name":       record.Name,
		"price":      record.Price,
		"stock":      record.Stock,
		"is_active":  record.IsActive,
		"image_urls": record.ImageURLs,
		"updated_at": record.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrProductNotFound
	}
	return nil
}

func (i inventory) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	record := toProductRecord(product)
	record.ID = 0
	if err := i.db.Create(&record).Error; err != nil {
		return domain.Product{}, err
	}
	return record.toDomain(), nil
}

type ledger struct{ db *gorm.DB }

func (l ledger) Append(_ context.Context, order domain.Order) (domain.Order, error) {
	record := toOrderRecord(order)
	record.ID = 0
	if err := l.db.Create(&record).Error; err != nil {
		// the product row is locked by the caller, so the only reference that can dangle is the buyer
		if isForeignKeyViolation(err) {
			return domain.Order{}, ports.ErrUserNotFound
		}
		return domain.Order{}, err
	}
	return record.toDomain(), nil
}

// LoadForUpdate issues SELECT ... FOR UPDATE on the order row.
func (l ledger) LoadForUpdate(_ context.Context, orderID int64) (domain.Order, error) {
	var record orderRecord
	err := l.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, ports.ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return record.toDomain(), nil
}

func (l ledger) UpdateStatus(_ context.Context, order domain.Order) error {
	result := l.db.Model(&orderRecord{}).Where("id = ?", order.ID).Update("status", string(order.Status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrOrderNotFound
	}
	return nil
}

func (l ledger) RecordPayment(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	record := toPaymentRecord(payment)
	record.ID = 0
	if err := l.db.Create(&record).Error; err != nil {
		return domain.Payment{}, err
	}
	return record.toDomain(), nil
}

type outbox struct{ db *gorm.DB }

func (o outbox) Enqueue(_ context.Context, msg ports.OutboxMessage) error {
	record := toOutboxRecord(msg)
	return o.db.Create(&record).Error
}
