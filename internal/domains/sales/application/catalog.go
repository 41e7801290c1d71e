package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

func (s *Service) CreateProduct(ctx context.Context, input ports.CreateProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(input.Name, input.Price, input.Stock, input.ImageURLs)
	if err != nil {
		return nil, mapError(err)
	}
	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	var created domain.Product
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		created, err = tx.Inventory().Create(ctx, product)
		return err
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &created, nil
}

func (s *Service) UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) (*domain.Product, error) {
	if err := domain.ValidatePrice(price); err != nil {
		return nil, mapError(err)
	}
	return s.mutateProduct(ctx, productID, func(p *domain.Product) error {
		return p.ChangePrice(price)
	})
}

func (s *Service) ApplyDiscount(ctx context.Context, productID int64, percent decimal.Decimal) (*domain.Product, error) {
	return s.mutateProduct(ctx, productID, func(p *domain.Product) error {
		return p.ApplyDiscount(percent)
	})
}

func (s *Service) UpdateStock(ctx context.Context, productID int64, stock int) (*domain.Product, error) {
	if stock < 0 {
		return nil, mapError(domain.ErrInvalidStock)
	}
	return s.mutateProduct(ctx, productID, func(p *domain.Product) error {
		return p.SetStock(stock)
	})
}

func (s *Service) ActivateProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.mutateProduct(ctx, productID, (*domain.Product).Activate)
}

// DeactivateProduct soft-deletes a product; it stays readable and its orders are untouched.
func (s *Service) DeactivateProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.mutateProduct(ctx, productID, (*domain.Product).Deactivate)
}

func (s *Service) AttachImage(ctx context.Context, productID int64, imageURL string) (*domain.Product, error) {
	return s.mutateProduct(ctx, productID, func(p *domain.Product) error {
		return p.AttachImage(imageURL)
	})
}

// mutateProduct is the lock-validate-mutate-commit sequence shared by the
// single-field operations. It never touches the order ledger.
func (s *Service) mutateProduct(ctx context.Context, productID int64, mutate func(*domain.Product) error) (*domain.Product, error) {
	if productID <= 0 {
		return nil, mapError(domain.ErrInvalidProductID)
	}
	var updated domain.Product
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		product, err := tx.Inventory().LoadForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if err := mutate(&product); err != nil {
			return err
		}
		product.UpdatedAt = s.now()
		if err := tx.Inventory().Save(ctx, product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &updated, nil
}
