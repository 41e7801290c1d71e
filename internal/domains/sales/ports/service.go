package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
)

// PlaceOrderInput carries already-parsed placement arguments.
type PlaceOrderInput struct {
	UserID         int64
	ProductID      int64
	Quantity       int
	IdempotencyKey string
}

// CreateProductInput carries catalog creation arguments.
type CreateProductInput struct {
	Name      string
	Price     decimal.Decimal
	Stock     int
	ImageURLs []string
}

// PaymentOutcome is what the payment collaborator reports for an order.
type PaymentOutcome struct {
	OrderID        int64
	Provider       string
	Status         domain.PaymentStatus
	TransactionRef string
}

// ProductPage is one page of the active catalog.
type ProductPage struct {
	Items []*domain.Product
	Total int64
	Page  int
	Limit int
}

// Service exposes the sales use cases to adapters.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error)

	CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)
	UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) (*domain.Product, error)
	ApplyDiscount(ctx context.Context, productID int64, percent decimal.Decimal) (*domain.Product, error)
	UpdateStock(ctx context.Context, productID int64, stock int) (*domain.Product, error)
	ActivateProduct(ctx context.Context, productID int64) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, productID int64) (*domain.Product, error)
	AttachImage(ctx context.Context, productID int64, imageURL string) (*domain.Product, error)

	RecordPayment(ctx context.Context, outcome PaymentOutcome) (*domain.Order, error)
}

// BuyerDirectory answers whether a user may be referenced by an order.
type BuyerDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}
