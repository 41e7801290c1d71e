package mapper

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

var (
	errMissingPrice    = errors.New("price is required")
	errMissingPercent  = errors.New("percent is required")
	errMissingStock    = errors.New("stock is required")
	errMissingQuantity = errors.New("quantity is required")
)

// Product is the HTTP representation of a catalog entry. Money is a fixed two-decimal string.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	IsActive  bool      `json:"isActive"`
	ImageURLs []string  `json:"imageUrls"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductPage wraps a listing page.
type ProductPage struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Order is the HTTP representation of a placed order.
type Order struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	ProductID   int64     `json:"productId"`
	Quantity    int       `json:"quantity"`
	TotalAmount string    `json:"totalAmount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateProductRequest accepts price either as a JSON number or a decimal string.
type CreateProductRequest struct {
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	Stock     int              `json:"stock"`
	ImageURLs []string         `json:"imageUrls,omitempty"`
}

type PriceRequest struct {
	Price *decimal.Decimal `json:"price"`
}

type DiscountRequest struct {
	Percent *decimal.Decimal `json:"percent"`
}

// StockRequest keeps field presence so an explicit zero is distinguishable from a missing value.
type StockRequest struct {
	Stock *int `json:"stock"`
}

type ImageRequest struct {
	URL string `json:"url"`
}

// PlaceOrderRequest is the body of POST /v1/orders.
type PlaceOrderRequest struct {
	UserID    int64 `json:"userId"`
	ProductID int64 `json:"productId"`
	Quantity  *int  `json:"quantity"`
}

// PaymentOutcomeRequest is what the payment collaborator posts for an order.
type PaymentOutcomeRequest struct {
	Provider       string `json:"provider"`
	Status         string `json:"status"`
	TransactionRef string `json:"transactionRef,omitempty"`
}

// FromDomainProduct maps a domain product into its transport form.
func FromDomainProduct(p *domain.Product) Product {
	urls := append([]string{}, p.ImageURLs...)
	return Product{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(domain.MoneyScale),
		Stock:     p.Stock,
		IsActive:  p.IsActive,
		ImageURLs: urls,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func FromProductPage(page *ports.ProductPage) ProductPage {
	items := make([]Product, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, FromDomainProduct(p))
	}
	return ProductPage{Items: items, Total: page.Total, Page: page.Page, Limit: page.Limit}
}

// FromDomainOrder maps a domain order into its transport form.
func FromDomainOrder(o *domain.Order) Order {
	return Order{
		ID:          o.ID,
		UserID:      o.UserID,
		ProductID:   o.ProductID,
		Quantity:    o.Quantity,
		TotalAmount: o.TotalAmount.StringFixed(domain.MoneyScale),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
}

func FromDomainOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromDomainOrder(o))
	}
	return out
}

// ToCreateProductInput converts a creation payload into the application input.
func ToCreateProductInput(req CreateProductRequest) (ports.CreateProductInput, error) {
	if req.Price == nil {
		return ports.CreateProductInput{}, errMissingPrice
	}
	return ports.CreateProductInput{
		Name:      req.Name,
		Price:     *req.Price,
		Stock:     req.Stock,
		ImageURLs: append([]string{}, req.ImageURLs...),
	}, nil
}

func ToPrice(req PriceRequest) (decimal.Decimal, error) {
	if req.Price == nil {
		return decimal.Decimal{}, errMissingPrice
	}
	return *req.Price, nil
}

func ToDiscountPercent(req DiscountRequest) (decimal.Decimal, error) {
	if req.Percent == nil {
		return decimal.Decimal{}, errMissingPercent
	}
	return *req.Percent, nil
}

func ToStock(req StockRequest) (int, error) {
	if req.Stock == nil {
		return 0, errMissingStock
	}
	return *req.Stock, nil
}

// ToPlaceOrderInput converts the request body plus the Idempotency-Key header.
func ToPlaceOrderInput(req PlaceOrderRequest, idempotencyKey string) (ports.PlaceOrderInput, error) {
	if req.Quantity == nil {
		return ports.PlaceOrderInput{}, errMissingQuantity
	}
	return ports.PlaceOrderInput{
		UserID:         req.UserID,
		ProductID:      req.ProductID,
		Quantity:       *req.Quantity,
		IdempotencyKey: idempotencyKey,
	}, nil
}

func ToPaymentOutcome(orderID int64, req PaymentOutcomeRequest) ports.PaymentOutcome {
	return ports.PaymentOutcome{
		OrderID:        orderID,
		Provider:       req.Provider,
		Status:         domain.PaymentStatus(req.Status),
		TransactionRef: req.TransactionRef,
	}
}
