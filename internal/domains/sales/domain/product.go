package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	minNameLength = 3
	maxNameLength = 255
	// MoneyScale is the number of fractional digits stored for prices and totals.
	MoneyScale = 2
)

var (
	hundred  = decimal.NewFromInt(100)
	maxPrice = decimal.New(1, 8) // numeric(10,2)
)

// Product is the inventory record sold during a flash sale. Values are
// snapshots: mutating a Product changes nothing until a transaction saves it.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	IsActive  bool
	ImageURLs []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct validates and constructs an active product.
func NewProduct(name string, price decimal.Decimal, stock int, imageURLs []string) (Product, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < minNameLength || n > maxNameLength {
		return Product{}, ErrInvalidName
	}
	if err := ValidatePrice(price); err != nil {
		return Product{}, err
	}
	if stock < 0 {
		return Product{}, ErrInvalidStock
	}
	p := Product{Name: name, Price: price, Stock: stock, IsActive: true}
	for _, raw := range imageURLs {
		if err := p.AttachImage(raw); err != nil {
			return Product{}, err
		}
	}
	return p, nil
}

// ValidatePrice checks that a price is positive, fits numeric(10,2) and has no sub-cent digits.
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || price.GreaterThanOrEqual(maxPrice) {
		return ErrInvalidPrice
	}
	if !price.Equal(price.Truncate(MoneyScale)) {
		return ErrInvalidPrice
	}
	return nil
}

// Reserve checks purchasability, deducts quantity from stock and returns the
// exact order total. The caller must hold the product's exclusive lock.
func (p *Product) Reserve(quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Decimal{}, ErrInvalidQuantity
	}
	if !p.IsActive {
		return decimal.Decimal{}, ErrInactive
	}
	if p.Stock < quantity {
		return decimal.Decimal{}, ErrInsufficientStock
	}
	total := p.Price.Mul(decimal.NewFromInt(int64(quantity)))
	p.Stock -= quantity
	return total, nil
}

// Restock returns quantity to stock, e.g. after a failed payment.
func (p *Product) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	return nil
}

// ChangePrice replaces the unit price.
func (p *Product) ChangePrice(price decimal.Decimal) error {
	if err := ValidatePrice(price); err != nil {
		return err
	}
	if price.Equal(p.Price) {
		return ErrSamePrice
	}
	p.Price = price
	return nil
}

// ApplyDiscount lowers the price by percent, rounding to whole cents.
func (p *Product) ApplyDiscount(percent decimal.Decimal) error {
	if !percent.IsPositive() || percent.GreaterThanOrEqual(hundred) {
		return ErrInvalidDiscount
	}
	reduction := p.Price.Mul(percent).Div(hundred)
	discounted := p.Price.Sub(reduction).Round(MoneyScale)
	if !discounted.IsPositive() {
		return ErrResultingPriceNonPositive
	}
	p.Price = discounted
	return nil
}

// SetStock overwrites the stock level (manual correction or restock).
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return ErrInvalidStock
	}
	p.Stock = stock
	return nil
}

func (p *Product) Activate() error {
	if p.IsActive {
		return ErrAlreadyActive
	}
	p.IsActive = true
	return nil
}

func (p *Product) Deactivate() error {
	if !p.IsActive {
		return ErrAlreadyInactive
	}
	p.IsActive = false
	return nil
}

// AttachImage appends an image url, ignoring duplicates.
func (p *Product) AttachImage(raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidImageURL
	}
	for _, existing := range p.ImageURLs {
		if existing == raw {
			return nil
		}
	}
	p.ImageURLs = append(p.ImageURLs, raw)
	return nil
}

// Clone returns a deep copy safe to hand across goroutines.
func (p Product) Clone() Product {
	if p.ImageURLs != nil {
		p.ImageURLs = append([]string(nil), p.ImageURLs...)
	}
	return p
}
