package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustProduct(t *testing.T, price string, stock int) Product {
	t.Helper()
	p, err := NewProduct("Flash Phone", decimal.RequireFromString(price), stock, nil)
	require.NoError(t, err)
	return p
}

func TestNewProduct_Validation(t *testing.T) {
	_, err := NewProduct("ab", decimal.NewFromInt(1), 1, nil)
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = NewProduct("Gadget", decimal.Zero, 1, nil)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewProduct("Gadget", decimal.RequireFromString("1.001"), 1, nil)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewProduct("Gadget", decimal.NewFromInt(1), -1, nil)
	require.ErrorIs(t, err, ErrInvalidStock)

	_, err = NewProduct("Gadget", decimal.NewFromInt(1), 1, []string{"ftp://cdn/x.png"})
	require.ErrorIs(t, err, ErrInvalidImageURL)

	p, err := NewProduct("  Gadget  ", decimal.RequireFromString("9.50"), 0, []string{"https://cdn.example/x.png"})
	require.NoError(t, err)
	assert.Equal(t, "Gadget", p.Name)
	assert.True(t, p.IsActive)
	assert.Equal(t, []string{"https://cdn.example/x.png"}, p.ImageURLs)
}

func TestReserve_DeductsStockAndComputesExactTotal(t *testing.T) {
	p := mustProduct(t, "100.00", 5)

	total, err := p.Reserve(3)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("300.00")))
	assert.Equal(t, 2, p.Stock)

	q := mustProduct(t, "19.99", 10)
	total, err = q.Reserve(3)
	require.NoError(t, err)
	assert.Equal(t, "59.97", total.StringFixed(MoneyScale))
	assert.True(t, total.Equal(decimal.RequireFromString("59.97")))
}

func TestReserve_Rejections(t *testing.T) {
	p := mustProduct(t, "10.00", 2)

	_, err := p.Reserve(5)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, p.Stock)

	_, err = p.Reserve(0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	require.NoError(t, p.Deactivate())
	_, err = p.Reserve(1)
	require.ErrorIs(t, err, ErrInactive)
	assert.Equal(t, 2, p.Stock)
}

func TestApplyDiscount(t *testing.T) {
	p := mustProduct(t, "100.00", 1)

	require.NoError(t, p.ApplyDiscount(decimal.NewFromInt(20)))
	assert.Equal(t, "80.00", p.Price.StringFixed(MoneyScale))

	require.ErrorIs(t, p.ApplyDiscount(decimal.NewFromInt(100)), ErrInvalidDiscount)
	require.ErrorIs(t, p.ApplyDiscount(decimal.Zero), ErrInvalidDiscount)
	require.ErrorIs(t, p.ApplyDiscount(decimal.NewFromInt(-5)), ErrInvalidDiscount)
	assert.Equal(t, "80.00", p.Price.StringFixed(MoneyScale))

	cheap := mustProduct(t, "0.01", 1)
	require.ErrorIs(t, cheap.ApplyDiscount(decimal.NewFromInt(99)), ErrResultingPriceNonPositive)
	assert.Equal(t, "0.01", cheap.Price.StringFixed(MoneyScale))
}

func TestChangePriceAndStock(t *testing.T) {
	p := mustProduct(t, "10.00", 1)

	require.ErrorIs(t, p.ChangePrice(decimal.RequireFromString("10")), ErrSamePrice)
	require.ErrorIs(t, p.ChangePrice(decimal.NewFromInt(-1)), ErrInvalidPrice)
	require.NoError(t, p.ChangePrice(decimal.RequireFromString("12.50")))
	assert.Equal(t, "12.50", p.Price.StringFixed(MoneyScale))

	require.ErrorIs(t, p.SetStock(-1), ErrInvalidStock)
	require.NoError(t, p.SetStock(0))
	assert.Equal(t, 0, p.Stock)
}

func TestActivationToggles(t *testing.T) {
	p := mustProduct(t, "10.00", 1)

	require.ErrorIs(t, p.Activate(), ErrAlreadyInState)
	require.NoError(t, p.Deactivate())
	require.ErrorIs(t, p.Deactivate(), ErrAlreadyInactive)
	require.NoError(t, p.Activate())
	assert.True(t, p.IsActive)
}

func TestOrderSettle(t *testing.T) {
	order, err := NewOrder(1, 2, 3, decimal.RequireFromString("30.00"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, order.Status)

	require.ErrorIs(t, order.Settle(PaymentStatus("REFUNDED")), ErrInvalidPaymentStatus)
	require.NoError(t, order.Settle(PaymentStatusSuccess))
	assert.Equal(t, OrderStatusPaid, order.Status)
	require.ErrorIs(t, order.Settle(PaymentStatusFailed), ErrOrderSettled)

	_, err = NewOrder(0, 2, 3, decimal.Zero, time.Now())
	require.ErrorIs(t, err, ErrInvalidUserID)
}
