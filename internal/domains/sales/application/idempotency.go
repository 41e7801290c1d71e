package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

type normalizedPlaceOrderInput struct {
	UserID    int64 `json:"userId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// FingerprintPlaceOrder builds a deterministic hash of the placement request (excluding the idempotency key).
func FingerprintPlaceOrder(input ports.PlaceOrderInput) (string, error) {
	payload, err := json.Marshal(normalizedPlaceOrderInput{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
