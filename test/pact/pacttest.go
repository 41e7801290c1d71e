//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "flashsale-api"
	ConsumerName = "storefront"

	StateProductOnSale  = "product 1 on sale with stock 5 and buyer 1 registered"
	StateProductSoldOut = "product 1 sold out and buyer 1 registered"
	StateCatalogEmpty   = "no products exist"
)

// The provider resets to fresh in-memory stores for every state, so the first
// product and the first buyer it creates receive these ids.
const (
	ProductID int64 = 1
	BuyerID   int64 = 1

	ProductName  = "Limited Sneaker"
	ProductPrice = "60.00"
	ProductStock = 5

	BuyerEmail    = "pact.buyer@example.com"
	BuyerPassword = "pact-password"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the storefront consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
