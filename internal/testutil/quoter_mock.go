package testutil

import (
	"context"
	"fmt"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/pricing"
)

// MockQuoter is a mock implementation of pricing.Quoter for testing.
// It serves predefined prices instead of calling provider APIs.
type MockQuoter struct {
	// Prices maps symbol to the quote to return.
	Prices map[string]pricing.Price
	// Errors maps symbol to an error; symbols listed here fail GetPrice
	// and are absent from batch results.
	Errors map[string]error
	// Names maps symbol to a lookup result name.
	Names map[string]string
	// CallCount tracks how many quote calls were made (single and batch).
	CallCount int
}

// NewMockQuoter creates an empty mock quoter. Add prices with SetPrice.
func NewMockQuoter() *MockQuoter {
	return &MockQuoter{
		Prices: make(map[string]pricing.Price),
		Errors: make(map[string]error),
		Names:  make(map[string]string),
	}
}

// SetPrice configures the quote for a symbol.
func (m *MockQuoter) SetPrice(symbol string, krw float64, source string) *MockQuoter {
	m.Prices[symbol] = pricing.Price{KRW: krw, Source: source}
	return m
}

// SetError configures a symbol to fail.
func (m *MockQuoter) SetError(symbol string, err error) *MockQuoter {
	m.Errors[symbol] = err
	return m
}

// GetPrice returns the configured price or error for the symbol.
func (m *MockQuoter) GetPrice(_ context.Context, symbol, _ string) (pricing.Price, error) {
	m.CallCount++
	if err, ok := m.Errors[symbol]; ok {
		return pricing.Price{}, err
	}
	price, ok := m.Prices[symbol]
	if !ok {
		return pricing.Price{}, fmt.Errorf("no mock price for %s: %w", symbol, apperrors.ErrPriceFetchFailed)
	}
	return price, nil
}

// GetBatch returns configured prices, skipping symbols set to fail.
func (m *MockQuoter) GetBatch(_ context.Context, targets []pricing.Target) map[string]pricing.Price {
	m.CallCount++
	results := make(map[string]pricing.Price)
	for _, target := range targets {
		if _, failed := m.Errors[target.Symbol]; failed {
			continue
		}
		if price, ok := m.Prices[target.Symbol]; ok {
			results[target.Symbol] = price
		}
	}
	return results
}

// GetSnapshotBatch behaves like GetBatch in the mock.
func (m *MockQuoter) GetSnapshotBatch(ctx context.Context, targets []pricing.Target) map[string]pricing.Price {
	return m.GetBatch(ctx, targets)
}

// Lookup resolves a symbol name from Names. Only the stock lookup types
// are accepted, matching the real quoter.
func (m *MockQuoter) Lookup(_ context.Context, symbol, assetType string) (pricing.LookupResult, error) {
	if assetType != "stock" && assetType != "kr_stock" {
		return pricing.LookupResult{}, apperrors.ErrInvalidLookupType
	}
	name, ok := m.Names[symbol]
	if !ok {
		return pricing.LookupResult{}, apperrors.ErrSymbolNotFound
	}
	return pricing.LookupResult{Symbol: symbol, Name: name, AssetType: assetType}, nil
}
