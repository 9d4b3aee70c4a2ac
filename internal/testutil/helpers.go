package testutil

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/mkweon/asset-tracker/internal/repository"
	"github.com/mkweon/asset-tracker/internal/service"
)

// NewTestAssetService creates an AssetService wired to the test database
// and the given quoter.
func NewTestAssetService(t *testing.T, db *sql.DB, quoter *MockQuoter) *service.AssetService {
	t.Helper()

	assetRepo := repository.NewAssetRepository(db)
	totalsRepo := repository.NewTotalsRepository(db)
	return service.NewAssetService(assetRepo, totalsRepo, quoter)
}

// NewTestTotalsService creates a TotalsService wired to the test database
// and the given quoter.
func NewTestTotalsService(t *testing.T, db *sql.DB, quoter *MockQuoter) *service.TotalsService {
	t.Helper()

	assetRepo := repository.NewAssetRepository(db)
	totalsRepo := repository.NewTotalsRepository(db)
	userRepo := repository.NewUserRepository(db)
	return service.NewTotalsService(assetRepo, totalsRepo, userRepo, quoter)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeUsername generates a unique username for testing.
//
// Example usage:
//
//	name := testutil.MakeUsername("alice")
//	// Returns: "alice_AB12CD"
func MakeUsername(base string) string {
	if base == "" {
		base = "user"
	}
	return base + "_" + randomAlphanumeric(6)
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
